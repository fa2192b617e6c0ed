package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/astei/anvilmap/chunk"
	"github.com/astei/anvilmap/config"
	"github.com/astei/anvilmap/coord"
	"github.com/astei/anvilmap/world"
)

var boundsCommand = &cli.Command{
	Name:  "bounds",
	Usage: "print the occupied area of the world",
	Action: func(c *cli.Context) error {
		cfg, log, err := settings(c)
		if err != nil {
			return err
		}
		w, err := openWorld(cfg, log)
		if err != nil {
			return err
		}

		out := c.App.Writer
		fmt.Fprintf(out, "regions: %d (%v)\n", len(w.Regions), w.RegionEdges)
		fmt.Fprintf(out, "chunks:  %v\n", w.UnitEdges)
		fmt.Fprintf(out, "blocks:  %v\n", w.BlockEdges)
		size := w.BlockEdges.Size()
		fmt.Fprintf(out, "size:    %d×%d blocks\n", size.X, size.Z)
		return nil
	},
}

var chunkCommand = &cli.Command{
	Name:      "chunk",
	Usage:     "decode one chunk with its neighbours",
	ArgsUsage: "X Z",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.Exit("need the chunk coordinates X and Z", 2)
		}
		x, errX := strconv.Atoi(c.Args().Get(0))
		z, errZ := strconv.Atoi(c.Args().Get(1))
		if errX != nil || errZ != nil {
			return cli.Exit("chunk coordinates must be integers", 2)
		}
		unit := coord.Pair{X: x, Z: z}

		cfg, log, err := settings(c)
		if err != nil {
			return err
		}
		if cfg.Blocks == "" {
			return cli.Exit("a block type CSV is needed to decode chunks (--blocks)", 2)
		}
		registry, err := chunk.LoadRegistry(cfg.Blocks)
		if err != nil {
			return err
		}
		w, err := openWorld(cfg, log)
		if err != nil {
			return err
		}

		n, ok, err := w.Assemble(unit, chunk.NewDecoder(registry))
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit(fmt.Sprintf("no chunk at %v", unit), 1)
		}
		printNeighborhood(c, n, registry)
		return nil
	},
}

var levelCommand = &cli.Command{
	Name:  "level",
	Usage: "print the level.dat summary",
	Action: func(c *cli.Context) error {
		cfg, _, err := settings(c)
		if err != nil {
			return err
		}
		level, err := world.ReadLevel(cfg.World)
		if err != nil {
			return err
		}

		out := c.App.Writer
		fmt.Fprintf(out, "name:        %s\n", level.Name)
		fmt.Fprintf(out, "version:     %s (data version %d)\n", level.VersionName, level.DataVersion)
		fmt.Fprintf(out, "spawn:       %d,%d,%d\n", level.Spawn.X, level.SpawnY, level.Spawn.Z)
		fmt.Fprintf(out, "last played: %s\n", level.LastPlayed.UTC().Format("2006-01-02 15:04:05"))
		return nil
	},
}

// settings loads the config file, if any, and applies the global flags.
func settings(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, nil, err
		}
	}
	if c.IsSet("world") {
		cfg.World = c.String("world")
	}
	if c.IsSet("blocks") {
		cfg.Blocks = c.String("blocks")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	if cfg.World == "" {
		return nil, nil, cli.Exit("no world directory given (--world or world: in the config file)", 2)
	}
	return cfg, cfg.Logger(os.Stderr), nil
}

func openWorld(cfg *config.Config, log *slog.Logger) (*world.World, error) {
	return world.Open(cfg.World, world.Options{
		Limits: cfg.Limits.Edges(),
		Logger: log,
	})
}

func printNeighborhood(c *cli.Context, n world.Neighborhood, registry *chunk.Registry) {
	out := c.App.Writer
	center := n.Center
	fmt.Fprintf(out, "chunk %v: %d solid blocks\n", n.Coord, center.Count())

	columns, highest := 0, -1
	tops := make(map[uint16]int)
	for z := 0; z < chunk.Width; z++ {
		for x := 0; x < chunk.Width; x++ {
			y, block, ok := center.Top(x, z)
			if !ok {
				continue
			}
			columns++
			tops[block]++
			highest = max(highest, y)
		}
	}
	fmt.Fprintf(out, "columns with blocks: %d, highest at y=%d\n", columns, highest)
	blocks := make([]uint16, 0, len(tops))
	for block := range tops {
		blocks = append(blocks, block)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	for _, block := range blocks {
		fmt.Fprintf(out, "  top %-24s %d\n", registry.Name(block), tops[block])
	}
	fmt.Fprintf(out, "biome at 0,0: %d\n", center.Biome(0, 0))

	for d := world.North; d <= world.West; d++ {
		side := n.Side(d)
		fmt.Fprintf(out, "%-5s neighbour: %d solid blocks, biome %d\n", d, side.Count(), side.Biome(0, 0))
	}
}
