// Package world ties region files together: it finds the occupied area of a
// world and loads regions with the edge chunks of their neighbours.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/astei/anvilmap/coord"
	"github.com/astei/anvilmap/region"
)

var ErrEmptyWorld = errors.New("world: no chunks found")

type Options struct {
	// Limits crops the world to these block edges.
	Limits *coord.Edges
	Logger *slog.Logger
}

// World describes the occupied area of a world directory. Only location
// tables are read to build it.
type World struct {
	Dir string
	// Regions maps every region with at least one chunk to the edges of its
	// occupied chunks, in region-local unit coordinates.
	Regions map[coord.Pair]coord.Edges

	RegionEdges coord.Edges
	UnitEdges   coord.Edges
	BlockEdges  coord.Edges

	limits *coord.Edges
	log    *slog.Logger
}

func Open(dir string, opts Options) (*World, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	regionDir := filepath.Join(dir, "region")
	entries, err := os.ReadDir(regionDir)
	if err != nil {
		return nil, fmt.Errorf("listing regions of %s: %w", dir, err)
	}

	w := &World{
		Dir:         dir,
		Regions:     make(map[coord.Pair]coord.Edges),
		RegionEdges: coord.EmptyEdges(),
		limits:      opts.Limits,
		log:         log,
	}

	var unitLimits, regionLimits coord.Edges
	if w.limits != nil {
		unitLimits = w.limits.BlocksToUnits()
		regionLimits = unitLimits.UnitsToContainers()
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		c, ok := region.ParseFileName(entry.Name())
		if !ok {
			continue
		}
		if w.limits != nil && !regionLimits.Contains(c) {
			log.Debug("region outside limits", "region", c)
			continue
		}

		bounds := coord.Full(coord.UnitsPerContainer)
		if w.limits != nil {
			bounds = unitLimits.InContainer(c)
		}
		edges, err := occupiedEdges(filepath.Join(regionDir, entry.Name()), bounds)
		if err != nil {
			return nil, err
		}
		if edges.IsEmpty() {
			log.Debug("region has no chunks", "region", c)
			continue
		}

		log.Debug("discovered region", "region", c, "edges", edges)
		w.Regions[c] = edges
		w.RegionEdges.Union(c)
	}

	if len(w.Regions) == 0 {
		return nil, ErrEmptyWorld
	}
	w.computeEdges()
	return w, nil
}

func occupiedEdges(path string, bounds coord.Edges) (coord.Edges, error) {
	reader, err := region.Open(path)
	if err != nil {
		return coord.Edges{}, err
	}
	defer reader.Close()

	edges := coord.EmptyEdges()
	for _, slot := range reader.Occupied(bounds) {
		edges.Union(slot)
	}
	return edges, nil
}

// computeEdges derives unit and block edges. Only regions on the outer
// region edges can hold the outermost chunks.
func (w *World) computeEdges() {
	re := w.RegionEdges
	units := coord.EmptyEdges()
	for c, e := range w.Regions {
		origin := coord.GlobalPair(c, coord.Pair{})
		if c.Z == re.N {
			units.N = min(units.N, origin.Z+e.N)
		}
		if c.X == re.E {
			units.E = max(units.E, origin.X+e.E)
		}
		if c.Z == re.S {
			units.S = max(units.S, origin.Z+e.S)
		}
		if c.X == re.W {
			units.W = min(units.W, origin.X+e.W)
		}
	}
	w.UnitEdges = units

	w.BlockEdges = units.UnitsToBlocks()
	if w.limits != nil {
		w.BlockEdges = w.BlockEdges.Intersect(*w.limits)
	}
}

// Containers returns the coordinates of every region with chunks, sorted by
// z and then x.
func (w *World) Containers() []coord.Pair {
	list := make([]coord.Pair, 0, len(w.Regions))
	for c := range w.Regions {
		list = append(list, c)
	}
	sortPairs(list)
	return list
}

func (w *World) regionPath(c coord.Pair) string {
	return filepath.Join(w.Dir, "region", region.FileName(c))
}

func sortPairs(list []coord.Pair) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Z != list[j].Z {
			return list[i].Z < list[j].Z
		}
		return list[i].X < list[j].X
	})
}
