package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/astei/anvilmap/config"
)

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "anvilmap",
		Usage: "inspects Anvil worlds ahead of map rendering",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file",
				EnvVars: []string{config.EnvVar},
			},
			&cli.StringFlag{
				Name:    "world",
				Aliases: []string{"w"},
				Usage:   "world directory (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "blocks",
				Usage: "block type CSV with a name column (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			boundsCommand,
			chunkCommand,
			levelCommand,
		},
	}
}
