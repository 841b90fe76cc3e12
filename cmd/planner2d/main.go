// Package main runs the planner against a simulated base and laser.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagFast   = "fast"
	flagMode   = "mode"
	flagOut    = "out"
)

func main() {
	app := &cli.App{
		Name:  "planner2d",
		Usage: "drive a simulated robot to a goal on a 2D occupancy map",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Usage:    "load configuration from `FILE`",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the planning cycle until the goal is reached",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagFast,
						Usage: "do not wait between cycles",
					},
				},
				Action: runAction,
			},
			{
				Name:  "render",
				Usage: "render the map, distance or cost field to a PNG",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagMode,
						Usage: "field to render: map, distance or cost",
						Value: "map",
					},
					&cli.PathFlag{
						Name:     flagOut,
						Usage:    "write the image to `FILE`",
						Required: true,
					},
				},
				Action: renderAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
