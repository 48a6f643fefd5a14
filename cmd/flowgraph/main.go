package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/flowgraph/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	dataDirFlag := &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory holding execution dump files",
		Value:   "./data",
		Sources: cli.EnvVars("DATA_DIR"),
	}

	cmd := &cli.Command{
		Name:                  "flowgraph",
		Usage:                 "Inspect stored pipeline execution histories",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			dataDirFlag,
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored executions",
				Action: func(ctx context.Context, command *cli.Command) error {
					return runList(ctx, command)
				},
			},
			{
				Name:      "summary",
				Usage:     "Show one execution's frontier, stage, and node count",
				ArgsUsage: "<execution-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					return runSummary(ctx, command)
				},
			},
			{
				Name:      "scan",
				Usage:     "Walk an execution's history backwards",
				ArgsUsage: "<execution-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Scan mode (depth-first, linear, block-hopping, fork)",
						Value:   "depth-first",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Node to start from instead of the current frontier",
					},
					&cli.StringSliceFlag{
						Name:  "stop",
						Usage: "Nodes bounding the walk, excluded from the output",
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return runScan(ctx, command)
				},
			},
			{
				Name:      "enclosing",
				Usage:     "Show the block chain enclosing a node, innermost first",
				ArgsUsage: "<execution-id> <node-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					return runEnclosing(ctx, command)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
