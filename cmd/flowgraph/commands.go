// Package main provides the flowgraph inspection CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/flowgraph/pkg/cmd"
	"github.com/dukex/flowgraph/pkg/graph"
	"github.com/dukex/flowgraph/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var errMissingArgument = errors.New("missing required argument")

func newService(command *cli.Command) *services.Executions {
	return services.NewExecutions(cmd.NewRepository(command.String("data-dir")), nil)
}

func runList(ctx context.Context, command *cli.Command) error {
	ids, err := newService(command).List(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		fmt.Println(id)
	}

	return nil
}

func runSummary(ctx context.Context, command *cli.Command) error {
	id := command.Args().First()
	if id == "" {
		return fmt.Errorf("%w: execution id", errMissingArgument)
	}

	summary, err := newService(command).Summary(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("execution: %s\n", summary.ID)
	fmt.Printf("complete:  %t\n", summary.Complete)
	fmt.Printf("nodes:     %d\n", summary.NodeCount)
	fmt.Printf("heads:     %s\n", strings.Join(summary.HeadIDs, ", "))

	if summary.Stage != "" {
		fmt.Printf("stage:     %s\n", summary.Stage)
	}

	return nil
}

func runScan(ctx context.Context, command *cli.Command) error {
	id := command.Args().First()
	if id == "" {
		return fmt.Errorf("%w: execution id", errMissingArgument)
	}

	nodes, err := newService(command).Scan(ctx, id,
		command.String("mode"),
		command.String("from"),
		command.StringSlice("stop"),
	)
	if err != nil {
		return err
	}

	for _, n := range nodes {
		printNode(n)
	}

	return nil
}

func runEnclosing(ctx context.Context, command *cli.Command) error {
	id := command.Args().First()
	nodeID := command.Args().Get(1)

	if id == "" || nodeID == "" {
		return fmt.Errorf("%w: execution id and node id", errMissingArgument)
	}

	blocks, err := newService(command).Enclosing(ctx, id, nodeID)
	if err != nil {
		return err
	}

	for _, b := range blocks {
		printNode(b)
	}

	return nil
}

func printNode(n graph.Node) {
	kind := "step"

	switch v := n.(type) {
	case *graph.FlowStartNode:
		kind = "flow start"
	case *graph.FlowEndNode:
		kind = "flow end"
	case *graph.BlockStartNode:
		kind = "block start"
	case *graph.BlockEndNode:
		kind = "block end of " + v.StartID()
	}

	fmt.Printf("%s\t%s\t%s\n", n.ID(), kind, n.DisplayName())
}
