package main

import (
	"fmt"

	"github.com/aretw0/manifold/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <version> <workflow>",
		Short: "Export a workflow as a Mermaid diagram",
		Long:  `Outputs a Mermaid diagram (graph TD) of the workflow's states and transitions.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManifests(cmd)
			if err != nil {
				return err
			}
			ast, err := m.ast(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			wf, ok := ast.Workflow(args[1])
			if !ok {
				return fmt.Errorf("workflow %q is not defined in %s", args[1], args[0])
			}

			var overlay *graph.GraphOverlay
			if current, _ := cmd.Flags().GetString("current"); current != "" {
				visited, _ := cmd.Flags().GetStringSlice("visited")
				overlay = &graph.GraphOverlay{CurrentState: current, VisitedStates: visited}
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(wf, overlay))
			return nil
		},
	}
	cmd.Flags().String("current", "", "Highlight the current state")
	cmd.Flags().StringSlice("visited", nil, "Highlight previously visited states")
	return cmd
}
