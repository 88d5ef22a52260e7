package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/aretw0/manifold/pkg/workflow"
	"github.com/spf13/cobra"
)

func newTriggersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triggers <version> <type>",
		Short: "List the triggers available to an entity",
		Long:  `Evaluates the guards of the type's workflow against a snapshot described by flags and lists the permitted triggers.`,
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

			kind, _ := cmd.Flags().GetString("kind")
			engine := workflow.NewEngine()
			wf, err := engine.Resolve(ast, kind, args[1])
			if err != nil {
				return err
			}

			snapshot, err := snapshotFromFlags(cmd)
			if err != nil {
				return err
			}
			if snapshot.State == "" {
				snapshot.State = engine.InitialState(wf)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRIGGER\tTO\tLABEL")
			for _, t := range engine.PermittedTriggers(wf, snapshot.State, snapshot) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Trigger, t.To, t.Label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("kind", manifest.KindTaskType, "Entity type kind")
	cmd.Flags().String("state", "", "Current state (default: the workflow's initial state)")
	cmd.Flags().String("assignee", "", "Assignee id")
	cmd.Flags().String("reason", "", "State reason")
	cmd.Flags().String("resolution", "", "Resolution")
	cmd.Flags().StringArray("field", nil, "Custom field as key=value (repeatable)")
	return cmd
}

func snapshotFromFlags(cmd *cobra.Command) (domain.EntitySnapshot, error) {
	var s domain.EntitySnapshot
	s.State, _ = cmd.Flags().GetString("state")
	s.AssigneeID, _ = cmd.Flags().GetString("assignee")
	s.StateReason, _ = cmd.Flags().GetString("reason")
	s.Resolution, _ = cmd.Flags().GetString("resolution")

	fields, _ := cmd.Flags().GetStringArray("field")
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return s, fmt.Errorf("invalid --field %q, expected key=value", f)
		}
		if s.CustomFields == nil {
			s.CustomFields = make(map[string]any)
		}
		s.CustomFields[key] = value
	}
	return s, nil
}
