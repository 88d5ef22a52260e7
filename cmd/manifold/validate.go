package main

import (
	"fmt"

	"github.com/aretw0/manifold/internal/validator"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [version...]",
		Short: "Check manifests for consistency",
		Long:  `Compiles each manifest version (all of them by default) and reports dangling edges, unreachable states and unknown references.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManifests(cmd)
			if err != nil {
				return err
			}

			versions := args
			if len(versions) == 0 {
				versions, err = m.provider.Versions(cmd.Context())
				if err != nil {
					return err
				}
			}
			if len(versions) == 0 {
				return fmt.Errorf("no manifests found")
			}

			failed := 0
			out := cmd.OutOrStdout()
			for _, version := range versions {
				ast, err := m.ast(cmd.Context(), version)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", version, err)
					failed++
					continue
				}
				errs := 0
				for _, issue := range validator.Lint(ast) {
					fmt.Fprintf(out, "%s: %s\n", version, issue)
					if issue.Severity == validator.SeverityError {
						errs++
					}
				}
				if errs > 0 {
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", version)
			}

			if failed > 0 {
				return fmt.Errorf("validation failed for %d of %d manifests", failed, len(versions))
			}
			return nil
		},
	}
}
