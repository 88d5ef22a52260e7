package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/aretw0/manifold/internal/compiler"
	"github.com/aretw0/manifold/internal/validator"
	"github.com/aretw0/manifold/pkg/manifest"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Validate manifests as they are written",
		Long:  `Watches the manifest directory and lints every version that is created or changed until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManifests(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			versions, err := m.provider.Watch(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			dir, _ := cmd.Flags().GetString("dir")
			fmt.Fprintf(out, "Watching %s for manifest changes...\n", dir)

			parser := compiler.NewParser()
			for version := range versions {
				// Compiled outside the cache: a file being edited in place
				// does not get a new version id.
				bundle, err := m.provider.Get(ctx, version)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", version, err)
					continue
				}
				report(out, parser, version, bundle)
			}
			return nil
		},
	}
}

func report(out io.Writer, parser *compiler.Parser, version string, bundle *manifest.Bundle) {
	ast, err := parser.Compile(bundle)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", version, err)
		return
	}
	issues := validator.Lint(ast)
	for _, issue := range issues {
		fmt.Fprintf(out, "%s: %s\n", version, issue)
	}
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s: ok\n", version)
	}
}
