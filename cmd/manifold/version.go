package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/manifold"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of manifold",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "manifold version %s\n", strings.TrimSpace(manifold.Version))
		},
	}
}
