package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	GitCommit = "development"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mathparse v%s\n", Version)
			fmt.Fprintf(out, "  Git Commit:     %s\n", GitCommit)
			fmt.Fprintf(out, "  Config Version: %s\n", configConstraint)
			fmt.Fprintf(out, "  Go Version:     %s\n", runtime.Version())
		},
	}
}
