package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "seqcrawl",
	Short:         "seqcrawl collects protein sequences from the NCBI search interface.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "seqcrawl.json5",
		"JSON5 config file; <name>.local.json5 next to it overrides it")
}

// Execute runs the command line under ctx and exits with status 1 on error.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
