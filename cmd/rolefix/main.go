package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/buildra/rolefix/cmd/rolefix/commands"
	"github.com/buildra/rolefix/cmd/rolefix/opts"
	"github.com/buildra/rolefix/pkg/log"
)

func main() {
	ctx := context.Background()

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "rolefix",
		Short: "A tool for consolidating legacy role references across a source tree",
		Long: `rolefix scans a source tree for legacy role tokens and placeholder
phrases, rewrites them onto the canonical role enum, snapshots every file it
touches into a manifest-tracked backup, and reports the results.`,
	}

	// Add shared flags
	addRootFlags(rootCmd)

	// Root options are built after flag parsing so --config and --debug are
	// honored.
	ro := &opts.RootOpts{}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		setupLogging()
		built, err := newRootOpts(cmd.Context())
		if err != nil {
			return err
		}
		*ro = *built
		return nil
	}

	// Add commands
	rootCmd.AddCommand(
		commands.NewScanCmd(ro),
		commands.NewFixCmd(ro),
		commands.NewRollbackCmd(ro),
		commands.NewCleanCmd(ro),
		commands.NewAnalyzeCmd(ro),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.NewUserLogger(ctx).LogValidation(false, "Command failed", err)
		os.Exit(1)
	}
}
