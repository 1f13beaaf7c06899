package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/buildra/rolefix/cmd/rolefix/opts"
	"github.com/buildra/rolefix/pkg/backup"
)

// NewCleanCmd creates a new clean command
func NewCleanCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		all       bool
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Garbage collect backup files through the manifest",
		Long: `Clean removes backup copies and their manifest entries. By default only
runs older than the cutoff are removed; --all removes every recorded run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "clean").Logger().WithContext(cmd.Context())

			manifest := filepath.Join(opts.Config.BackupDir, backup.ManifestName)
			cutoff := time.Now().Add(-olderThan)

			removed, err := backup.Clean(ctx, manifest, cutoff, all)
			if err != nil {
				return errors.Errorf("cleaning backups: %w", err)
			}

			opts.UserLogger.LogStateChange(fmt.Sprintf("Removed %d backup files", removed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove every recorded run")
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "remove runs older than this")

	return cmd
}
