package commands

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/buildra/rolefix/cmd/rolefix/opts"
	"github.com/buildra/rolefix/pkg/backup"
)

// NewRollbackCmd creates a new rollback command
func NewRollbackCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback [run-id]",
		Short: "Restore files from a run's backups",
		Long: `Rollback restores every file snapshotted by a run, byte for byte,
using the backup manifest. Without a run ID the most recent run is restored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "rollback").Logger().WithContext(cmd.Context())

			runID := ""
			if len(args) > 0 {
				runID = args[0]
			}

			manifest := filepath.Join(opts.Config.BackupDir, backup.ManifestName)
			restored, failed, err := backup.Rollback(ctx, manifest, runID)
			if err != nil {
				return errors.Errorf("rolling back: %w", err)
			}

			opts.UserLogger.LogStateChange(fmt.Sprintf("Restored %d files", restored))
			if len(failed) > 0 {
				return errors.Errorf("rollback completed with %d failures", len(failed))
			}
			return nil
		},
	}

	return cmd
}
