package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/buildra/rolefix/cmd/rolefix/opts"
	"github.com/buildra/rolefix/pkg/rlslint"
)

// NewAnalyzeCmd creates a new analyze command
func NewAnalyzeCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		output   string
		markdown string
	)

	cmd := &cobra.Command{
		Use:   "analyze <lints.csv>",
		Short: "Build an RLS policy consolidation report from a linter CSV export",
		Long: `Analyze parses the hosted database linter's CSV export, groups the
multiple-permissive-policy findings per table, and emits a consolidation
plan: one policy per table+role+action combination.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "analyze").Logger().WithContext(cmd.Context())

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Errorf("opening lint export: %w", err)
			}
			defer f.Close()

			issues, err := rlslint.ParseCSV(f)
			if err != nil {
				return errors.Errorf("parsing lint export: %w", err)
			}
			zerolog.Ctx(ctx).Debug().Int("issues", len(issues)).Msg("lint export parsed")

			summary := rlslint.Summarize(issues)
			summary.RenderTable(os.Stdout)

			if output != "" {
				if err := summary.WriteJSON(output); err != nil {
					return errors.Errorf("writing analysis: %w", err)
				}
			}
			if markdown != "" {
				if err := summary.WriteMarkdown(markdown); err != nil {
					return errors.Errorf("writing markdown analysis: %w", err)
				}
			}

			opts.UserLogger.LogStateChange(fmt.Sprintf(
				"%d issues across %d tables, %d consolidations suggested",
				summary.TotalIssues, summary.AffectedTables, len(summary.Consolidations)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "rls-analysis.json", "path for the JSON analysis artifact (empty to skip)")
	cmd.Flags().StringVar(&markdown, "markdown", "", "also write a Markdown consolidation plan to this path")

	return cmd
}
