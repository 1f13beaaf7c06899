package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/buildra/rolefix/cmd/rolefix/opts"
	"github.com/buildra/rolefix/pkg/backup"
	"github.com/buildra/rolefix/pkg/log"
	"github.com/buildra/rolefix/pkg/report"
	"github.com/buildra/rolefix/pkg/rewrite"
	"github.com/buildra/rolefix/pkg/scanner"
)

// NewFixCmd creates a new fix command
func NewFixCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		dryRun  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "fix [root...]",
		Short: "Rewrite legacy role tokens and placeholder phrases in place",
		Long: `Fix scans the configured roots (or the given ones), snapshots every
matching file once, applies the catalog substitutions, and writes the run
report. Per-file errors never stop the batch; they are counted and turn the
exit code non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "fix").Logger().WithContext(cmd.Context())

			roots := opts.Config.Roots
			if len(args) > 0 {
				roots = args
			}
			if workers <= 0 {
				workers = opts.Config.Workers
			}

			// Detector pass
			sc := scanner.New(opts.Catalog, opts.Config.Extensions, opts.Config.IgnoreGlobs)
			combined := &scanner.Result{}
			for _, root := range roots {
				res, err := sc.Scan(ctx, root)
				if err != nil {
					return errors.Errorf("scanning %s: %w", root, err)
				}
				combined.Merge(res)
			}

			if dryRun {
				return previewFiles(cmd, opts, combined)
			}

			// One backup registry for the whole run: even if several phases
			// touch the same file, only the pristine content is snapshotted.
			registry, err := backup.NewRegistry(opts.Config.BackupDir)
			if err != nil {
				return errors.Errorf("creating backup registry: %w", err)
			}

			rep := report.NewRunReport(registry.RunID())
			rep.FilesScanned = combined.Scanned
			rep.FilesMatched = len(combined.Files)
			for _, path := range combined.Skipped {
				rep.AddSkipped(path, "unreadable during scan")
			}

			paths := make([]string, len(combined.Files))
			for i, f := range combined.Files {
				paths[i] = f.Path
			}

			rw := rewrite.New(opts.Catalog, registry)
			for _, res := range rw.Batch(ctx, paths, workers) {
				rep.AddResult(res.Path, res.Changes, res.RuleHits, res.Err)
				switch {
				case res.Err != nil:
					opts.UserLogger.LogFileChange(log.FileChange{Type: log.FileFailed, Path: res.Path, Error: res.Err})
				case res.Changes > 0:
					opts.UserLogger.LogFileChange(log.FileChange{
						Type:        log.FileFixed,
						Path:        res.Path,
						Description: fmt.Sprintf("%d replacements", res.Changes),
					})
				default:
					opts.UserLogger.LogFileChange(log.FileChange{Type: log.FileSkipped, Path: res.Path})
				}
			}
			rep.Finish()

			rep.RenderTable(os.Stdout)
			if err := rep.WriteJSON(opts.Config.ReportPath); err != nil {
				return errors.Errorf("writing report: %w", err)
			}
			if opts.Config.MarkdownReportPath != "" {
				if err := rep.WriteMarkdown(opts.Config.MarkdownReportPath); err != nil {
					return errors.Errorf("writing markdown report: %w", err)
				}
			}

			if rep.HasErrors() {
				return errors.Errorf("run %s completed with %d errors", registry.RunID(), len(rep.Errors))
			}
			opts.UserLogger.LogValidation(true, fmt.Sprintf("Fixed %d files (run %s)", rep.FilesFixed, registry.RunID()), nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show diffs without modifying anything")
	cmd.Flags().IntVar(&workers, "workers", 0, "rewrite worker pool size (default from config)")

	return cmd
}

// previewFiles prints the would-be diff for every matched file.
func previewFiles(cmd *cobra.Command, opts *opts.RootOpts, scanRes *scanner.Result) error {
	ctx := cmd.Context()
	rw := rewrite.New(opts.Catalog, nil)

	total := 0
	for _, f := range scanRes.Files {
		diff, changes, err := rw.Preview(ctx, f.Path)
		if err != nil {
			opts.UserLogger.LogFileChange(log.FileChange{Type: log.FileFailed, Path: f.Path, Error: err})
			continue
		}
		if changes == 0 {
			continue
		}
		total += changes
		fmt.Fprintf(os.Stdout, "--- %s (%d replacements)\n%s\n", f.Path, changes, diff)
	}

	opts.UserLogger.LogStateChange(fmt.Sprintf(
		"Dry run: %d replacements across %d files, nothing written", total, len(scanRes.Files)))
	return nil
}
