package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/buildra/rolefix/cmd/rolefix/opts"
	"github.com/buildra/rolefix/pkg/scanner"
)

// NewScanCmd creates a new scan command
func NewScanCmd(opts *opts.RootOpts) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "scan [root...]",
		Short: "Find files containing legacy role tokens or placeholder phrases",
		Long: `Scan walks the configured roots (or the given ones) and reports every
file matching at least one catalog rule. Nothing is modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "scan").Logger().WithContext(cmd.Context())

			roots := opts.Config.Roots
			if len(args) > 0 {
				roots = args
			}

			sc := scanner.New(opts.Catalog, opts.Config.Extensions, opts.Config.IgnoreGlobs)
			combined := &scanner.Result{}
			for _, root := range roots {
				res, err := sc.Scan(ctx, root)
				if err != nil {
					return errors.Errorf("scanning %s: %w", root, err)
				}
				combined.Merge(res)
			}

			renderScanTable(combined)

			if output != "" {
				if err := combined.WriteJSON(output); err != nil {
					return errors.Errorf("writing scan results: %w", err)
				}
				opts.UserLogger.LogStateChange(fmt.Sprintf("Scan results written to %s", output))
			}

			opts.UserLogger.LogStateChange(fmt.Sprintf(
				"%d of %d files match, %d skipped", len(combined.Files), combined.Scanned, len(combined.Skipped)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "scan-results.json", "path for the JSON scan artifact (empty to skip)")

	return cmd
}

func renderScanTable(res *scanner.Result) {
	if len(res.Files) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Rules", "Occurrences"})
	for _, f := range res.Files {
		t.AppendRow(table.Row{f.Path, len(f.RuleIDs), f.Occurrences})
	}
	t.Render()
}
