// Copyright 2025 buildra LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report aggregates per-file rewrite outcomes into run totals and
// renders them as a console table, a JSON artifact, and a Markdown artifact.
// Purely informational: no retries, no alerting.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gitlab.com/tozd/go/errors"
)

// ❌ FileError records one file the run could not process.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// 📊 RunReport holds the aggregate counters of one run. Lifecycle is a
// single process invocation; only the serialized artifacts survive.
type RunReport struct {
	RunID      string    `json:"run_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	FilesScanned  int `json:"files_scanned"`
	FilesMatched  int `json:"files_matched"`
	FilesFixed    int `json:"files_fixed"`
	PatternsFixed int `json:"patterns_fixed"`

	RuleHits map[string]int `json:"rule_hits,omitempty"`
	Errors   []FileError    `json:"errors,omitempty"`

	mu sync.Mutex
}

// 🏭 NewRunReport starts a report for a run.
func NewRunReport(runID string) *RunReport {
	return &RunReport{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		RuleHits:  make(map[string]int),
	}
}

// ➕ AddResult folds one file's outcome into the totals.
func (r *RunReport) AddResult(path string, changes int, ruleHits map[string]int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.Errors = append(r.Errors, FileError{Path: path, Error: err.Error()})
		return
	}
	if changes > 0 {
		r.FilesFixed++
		r.PatternsFixed += changes
	}
	for id, n := range ruleHits {
		r.RuleHits[id] += n
	}
}

// ➕ AddSkipped records a file the scanner could not read.
func (r *RunReport) AddSkipped(path string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, FileError{Path: path, Error: reason})
}

// Finish stamps the end time.
func (r *RunReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now().UTC()
}

// HasErrors reports whether any per-file error was recorded. Callers use it
// to pick the process exit code.
func (r *RunReport) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors) > 0
}

// 📝 RenderTable prints the human-readable summary table.
func (r *RunReport) RenderTable(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Files scanned", r.FilesScanned},
		{"Files matched", r.FilesMatched},
		{"Files fixed", r.FilesFixed},
		{"Patterns fixed", r.PatternsFixed},
		{"Errors", len(r.Errors)},
	})
	if !r.FinishedAt.IsZero() {
		t.AppendRow(table.Row{"Duration", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)})
	}
	t.Render()

	if len(r.RuleHits) > 0 {
		rt := table.NewWriter()
		rt.SetOutputMirror(w)
		rt.SetStyle(table.StyleLight)
		rt.AppendHeader(table.Row{"Rule", "Hits"})
		for _, id := range sortedRuleIDs(r.RuleHits) {
			rt.AppendRow(table.Row{id, r.RuleHits[id]})
		}
		rt.Render()
	}

	for _, fe := range r.Errors {
		fmt.Fprintf(w, "%s %s: %s\n", color.New(color.FgRed).Sprint("✗"), fe.Path, fe.Error)
	}
}

// 💾 WriteJSON serializes the report to path.
func (r *RunReport) WriteJSON(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Errorf("writing report: %w", err)
	}
	return nil
}

// 💾 WriteMarkdown serializes the report as a Markdown summary.
func (r *RunReport) WriteMarkdown(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString("# rolefix run report\n\n")
	if r.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`, started %s.\n\n", r.RunID, humanize.Time(r.StartedAt))
	}
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files scanned | %d |\n", r.FilesScanned)
	fmt.Fprintf(&b, "| Files matched | %d |\n", r.FilesMatched)
	fmt.Fprintf(&b, "| Files fixed | %d |\n", r.FilesFixed)
	fmt.Fprintf(&b, "| Patterns fixed | %d |\n", r.PatternsFixed)
	fmt.Fprintf(&b, "| Errors | %d |\n", len(r.Errors))

	if len(r.RuleHits) > 0 {
		b.WriteString("\n## Rule hits\n\n| Rule | Hits |\n|---|---|\n")
		for _, id := range sortedRuleIDs(r.RuleHits) {
			fmt.Fprintf(&b, "| %s | %d |\n", id, r.RuleHits[id])
		}
	}

	if len(r.Errors) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, fe := range r.Errors {
			fmt.Fprintf(&b, "- `%s`: %s\n", fe.Path, fe.Error)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.Errorf("writing markdown report: %w", err)
	}
	return nil
}

// sortedRuleIDs returns rule IDs ordered by hit count, then name.
func sortedRuleIDs(hits map[string]int) []string {
	ids := make([]string, 0, len(hits))
	for id := range hits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if hits[ids[i]] != hits[ids[j]] {
			return hits[ids[i]] > hits[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
