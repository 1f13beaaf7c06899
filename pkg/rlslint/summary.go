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

package rlslint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gitlab.com/tozd/go/errors"
)

// 📋 Consolidation is one suggested policy merge: a table+role+action
// combination whose permissive policies should collapse into a single one.
type Consolidation struct {
	Table           string   `json:"table"`
	Role            string   `json:"role"`
	Action          string   `json:"action"`
	CurrentPolicies []string `json:"current_policies"`
	NewPolicyName   string   `json:"new_policy_name"`
}

// 📊 TableSummary aggregates findings for one table.
type TableSummary struct {
	Table       string `json:"table"`
	TotalIssues int    `json:"total_issues"`
	MaxPolicies int    `json:"max_policies"`
}

// 📊 Summary is the full consolidation report.
type Summary struct {
	TotalIssues    int             `json:"total_issues"`
	AffectedTables int             `json:"affected_tables"`
	UniqueRoles    int             `json:"unique_roles"`
	UniquePolicies int             `json:"unique_policies"`
	Tables         []TableSummary  `json:"tables"`
	Consolidations []Consolidation `json:"consolidations"`

	// Policy executions per query before and after consolidation: today a
	// query runs every permissive policy; afterwards one per role+action.
	ExecutionsBefore int `json:"policy_executions_before"`
	ExecutionsAfter  int `json:"policy_executions_after"`
}

// 🏭 Summarize groups issues per table and derives the consolidation plan,
// tables ranked by issue count then by worst policy pile-up.
func Summarize(issues []Issue) *Summary {
	s := &Summary{TotalIssues: len(issues)}

	byTable := make(map[string]*TableSummary)
	roles := make(map[string]bool)
	policies := make(map[string]bool)

	for _, issue := range issues {
		ts, ok := byTable[issue.Table]
		if !ok {
			ts = &TableSummary{Table: issue.Table}
			byTable[issue.Table] = ts
		}
		ts.TotalIssues++
		if n := len(issue.Policies); n > ts.MaxPolicies {
			ts.MaxPolicies = n
		}

		roles[issue.Role] = true
		for _, p := range issue.Policies {
			policies[p] = true
		}

		s.Consolidations = append(s.Consolidations, Consolidation{
			Table:           issue.Table,
			Role:            issue.Role,
			Action:          issue.Action,
			CurrentPolicies: issue.Policies,
			NewPolicyName:   fmt.Sprintf("%s_%s_%s_consolidated", issue.Table, issue.Role, strings.ToLower(issue.Action)),
		})
		s.ExecutionsBefore += len(issue.Policies)
	}

	s.AffectedTables = len(byTable)
	s.UniqueRoles = len(roles)
	s.UniquePolicies = len(policies)
	s.ExecutionsAfter = len(issues)

	for _, ts := range byTable {
		s.Tables = append(s.Tables, *ts)
	}
	sort.Slice(s.Tables, func(i, j int) bool {
		if s.Tables[i].TotalIssues != s.Tables[j].TotalIssues {
			return s.Tables[i].TotalIssues > s.Tables[j].TotalIssues
		}
		if s.Tables[i].MaxPolicies != s.Tables[j].MaxPolicies {
			return s.Tables[i].MaxPolicies > s.Tables[j].MaxPolicies
		}
		return s.Tables[i].Table < s.Tables[j].Table
	})

	sort.Slice(s.Consolidations, func(i, j int) bool {
		a, b := s.Consolidations[i], s.Consolidations[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		return a.Action < b.Action
	})

	return s
}

// 📝 RenderTable prints the severity ranking and headline statistics.
func (s *Summary) RenderTable(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Table", "Issues", "Max policies"})
	for i, ts := range s.Tables {
		t.AppendRow(table.Row{i + 1, ts.Table, ts.TotalIssues, ts.MaxPolicies})
	}
	t.Render()

	fmt.Fprintf(w, "Total issues: %d across %d tables, %d roles, %d distinct policies\n",
		s.TotalIssues, s.AffectedTables, s.UniqueRoles, s.UniquePolicies)
	if s.ExecutionsBefore > 0 {
		improvement := float64(s.ExecutionsBefore-s.ExecutionsAfter) / float64(s.ExecutionsBefore) * 100
		fmt.Fprintf(w, "Policy executions: %d before, %d after consolidation (%.0f%% fewer)\n",
			s.ExecutionsBefore, s.ExecutionsAfter, improvement)
	}
}

// 💾 WriteJSON serializes the summary to path.
func (s *Summary) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Errorf("encoding summary: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Errorf("writing summary: %w", err)
	}
	return nil
}

// 💾 WriteMarkdown serializes the consolidation plan as Markdown.
func (s *Summary) WriteMarkdown(path string) error {
	var b strings.Builder
	b.WriteString("# RLS policy consolidation plan\n\n")
	fmt.Fprintf(&b, "%d issues across %d tables. Each table+role+action combination below needs one consolidated policy; current policies must be combined with OR logic.\n\n",
		s.TotalIssues, s.AffectedTables)

	b.WriteString("| Table | Role | Action | Current policies | New policy |\n|---|---|---|---|---|\n")
	for _, c := range s.Consolidations {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | `%s` |\n",
			c.Table, c.Role, c.Action, strings.Join(c.CurrentPolicies, ", "), c.NewPolicyName)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.Errorf("writing markdown summary: %w", err)
	}
	return nil
}
