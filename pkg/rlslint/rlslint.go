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

// Package rlslint ingests the hosted database linter's CSV export and
// builds a row-level-security policy consolidation report: which tables
// carry multiple permissive policies for the same role and action, and what
// a consolidated policy set would look like.
package rlslint

import (
	"encoding/csv"
	"io"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📄 Issue is one linter finding, extracted from the free-text detail
// column.
type Issue struct {
	Table    string   `json:"table"`
	Role     string   `json:"role"`
	Action   string   `json:"action"`
	Policies []string `json:"policies"`
}

// Field extraction from the linter's detail text, e.g.
//
//	Table `public.tasks` has multiple permissive policies for role
//	`authenticated` for action `SELECT`. Policies include
//	`{"tasks_select_own","tasks_select_team"}`
var (
	tableRe    = regexp.MustCompile("Table `public\\.([^`]+)`")
	roleRe     = regexp.MustCompile("for role `([^`]+)`")
	actionRe   = regexp.MustCompile("for action `([^`]+)`")
	policiesRe = regexp.MustCompile("Policies include `\\{(.+?)\\}`")
)

// 📖 ParseCSV reads the linter export. Only the detail column is consulted;
// rows whose detail yields no table name still count, attributed to
// "unknown".
func ParseCSV(r io.Reader) ([]Issue, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Errorf("reading CSV header: %w", err)
	}
	detailCol := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "detail") {
			detailCol = i
			break
		}
	}
	if detailCol < 0 {
		return nil, errors.Errorf("CSV has no detail column (header: %v)", header)
	}

	var issues []Issue
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("reading CSV record: %w", err)
		}
		if detailCol >= len(record) {
			continue
		}
		issues = append(issues, parseDetail(record[detailCol]))
	}
	return issues, nil
}

// parseDetail extracts the structured fields from one detail text.
func parseDetail(detail string) Issue {
	issue := Issue{Table: "unknown", Role: "unknown", Action: "unknown"}

	if m := tableRe.FindStringSubmatch(detail); m != nil {
		issue.Table = m[1]
	}
	if m := roleRe.FindStringSubmatch(detail); m != nil {
		issue.Role = m[1]
	}
	if m := actionRe.FindStringSubmatch(detail); m != nil {
		issue.Action = m[1]
	}
	if m := policiesRe.FindStringSubmatch(detail); m != nil {
		issue.Policies = splitPolicyList(m[1])
	}

	return issue
}

// splitPolicyList splits the brace-list policy format, trimming the quoting
// that wraps each name.
func splitPolicyList(s string) []string {
	parts := strings.Split(s, `","`)
	policies := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, `"`)
		if p != "" {
			policies = append(policies, p)
		}
	}
	return policies
}
