package rlslint

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDetail = "Table `public.tasks` has multiple permissive policies for role `authenticated` for action `SELECT`. " +
	"Policies include `{\"tasks_select_own\",\"tasks_select_team\",\"tasks_select_admin\"}`"

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		want   Issue
	}{
		{
			name:   "full_detail",
			detail: sampleDetail,
			want: Issue{
				Table:    "tasks",
				Role:     "authenticated",
				Action:   "SELECT",
				Policies: []string{"tasks_select_own", "tasks_select_team", "tasks_select_admin"},
			},
		},
		{
			name:   "single_policy",
			detail: "Table `public.invoices` has multiple permissive policies for role `anon` for action `INSERT`. Policies include `{\"invoices_insert\"}`",
			want: Issue{
				Table:    "invoices",
				Role:     "anon",
				Action:   "INSERT",
				Policies: []string{"invoices_insert"},
			},
		},
		{
			name:   "unparseable_detail",
			detail: "something entirely different",
			want:   Issue{Table: "unknown", Role: "unknown", Action: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail(tt.detail))
		})
	}
}

func TestParseCSV(t *testing.T) {
	t.Run("valid_export", func(t *testing.T) {
		csvData := "name,level,detail\n" +
			"multiple_permissive_policies,WARN,\"" + strings.ReplaceAll(sampleDetail, `"`, `""`) + "\"\n" +
			"multiple_permissive_policies,WARN,\"Table `public.projects` has multiple permissive policies for role `authenticated` for action `UPDATE`. Policies include `{\"\"projects_update_a\"\",\"\"projects_update_b\"\"}`\"\n"

		issues, err := ParseCSV(strings.NewReader(csvData))
		require.NoError(t, err)
		require.Len(t, issues, 2)
		assert.Equal(t, "tasks", issues[0].Table)
		assert.Equal(t, "projects", issues[1].Table)
		assert.Equal(t, []string{"projects_update_a", "projects_update_b"}, issues[1].Policies)
	})

	t.Run("missing_detail_column", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("name,level\nfoo,WARN\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no detail column")
	})

	t.Run("empty_export", func(t *testing.T) {
		issues, err := ParseCSV(strings.NewReader("name,level,detail\n"))
		require.NoError(t, err)
		assert.Empty(t, issues)
	})
}

func TestSummarize(t *testing.T) {
	issues := []Issue{
		{Table: "tasks", Role: "authenticated", Action: "SELECT", Policies: []string{"a", "b", "c"}},
		{Table: "tasks", Role: "authenticated", Action: "UPDATE", Policies: []string{"a", "b"}},
		{Table: "projects", Role: "anon", Action: "SELECT", Policies: []string{"p", "q"}},
	}

	s := Summarize(issues)

	assert.Equal(t, 3, s.TotalIssues)
	assert.Equal(t, 2, s.AffectedTables)
	assert.Equal(t, 2, s.UniqueRoles)
	assert.Equal(t, 5, s.UniquePolicies)

	// Tables ranked by issue count.
	require.Len(t, s.Tables, 2)
	assert.Equal(t, "tasks", s.Tables[0].Table)
	assert.Equal(t, 2, s.Tables[0].TotalIssues)
	assert.Equal(t, 3, s.Tables[0].MaxPolicies)

	// One consolidated policy per table+role+action combination.
	require.Len(t, s.Consolidations, 3)
	assert.Equal(t, "projects_anon_select_consolidated", s.Consolidations[0].NewPolicyName)
	assert.Equal(t, "tasks_authenticated_select_consolidated", s.Consolidations[1].NewPolicyName)

	// Today every permissive policy runs per query; afterwards one per issue.
	assert.Equal(t, 7, s.ExecutionsBefore)
	assert.Equal(t, 3, s.ExecutionsAfter)
}

func TestSummary_Artifacts(t *testing.T) {
	s := Summarize([]Issue{
		{Table: "tasks", Role: "authenticated", Action: "SELECT", Policies: []string{"a", "b"}},
	})

	dir := t.TempDir()

	jsonPath := dir + "/analysis.json"
	require.NoError(t, s.WriteJSON(jsonPath))
	assert.FileExists(t, jsonPath)

	mdPath := dir + "/analysis.md"
	require.NoError(t, s.WriteMarkdown(mdPath))
	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tasks_authenticated_select_consolidated")
	assert.Contains(t, string(data), "a, b")
}
