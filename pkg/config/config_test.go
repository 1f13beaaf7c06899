package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		content   string
		wantError string
		check     func(t *testing.T, cfg *Config)
	}{
		{
			name:     "yaml",
			filename: "rolefix.yaml",
			content: `
roots:
  - src
extensions:
  - .ts
  - .sql
rules:
  - id: custom
    match: old_token
    replace: new_token
    whole_word: true
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"src"}, cfg.Roots)
				assert.Equal(t, []string{".ts", ".sql"}, cfg.Extensions)
				require.Len(t, cfg.Rules, 1)
				assert.Equal(t, "custom", cfg.Rules[0].ID)
				assert.True(t, cfg.Rules[0].WholeWord)
			},
		},
		{
			name:     "json",
			filename: "rolefix.json",
			content:  `{"roots": ["app"], "workers": 4}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"app"}, cfg.Roots)
				assert.Equal(t, 4, cfg.Workers)
			},
		},
		{
			name:     "hcl",
			filename: "rolefix.hcl",
			content: `
roots      = ["migrations"]
extensions = [".sql"]

rule {
  id      = "custom"
  match   = "old_token"
  replace = "new_token"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"migrations"}, cfg.Roots)
				require.Len(t, cfg.Rules, 1)
				assert.Equal(t, "custom", cfg.Rules[0].ID)
			},
		},
		{
			name:      "yaml_unknown_field",
			filename:  "rolefix.yaml",
			content:   "unknown_thing: true\n",
			wantError: "parsing YAML",
		},
		{
			name:      "json_unknown_field",
			filename:  "rolefix.json",
			content:   `{"unknown_thing": true}`,
			wantError: "parsing JSON",
		},
		{
			name:      "unsupported_extension",
			filename:  "rolefix.toml",
			content:   "roots = []",
			wantError: "unsupported file extension",
		},
		{
			name:      "rule_missing_id",
			filename:  "rolefix.yaml",
			content:   "rules:\n  - match: foo\n    replace: bar\n",
			wantError: "id is required",
		},
		{
			name:      "bad_extension_filter",
			filename:  "rolefix.yaml",
			content:   "extensions:\n  - ts\n",
			wantError: "must start with a dot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.filename, tt.content)
			cfg, err := Load(context.Background(), path)

			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Equal(t, path, cfg.Location())
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), ".rolefix.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"."}, cfg.Roots)
	assert.Contains(t, cfg.Extensions, ".ts")
	assert.Contains(t, cfg.Extensions, ".sql")
	assert.NotEmpty(t, cfg.IgnoreGlobs)
	assert.Equal(t, ".rolefix", cfg.BackupDir)
	assert.Equal(t, "rolefix-report.json", cfg.ReportPath)
	assert.Equal(t, 1, cfg.Workers)
}

func TestBuildCatalog(t *testing.T) {
	t.Run("builtin_plus_extra_rules", func(t *testing.T) {
		cfg := &Config{
			Rules: []RuleSpec{
				{ID: "custom", Match: "old_token", Replace: "new_token", WholeWord: true},
			},
		}
		require.NoError(t, cfg.Validate())

		cat, err := cfg.BuildCatalog()
		require.NoError(t, err)

		// 13 role rules + 2 placeholder rules + 1 extra.
		assert.Equal(t, 16, cat.Len())
		rules := cat.Rules()
		assert.Equal(t, "custom", rules[len(rules)-1].ID)
	})

	t.Run("builtin_disabled", func(t *testing.T) {
		cfg := &Config{
			DisableBuiltinRules: true,
			Rules: []RuleSpec{
				{ID: "only", Match: "a", Replace: "b"},
			},
		}
		require.NoError(t, cfg.Validate())

		cat, err := cfg.BuildCatalog()
		require.NoError(t, err)
		assert.Equal(t, 1, cat.Len())
	})

	t.Run("malformed_rule_fails_fast", func(t *testing.T) {
		cfg := &Config{
			Rules: []RuleSpec{
				{ID: "bad", Match: "fo(o", Replace: "bar", Regex: true},
			},
		}
		require.NoError(t, cfg.Validate())

		_, err := cfg.BuildCatalog()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compiling catalog")
	})
}
