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

// Package config loads and validates the rolefix configuration file.
package config

import (
	"fmt"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// 🔄 RuleSpec is a rewrite rule as it appears in a config file. It is
// converted to a catalog.Rule after loading.
type RuleSpec struct {
	ID        string `json:"id" yaml:"id" hcl:"id"`
	Match     string `json:"match" yaml:"match" hcl:"match"`
	Replace   string `json:"replace" yaml:"replace" hcl:"replace"`
	Scope     string `json:"scope,omitempty" yaml:"scope,omitempty" hcl:"scope,optional"`
	Regex     bool   `json:"regex,omitempty" yaml:"regex,omitempty" hcl:"regex,optional"`
	WholeWord bool   `json:"whole_word,omitempty" yaml:"whole_word,omitempty" hcl:"whole_word,optional"`
}

// 📚 Config is the complete rolefix configuration.
type Config struct {
	// Roots are the directories to scan. Relative paths are resolved against
	// the config file's directory.
	Roots []string `json:"roots,omitempty" yaml:"roots,omitempty" hcl:"roots,optional"`

	// Extensions is the source-file extension filter (with leading dot).
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty" hcl:"extensions,optional"`

	// IgnoreGlobs are doublestar patterns for paths to skip.
	IgnoreGlobs []string `json:"ignore_globs,omitempty" yaml:"ignore_globs,omitempty" hcl:"ignore_globs,optional"`

	// Rules are extra rewrite rules, applied after the built-in catalog.
	Rules []RuleSpec `json:"rules,omitempty" yaml:"rules,omitempty" hcl:"rule,block"`

	// DisableBuiltinRules drops the built-in role/placeholder catalog.
	DisableBuiltinRules bool `json:"disable_builtin_rules,omitempty" yaml:"disable_builtin_rules,omitempty" hcl:"disable_builtin_rules,optional"`

	// BackupDir holds the backup manifest. Backup copies themselves live
	// next to the files they snapshot.
	BackupDir string `json:"backup_dir,omitempty" yaml:"backup_dir,omitempty" hcl:"backup_dir,optional"`

	// ReportPath is where the JSON run report is written.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty" hcl:"report_path,optional"`

	// MarkdownReportPath, when set, also writes a Markdown run report.
	MarkdownReportPath string `json:"markdown_report_path,omitempty" yaml:"markdown_report_path,omitempty" hcl:"markdown_report_path,optional"`

	// Workers bounds the rewrite worker pool. 1 means sequential.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty" hcl:"workers,optional"`

	location string
}

// 📝 Location returns the path the config was loaded from, if any.
func (cfg *Config) Location() string {
	return cfg.location
}

// 🔍 Validate checks the configuration and fills in defaults.
func (cfg *Config) Validate() error {
	if len(cfg.Roots) == 0 {
		cfg.Roots = []string{"."}
	}
	for i, root := range cfg.Roots {
		cfg.Roots[i] = filepath.Clean(root)
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".ts", ".tsx", ".js", ".jsx", ".sql"}
	}
	for i, ext := range cfg.Extensions {
		if ext == "" || ext[0] != '.' {
			return errors.Errorf("extensions[%d]: %q must start with a dot", i, ext)
		}
		cfg.Extensions[i] = ext
	}

	if len(cfg.IgnoreGlobs) == 0 {
		cfg.IgnoreGlobs = []string{
			"**/node_modules/**",
			"**/.git/**",
			"**/*.backup",
			"**/.rolefix/**",
		}
	}

	for i, rule := range cfg.Rules {
		if rule.ID == "" {
			return errors.Errorf("rules[%d]: id is required", i)
		}
		if rule.Match == "" {
			return errors.Errorf("rule %q: match is required", rule.ID)
		}
	}

	if cfg.BackupDir == "" {
		cfg.BackupDir = ".rolefix"
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = "rolefix-report.json"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	return nil
}

// 📝 String returns a short description of the config.
func (cfg *Config) String() string {
	return fmt.Sprintf("roots=%v extensions=%v rules=%d", cfg.Roots, cfg.Extensions, len(cfg.Rules))
}
