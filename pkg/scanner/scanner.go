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

// Package scanner walks a file tree and records which files match the
// catalog. It never mutates anything: detection only.
package scanner

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/buildra/rolefix/pkg/catalog"
)

// 📄 FileMatch describes a file whose content matched at least one rule.
type FileMatch struct {
	Path        string   `json:"path"`        // Path to the file
	RuleIDs     []string `json:"rule_ids"`    // IDs of the rules that matched
	Occurrences int      `json:"occurrences"` // Total match count across all rules
}

// 📊 Result is the outcome of one scan pass.
type Result struct {
	Files   []FileMatch `json:"files"`             // Files matching at least one rule, in walk order
	Scanned int         `json:"scanned"`           // Files whose content was inspected
	Skipped []string    `json:"skipped,omitempty"` // Files/directories skipped because they could not be read
}

// 🔍 Scanner applies the catalog as a detector over a file tree.
type Scanner struct {
	catalog     *catalog.Catalog
	extensions  map[string]bool
	ignoreGlobs []string
}

// 🏭 New creates a scanner for the given catalog, extension filter, and
// ignore globs.
func New(cat *catalog.Catalog, extensions []string, ignoreGlobs []string) *Scanner {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[ext] = true
	}
	return &Scanner{
		catalog:     cat,
		extensions:  exts,
		ignoreGlobs: ignoreGlobs,
	}
}

// 🏃 Scan recursively enumerates files under root and returns a descriptor
// for every file matching at least one catalog rule. Unreadable entries are
// logged and skipped, never fatal.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("root", root).Msg("scanning")

	result := &Result{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Permission errors and vanished entries are warnings, not
			// failures. An unreadable directory is pruned as a whole.
			logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable entry")
			result.Skipped = append(result.Skipped, path)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if s.shouldIgnore(path) {
				logger.Debug().Str("path", path).Msg("directory ignored by pattern")
				return fs.SkipDir
			}
			return nil
		}

		if !s.extensions[filepath.Ext(path)] || s.shouldIgnore(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable file")
			result.Skipped = append(result.Skipped, path)
			return nil
		}
		result.Scanned++

		ids, occurrences := s.catalog.Match(content)
		if len(ids) == 0 {
			return nil
		}

		logger.Debug().Str("path", path).Strs("rules", ids).Int("occurrences", occurrences).Msg("file matched")
		result.Files = append(result.Files, FileMatch{
			Path:        path,
			RuleIDs:     ids,
			Occurrences: occurrences,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// 💾 WriteJSON writes the scan results artifact to path.
func (r *Result) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Errorf("encoding scan results: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Errorf("writing scan results: %w", err)
	}
	return nil
}

// Merge folds another root's scan into this result.
func (r *Result) Merge(other *Result) {
	r.Files = append(r.Files, other.Files...)
	r.Scanned += other.Scanned
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// 🔍 shouldIgnore checks a path against the ignore globs.
func (s *Scanner) shouldIgnore(path string) bool {
	for _, pattern := range s.ignoreGlobs {
		matched, err := doublestar.Match(pattern, filepath.ToSlash(path))
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
