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

// Package rewrite applies the catalog to matched files: read, snapshot,
// substitute, write back. Each file's read-backup-write sequence is atomic
// with respect to that file; files never depend on each other's outcome.
package rewrite

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/buildra/rolefix/pkg/backup"
	"github.com/buildra/rolefix/pkg/catalog"
)

// 📄 Result is the outcome of rewriting one file. Err is set on I/O failure;
// the batch keeps going either way.
type Result struct {
	Path       string
	Changes    int
	RuleHits   map[string]int
	BackupPath string
	Err        error
}

// 🔧 Rewriter applies catalog substitutions to files, snapshotting each file
// once per run before its first mutation.
type Rewriter struct {
	catalog *catalog.Catalog
	backups *backup.Registry
}

// 🏭 New creates a rewriter. The registry is shared across all fixer phases
// of a run so a file is never double-snapshotted.
func New(cat *catalog.Catalog, backups *backup.Registry) *Rewriter {
	return &Rewriter{
		catalog: cat,
		backups: backups,
	}
}

// 🏃 RewriteFile processes a single file:
//  1. read current content
//  2. apply every catalog rule in order, accumulating hit counts
//  3. if anything matched, snapshot the original and write the new content
//     back atomically; otherwise leave the file untouched
func (rw *Rewriter) RewriteFile(ctx context.Context, path string) Result {
	logger := zerolog.Ctx(ctx)

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("cannot read file")
		return Result{Path: path, Err: errors.Errorf("reading file: %w", err)}
	}

	rewritten, hits, total := rw.catalog.Apply(content)
	if total == 0 {
		logger.Debug().Str("path", path).Msg("no rules matched, file untouched")
		return Result{Path: path, RuleHits: hits}
	}

	backupPath, _, err := rw.backups.Snapshot(ctx, path, content)
	if err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("cannot snapshot file")
		return Result{Path: path, Err: errors.Errorf("snapshotting file: %w", err)}
	}

	if err := writeFileAtomic(path, rewritten); err != nil {
		// The original is intact: the write is the last step.
		logger.Warn().Str("path", path).Err(err).Msg("cannot write file")
		return Result{Path: path, BackupPath: backupPath, Err: errors.Errorf("writing file: %w", err)}
	}

	logger.Debug().Str("path", path).Int("changes", total).Msg("file rewritten")
	return Result{
		Path:       path,
		Changes:    total,
		RuleHits:   hits,
		BackupPath: backupPath,
	}
}

// ⚡ Batch rewrites every path with a bounded worker pool. Results come back
// in input order. workers <= 1 degenerates to the sequential loop; fan-out
// changes no observable behavior because files are independent.
func (rw *Rewriter) Batch(ctx context.Context, paths []string, workers int) []Result {
	results := make([]Result, len(paths))

	if workers <= 1 {
		for i, path := range paths {
			results[i] = rw.RewriteFile(ctx, path)
		}
		return results
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = rw.RewriteFile(ctx, path)
			return nil
		})
	}
	// Workers record failures in their Result; the group itself never errs.
	_ = g.Wait()

	return results
}

// writeFileAtomic writes content via a temp file and rename, preserving the
// original file's mode.
func writeFileAtomic(path string, content []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, mode); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
