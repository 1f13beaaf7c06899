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

package backup

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔙 Rollback restores every file snapshotted by the given run, byte for
// byte. An empty runID means the most recent run. Per-file restore errors
// are recorded and the remaining files are still restored.
func Rollback(ctx context.Context, manifestPath, runID string) (restored int, failed []string, err error) {
	logger := zerolog.Ctx(ctx)

	runs, err := LoadRuns(manifestPath)
	if err != nil {
		return 0, nil, err
	}
	if len(runs) == 0 {
		return 0, nil, errors.New("no runs recorded in manifest")
	}

	var target *Run
	if runID == "" {
		target = &runs[0]
	} else {
		for i := range runs {
			if runs[i].RunID == runID {
				target = &runs[i]
				break
			}
		}
	}
	if target == nil {
		return 0, nil, errors.Errorf("run %s not found in manifest", runID)
	}

	for _, entry := range target.Entries {
		content, err := os.ReadFile(entry.BackupPath)
		if err != nil {
			logger.Warn().Str("backup", entry.BackupPath).Err(err).Msg("cannot read backup")
			failed = append(failed, entry.OriginalPath)
			continue
		}
		if got := hashContent(content); got != entry.ContentHash {
			logger.Warn().
				Str("backup", entry.BackupPath).
				Str("want", entry.ContentHash).
				Str("got", got).
				Msg("backup content hash mismatch, restoring anyway")
		}
		if err := os.WriteFile(entry.OriginalPath, content, 0644); err != nil {
			logger.Warn().Str("path", entry.OriginalPath).Err(err).Msg("cannot restore file")
			failed = append(failed, entry.OriginalPath)
			continue
		}
		logger.Debug().Str("path", entry.OriginalPath).Msg("restored from backup")
		restored++
	}

	return restored, failed, nil
}

// 🧹 Clean removes backup files through the manifest. With all set, every
// run is removed; otherwise only runs whose first snapshot is older than
// cutoff. The manifest is rewritten without the removed entries.
func Clean(ctx context.Context, manifestPath string, cutoff time.Time, all bool) (removed int, err error) {
	logger := zerolog.Ctx(ctx)

	runs, err := LoadRuns(manifestPath)
	if err != nil {
		return 0, err
	}

	var kept []Entry
	for _, run := range runs {
		drop := all || run.StartedAt.Before(cutoff)
		if !drop {
			kept = append(kept, run.Entries...)
			continue
		}
		for _, entry := range run.Entries {
			if err := os.Remove(entry.BackupPath); err != nil && !os.IsNotExist(err) {
				logger.Warn().Str("backup", entry.BackupPath).Err(err).Msg("cannot remove backup")
				kept = append(kept, entry)
				continue
			}
			removed++
		}
	}

	if err := rewriteManifest(manifestPath, kept); err != nil {
		return removed, err
	}
	return removed, nil
}

// rewriteManifest replaces the manifest content with the given entries.
func rewriteManifest(path string, entries []Entry) error {
	if len(entries) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Errorf("removing manifest: %w", err)
		}
		return nil
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Errorf("creating manifest: %w", err)
	}
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			f.Close()
			os.Remove(tmp)
			return errors.Errorf("encoding manifest entry: %w", err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			f.Close()
			os.Remove(tmp)
			return errors.Errorf("writing manifest: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Errorf("replacing manifest: %w", err)
	}
	return nil
}
