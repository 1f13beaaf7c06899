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

// Package backup snapshots files before they are rewritten and tracks every
// snapshot in an append-only manifest, so backups can be enumerated, rolled
// back, and garbage collected instead of accumulating by convention.
package backup

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Suffix is appended to a file's path to form its backup sibling.
const Suffix = ".backup"

// ManifestName is the manifest file name inside the backup directory.
const ManifestName = "backups.jsonl"

// 📄 Entry is one manifest line: a single file snapshot taken during a run.
type Entry struct {
	RunID        string    `json:"run_id"`
	OriginalPath string    `json:"original_path"`
	BackupPath   string    `json:"backup_path"`
	ContentHash  string    `json:"content_hash"`
	Timestamp    time.Time `json:"timestamp"`
}

// 📦 Run summarizes all manifest entries sharing a run ID.
type Run struct {
	RunID     string
	StartedAt time.Time
	Entries   []Entry
}

// 🔒 Registry takes snapshots for a single run. It guarantees at most one
// backup per original path per run, even when several fixer phases touch the
// same file: the first snapshot wins and later phases see the path as
// already registered.
type Registry struct {
	runID        string
	manifestPath string

	mu   sync.Mutex
	seen map[string]string // original path -> backup path
}

// 🏭 NewRegistry creates a registry for a fresh run. dir is created if
// missing; the manifest inside it is appended to, never truncated.
func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Errorf("creating backup directory: %w", err)
	}
	return &Registry{
		runID:        uuid.NewString(),
		manifestPath: filepath.Join(dir, ManifestName),
		seen:         make(map[string]string),
	}, nil
}

// RunID returns this run's identifier.
func (r *Registry) RunID() string {
	return r.runID
}

// ManifestPath returns the manifest location.
func (r *Registry) ManifestPath() string {
	return r.manifestPath
}

// 📸 Snapshot writes a byte-for-byte copy of content next to path and
// records it in the manifest. If the path was already snapshotted during
// this run, the existing backup is returned untouched and created is false.
func (r *Registry) Snapshot(ctx context.Context, path string, content []byte) (backupPath string, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.seen[path]; ok {
		return existing, false, nil
	}

	backupPath = path + Suffix
	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return "", false, errors.Errorf("writing backup: %w", err)
	}

	entry := Entry{
		RunID:        r.runID,
		OriginalPath: path,
		BackupPath:   backupPath,
		ContentHash:  hashContent(content),
		Timestamp:    time.Now().UTC(),
	}
	if err := r.appendEntry(entry); err != nil {
		return "", false, err
	}

	r.seen[path] = backupPath
	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("backup", backupPath).
		Str("run_id", r.runID).
		Msg("snapshot taken")

	return backupPath, true, nil
}

// appendEntry appends one JSON line to the manifest.
func (r *Registry) appendEntry(entry Entry) error {
	f, err := os.OpenFile(r.manifestPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Errorf("encoding manifest entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Errorf("appending manifest entry: %w", err)
	}
	return nil
}

// 📖 LoadManifest reads every entry from a manifest file. A missing manifest
// yields an empty list.
func LoadManifest(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return nil, errors.Errorf("manifest line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Errorf("reading manifest: %w", err)
	}
	return entries, nil
}

// 📖 LoadRuns groups manifest entries by run, newest first.
func LoadRuns(path string) ([]Run, error) {
	entries, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Run)
	var order []string
	for _, entry := range entries {
		run, ok := byID[entry.RunID]
		if !ok {
			run = &Run{RunID: entry.RunID, StartedAt: entry.Timestamp}
			byID[entry.RunID] = run
			order = append(order, entry.RunID)
		}
		if entry.Timestamp.Before(run.StartedAt) {
			run.StartedAt = entry.Timestamp
		}
		run.Entries = append(run.Entries, entry)
	}

	runs := make([]Run, 0, len(order))
	for _, id := range order {
		runs = append(runs, *byID[id])
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// hashContent generates a SHA-256 hash of the content.
func hashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
