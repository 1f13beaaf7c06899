package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFile(t *testing.T, reg *Registry, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, _, err := reg.Snapshot(context.Background(), path, []byte(content))
	require.NoError(t, err)
}

func TestRollback_LatestRun(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry(filepath.Join(dir, ".rolefix"))
	require.NoError(t, err)

	target := filepath.Join(dir, "roles.ts")
	snapshotFile(t, reg, target, "original")

	// Simulate the rewrite that followed the snapshot.
	require.NoError(t, os.WriteFile(target, []byte("rewritten"), 0644))

	restored, failed, err := Rollback(context.Background(), reg.ManifestPath(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Empty(t, failed)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestRollback_SpecificRun(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, ".rolefix")

	first, err := NewRegistry(backupDir)
	require.NoError(t, err)
	a := filepath.Join(dir, "a.ts")
	snapshotFile(t, first, a, "a original")
	require.NoError(t, os.WriteFile(a, []byte("a rewritten"), 0644))

	second, err := NewRegistry(backupDir)
	require.NoError(t, err)
	b := filepath.Join(dir, "b.ts")
	snapshotFile(t, second, b, "b original")
	require.NoError(t, os.WriteFile(b, []byte("b rewritten"), 0644))

	restored, failed, err := Rollback(context.Background(), first.ManifestPath(), first.RunID())
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Empty(t, failed)

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "a original", string(data))

	// The other run's file is untouched.
	data, err = os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "b rewritten", string(data))
}

func TestRollback_UnknownRun(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry(filepath.Join(dir, ".rolefix"))
	require.NoError(t, err)
	snapshotFile(t, reg, filepath.Join(dir, "a.ts"), "a")

	_, _, err = Rollback(context.Background(), reg.ManifestPath(), "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in manifest")
}

func TestRollback_EmptyManifest(t *testing.T) {
	_, _, err := Rollback(context.Background(), filepath.Join(t.TempDir(), "backups.jsonl"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no runs recorded")
}

func TestRollback_MissingBackupIsRecorded(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry(filepath.Join(dir, ".rolefix"))
	require.NoError(t, err)

	target := filepath.Join(dir, "roles.ts")
	snapshotFile(t, reg, target, "original")
	require.NoError(t, os.Remove(target + Suffix))

	restored, failed, err := Rollback(context.Background(), reg.ManifestPath(), "")
	require.NoError(t, err)
	assert.Zero(t, restored)
	assert.Equal(t, []string{target}, failed)
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, ".rolefix")

	reg, err := NewRegistry(backupDir)
	require.NoError(t, err)
	target := filepath.Join(dir, "roles.ts")
	snapshotFile(t, reg, target, "original")

	t.Run("recent_run_survives_cutoff", func(t *testing.T) {
		removed, err := Clean(context.Background(), reg.ManifestPath(), time.Now().Add(-time.Hour), false)
		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.FileExists(t, target+Suffix)
	})

	t.Run("all_removes_everything", func(t *testing.T) {
		removed, err := Clean(context.Background(), reg.ManifestPath(), time.Time{}, true)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.NoFileExists(t, target+Suffix)

		// Manifest is gone once empty.
		entries, err := LoadManifest(reg.ManifestPath())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
