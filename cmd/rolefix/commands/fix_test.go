package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildra/rolefix/cmd/rolefix/opts"
	"github.com/buildra/rolefix/pkg/backup"
	"github.com/buildra/rolefix/pkg/config"
	"github.com/buildra/rolefix/pkg/log"
)

func testOpts(t *testing.T, dir string) *opts.RootOpts {
	t.Helper()

	cfg := &config.Config{
		Roots:      []string{dir},
		BackupDir:  filepath.Join(dir, ".rolefix"),
		ReportPath: filepath.Join(dir, "rolefix-report.json"),
	}
	require.NoError(t, cfg.Validate())

	cat, err := cfg.BuildCatalog()
	require.NoError(t, err)

	return &opts.RootOpts{
		Config:     cfg,
		Catalog:    cat,
		UserLogger: log.NewUserLogger(context.Background()),
	}
}

func TestFixCmd(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "roles.ts")
	require.NoError(t, os.WriteFile(target, []byte("const role = 'general_foreman'"), 0644))
	clean := filepath.Join(dir, "clean.ts")
	require.NoError(t, os.WriteFile(clean, []byte("const role = 'supervisor'"), 0644))

	o := testOpts(t, dir)
	cmd := NewFixCmd(o)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	// Matched file rewritten onto the canonical role.
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "const role = 'supervisor'", string(data))
	assert.FileExists(t, target+backup.Suffix)

	// Clean file untouched, no backup.
	assert.NoFileExists(t, clean+backup.Suffix)

	// Report artifact written.
	assert.FileExists(t, o.Config.ReportPath)
}

func TestFixCmd_DryRun(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "roles.ts")
	require.NoError(t, os.WriteFile(target, []byte("const role = 'general_foreman'"), 0644))

	o := testOpts(t, dir)
	cmd := NewFixCmd(o)
	cmd.SetArgs([]string{"--dry-run"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	// Nothing written, nothing snapshotted.
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "const role = 'general_foreman'", string(data))
	assert.NoFileExists(t, target+backup.Suffix)
}

func TestFixCmd_UnreadableFileFailsRun(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are not enforced for root")
	}

	dir := t.TempDir()
	for _, name := range []string{"a.ts", "c.ts"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("role: 'foreman'"), 0644))
	}
	locked := filepath.Join(dir, "b.ts")
	require.NoError(t, os.WriteFile(locked, []byte("role: 'foreman'"), 0644))
	require.NoError(t, os.Chmod(locked, 0000))

	o := testOpts(t, dir)
	cmd := NewFixCmd(o)
	cmd.SetArgs([]string{})

	// The batch finishes the readable files but the run reports failure.
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors")

	for _, name := range []string{"a.ts", "c.ts"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, "role: 'supervisor'", string(data))
	}
}

func TestRollbackCmd(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "roles.ts")
	require.NoError(t, os.WriteFile(target, []byte("const role = 'bookkeeper'"), 0644))

	o := testOpts(t, dir)

	fix := NewFixCmd(o)
	fix.SetArgs([]string{})
	require.NoError(t, fix.ExecuteContext(context.Background()))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "const role = 'finance'", string(data))

	rollback := NewRollbackCmd(o)
	rollback.SetArgs([]string{})
	require.NoError(t, rollback.ExecuteContext(context.Background()))

	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "const role = 'bookkeeper'", string(data))
}
