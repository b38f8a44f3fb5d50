package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releaseYAML = `
name: Release
schedule:
  start: 2026-01-05T00:00:00Z
  hours_per_period: 10
  periods: 4
tasks:
  - name: Code
    plan_minutes: 240
    completed: 2026-01-06T12:00:00Z
  - name: Test
    plan_minutes: 600
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("EVTRACK_CONFIG_PATH", "")
	t.Setenv("EVTRACK_DB_PATH", filepath.Join(dir, "data", "evtrack.db"))
	t.Setenv("EVTRACK_LOG_LEVEL", "error")
	t.Setenv("EVTRACK_TEXTFILE_PATH", filepath.Join(dir, "evtrack.prom"))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportLogRecalc(t *testing.T) {
	dir := setupEnv(t)
	defPath := filepath.Join(dir, "release.yaml")
	require.NoError(t, os.WriteFile(defPath, []byte(releaseYAML), 0o644))

	out, err := run(t, "import", defPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported Release (data)")

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Release")

	out, err = run(t, "log", "Release", "/Code", "90", "--start", "2026-01-06T09:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "/Code")

	out, err = run(t, "timelog", "Release")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-01-06 09:00")

	out, err = run(t, "recalc", "Release", "--as-of", "2026-01-12", "--json")
	require.NoError(t, err)
	var snap tasklist.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "Release", snap.Name)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, "/Code", snap.Tasks[0].Path)
	assert.InDelta(t, 90.0, snap.Tree.ActualMinutes, 1e-9)
	assert.InDelta(t, 840.0, snap.Tree.PlanMinutes, 1e-9)

	out, err = run(t, "recalc", "Release", "--as-of", "2026-01-12", "--style", "full")
	require.NoError(t, err)
	assert.Contains(t, out, "Release (data)")
	assert.Contains(t, out, "Percent Complete")

	prom, err := os.ReadFile(filepath.Join(dir, "evtrack.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "evtrack_recalculations_total")
}

func TestRollupAcrossRuns(t *testing.T) {
	dir := setupEnv(t)
	release := filepath.Join(dir, "release.yaml")
	require.NoError(t, os.WriteFile(release, []byte(releaseYAML), 0o644))
	program := filepath.Join(dir, "program.yaml")
	require.NoError(t, os.WriteFile(program, []byte("name: Program\nrollup: [Release, Later]\n"), 0o644))

	_, err := run(t, "import", program)
	require.NoError(t, err)
	out, err := run(t, "add-file", release)
	require.NoError(t, err)
	assert.Contains(t, out, "added Release")

	out, err = run(t, "recalc", "Program", "--as-of", "2026-01-12", "--json")
	require.NoError(t, err)
	var snap tasklist.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, tasklist.KindRollup, snap.Kind)
	require.NotNil(t, snap.Tree)
	require.Len(t, snap.Tree.Children, 1)
	assert.Equal(t, "Release", snap.Tree.Children[0].Name)

	_, err = run(t, "log", "Release", "/Code", "10")
	require.ErrorIs(t, err, tasklist.ErrNotLoggable)

	_, err = run(t, "delete", "Program")
	require.NoError(t, err)
	_, err = run(t, "recalc", "Program")
	require.ErrorIs(t, err, tasklist.ErrTaskListNotFound)
}

func TestInvalidInput(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "log", "Release", "/Code", "ninety")
	require.Error(t, err)

	_, err = run(t, "recalc", "Release", "--style", "loud")
	require.Error(t, err)

	_, err = run(t, "log", "Release", "/Code", "5", "--start", "soon")
	require.Error(t, err)

	t.Setenv("EVTRACK_FORECAST_METHOD", "astrology")
	_, err = run(t, "list")
	require.Error(t, err)
}

func TestLogFileWriterTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "evtrack.log")
	w, file, err := newLogFileWriter(path)
	require.NoError(t, err)
	defer file.Close()

	chunk := bytes.Repeat([]byte("x"), 1<<20)
	for range 7 {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(maxLogBytes))
}
