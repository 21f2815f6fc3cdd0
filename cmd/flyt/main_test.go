package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/flyt/internal/app"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("FLYT_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram represents fake program data used by this package.
type fakeProgram struct {
	runErr error
}

// Run runs the requested command flow.
func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// TestRunVersion verifies behavior for the covered scenario.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	err := run(context.Background(), []string{"--version"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), "flyt") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunStartsProgram verifies behavior for the covered scenario.
func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	programFactory = func(_ tea.Model) program {
		return fakeProgram{}
	}

	dbPath := filepath.Join(t.TempDir(), "flyt.db")
	cfgPath := filepath.Join(t.TempDir(), "missing.toml")
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

// TestRunInvalidFlag verifies behavior for the covered scenario.
func TestRunInvalidFlag(t *testing.T) {
	err := run(context.Background(), []string{"--definitely-not-a-flag"}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected flag parse error")
	}
}

// TestRunUnknownCommand verifies behavior for the covered scenario.
func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

// TestRunAddCommandCapturesTask verifies behavior for the covered scenario.
func TestRunAddCommandCapturesTask(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "flyt.db")
	cfgPath := filepath.Join(tmp, "missing.toml")

	var out strings.Builder
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "add", "Team", "meeting", "tomorrow", "at", "2pm"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(add) error = %v", err)
	}
	if !strings.Contains(out.String(), `added "Team meeting" to tomorrow`) {
		t.Fatalf("unexpected add output %q", out.String())
	}
	if !strings.Contains(out.String(), "14:00") {
		t.Fatalf("expected scheduled time in output, got %q", out.String())
	}
}

// TestRunSummaryCommandPrintsMarkdown verifies behavior for the covered scenario.
func TestRunSummaryCommandPrintsMarkdown(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "flyt.db")
	cfgPath := filepath.Join(tmp, "missing.toml")

	var out strings.Builder
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "summary"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(summary) error = %v", err)
	}
	if !strings.Contains(out.String(), "# Week of") {
		t.Fatalf("expected markdown heading, got %q", out.String())
	}
}

// TestRunExportCommandWritesSnapshot verifies behavior for the covered scenario.
func TestRunExportCommandWritesSnapshot(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "flyt.db")
	cfgPath := filepath.Join(tmp, "missing.toml")
	outPath := filepath.Join(tmp, "snapshot.json")
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "export", "--out", outPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if snap.Version != app.SnapshotVersion {
		t.Fatalf("unexpected snapshot version %q", snap.Version)
	}
	if len(snap.Tasks) != 0 {
		t.Fatalf("expected no tasks in empty export snapshot, got %d", len(snap.Tasks))
	}
}

// TestRunImportCommandReadsSnapshot verifies behavior for the covered scenario.
func TestRunImportCommandReadsSnapshot(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "flyt.db")
	cfgPath := filepath.Join(tmp, "missing.toml")

	now := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	snap := app.Snapshot{
		Version:    app.SnapshotVersion,
		ExportedAt: now,
		Tasks: []app.SnapshotTask{
			{
				ID:        "t-import",
				Title:     "Imported task",
				Status:    "today",
				Order:     1,
				Category:  "work",
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	inPath := filepath.Join(tmp, "snapshot.json")
	if err := os.WriteFile(inPath, encoded, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", inPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	var out strings.Builder
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "export", "--out", "-"}, &out, io.Discard); err != nil {
		t.Fatalf("run(export after import) error = %v", err)
	}
	if !strings.Contains(out.String(), "Imported task") {
		t.Fatalf("expected imported task in export, got %q", out.String())
	}
}

// TestRunImportRequiresInput verifies behavior for the covered scenario.
func TestRunImportRequiresInput(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "flyt.db")
	cfgPath := filepath.Join(tmp, "missing.toml")
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "--in is required") {
		t.Fatalf("expected missing input error, got %v", err)
	}
}

// TestRunConfigAndDBEnvOverrides verifies behavior for the covered scenario.
func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "env.db")
	cfgPath := filepath.Join(tmp, "env.toml")
	cfgContent := "[database]\npath = \"/tmp/ignore-me.db\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("FLYT_CONFIG", cfgPath)
	t.Setenv("FLYT_DB_PATH", dbPath)

	err := run(context.Background(), []string{"export", "--out", filepath.Join(tmp, "out.json")}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("run(export with env paths) error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db created at env path, stat error %v", err)
	}
}

// TestRunPathsCommand verifies behavior for the covered scenario.
func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	err := run(context.Background(), []string{"--app", "flytx", "--dev", "paths"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "app: flytx") {
		t.Fatalf("expected app name in paths output, got %q", output)
	}
	if !strings.Contains(output, "dev_mode: true") {
		t.Fatalf("expected dev mode in paths output, got %q", output)
	}
}

// TestParseBoolEnv verifies behavior for the covered scenario.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("FLYT_BOOL_TEST", "true")
	got, ok := parseBoolEnv("FLYT_BOOL_TEST")
	if !ok || !got {
		t.Fatalf("expected true bool env parse, got value=%t ok=%t", got, ok)
	}

	t.Setenv("FLYT_BOOL_TEST", "not-bool")
	_, ok = parseBoolEnv("FLYT_BOOL_TEST")
	if ok {
		t.Fatal("expected invalid bool env to return ok=false")
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies behavior for the covered scenario.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "flyt.db")
	cfgPath := filepath.Join(tmp, "config.toml")
	cfgContent := "[logging]\nlevel = \"loud\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "summary"}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected invalid logging level to fail startup")
	}
}
