package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	serveradapter "github.com/hylla/tidslinje/internal/adapters/server"
	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/config"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/tui"
)

func TestMain(m *testing.M) {
	_ = os.Setenv("TIDSLINJE_DEV_MODE", "false")
	os.Exit(m.Run())
}

type fakeProgram struct {
	runErr error
}

func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

const planJSON = `{
  "version": "tidslinje.v1",
  "tasks": [
    {"id": "design", "name": "Design", "start": "2026-03-02T00:00:00Z", "end": "2026-03-04T00:00:00Z", "progress": 40, "row": 0},
    {"id": "build", "name": "Build", "start": "2026-03-04T00:00:00Z", "end": "2026-03-09T00:00:00Z", "row": 1, "dependencies": ["design"]}
  ]
}`

// testArgs returns the persistent flags pointing at a throwaway workspace.
func testArgs(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	return dir, []string{
		"--db", filepath.Join(dir, "tidslinje.db"),
		"--config", filepath.Join(dir, "config.toml"),
	}
}

func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), "tidslinje") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	var started tea.Model
	programFactory = func(m tea.Model) program {
		started = m
		return fakeProgram{}
	}

	_, args := testArgs(t)
	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, ok := started.(tui.Model); !ok {
		t.Fatalf("expected tui.Model to start, got %T", started)
	}
}

func TestRunProgramErrorIsWrapped(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program {
		return fakeProgram{runErr: io.ErrUnexpectedEOF}
	}

	_, args := testArgs(t)
	err := run(context.Background(), args, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "run tui program") {
		t.Fatalf("expected wrapped tui error, got %v", err)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestRunInvalidFlag(t *testing.T) {
	if err := run(context.Background(), []string{"--nope"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected flag parse error")
	}
}

func TestRunImportThenExport(t *testing.T) {
	dir, args := testArgs(t)
	inPath := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(inPath, []byte(planJSON), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var importOut strings.Builder
	if err := run(context.Background(), append(args, "import", "--in", inPath), &importOut, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}
	if !strings.Contains(importOut.String(), "created: 2") {
		t.Fatalf("expected import summary, got %q", importOut.String())
	}

	outPath := filepath.Join(dir, "out", "plan.yaml")
	if err := run(context.Background(), append(args, "export", "--out", outPath), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	doc, err := app.DecodeDocument(content, app.FormatYAML)
	if err != nil {
		t.Fatalf("DecodeDocument() error = %v", err)
	}
	if len(doc.Tasks) != 2 {
		t.Fatalf("expected 2 exported tasks, got %d", len(doc.Tasks))
	}
	var build domain.TaskInput
	for _, task := range doc.Tasks {
		if task.ID == "build" {
			build = task
		}
	}
	if len(build.Dependencies) != 1 || build.Dependencies[0] != "design" {
		t.Fatalf("expected build to depend on design, got %#v", build.Dependencies)
	}
}

func TestRunExportToStdoutAsJSON(t *testing.T) {
	_, args := testArgs(t)
	var out bytes.Buffer
	if err := run(context.Background(), append(args, "export", "--format", "json"), &out, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	var doc app.Document
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("expected JSON on stdout, got %q: %v", out.String(), err)
	}
}

func TestRunImportErrors(t *testing.T) {
	dir, args := testArgs(t)
	if err := run(context.Background(), append(args, "import"), io.Discard, io.Discard); err == nil {
		t.Fatal("expected error without --in")
	}
	if err := run(context.Background(), append(args, "import", "--in", filepath.Join(dir, "missing.json")), io.Discard, io.Discard); err == nil {
		t.Fatal("expected error for missing input file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := run(context.Background(), append(args, "import", "--in", bad), io.Discard, io.Discard); err == nil {
		t.Fatal("expected decode error")
	}
	if err := run(context.Background(), append(args, "export", "--format", "xml"), io.Discard, io.Discard); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestRunReportRaw(t *testing.T) {
	dir, args := testArgs(t)
	inPath := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(inPath, []byte(planJSON), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := run(context.Background(), append(args, "import", "--in", inPath), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	var out strings.Builder
	if err := run(context.Background(), append(args, "report", "--raw"), &out, io.Discard); err != nil {
		t.Fatalf("run(report) error = %v", err)
	}
	if !strings.Contains(out.String(), "Design") || !strings.Contains(out.String(), "Build") {
		t.Fatalf("expected report to list tasks, got %q", out.String())
	}
}

func TestRunServeUsesConfigDefaults(t *testing.T) {
	origRunner := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = origRunner })

	var got serveradapter.Config
	var deps serveradapter.Dependencies
	serveCommandRunner = func(_ context.Context, cfg serveradapter.Config, d serveradapter.Dependencies) error {
		got = cfg
		deps = d
		return nil
	}

	dir, args := testArgs(t)
	cfgPath := filepath.Join(dir, "config.toml")
	content := "[server]\nhttp_bind = \"127.0.0.1:9999\"\napi_endpoint = \"/api/v2\"\nmcp_endpoint = \"/mcp\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := run(context.Background(), append(args, "serve", "--mcp-endpoint", "/agents"), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(serve) error = %v", err)
	}
	if got.HTTPBind != "127.0.0.1:9999" || got.APIEndpoint != "/api/v2" {
		t.Fatalf("expected config server values, got %#v", got)
	}
	if got.MCPEndpoint != "/agents" {
		t.Fatalf("expected flag to override mcp endpoint, got %q", got.MCPEndpoint)
	}
	if got.ServerVersion != version {
		t.Fatalf("expected server version %q, got %q", version, got.ServerVersion)
	}
	if deps.Service == nil || deps.Ready == nil || deps.Logger == nil {
		t.Fatalf("expected populated dependencies, got %#v", deps)
	}
}

func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--app", "tidslinje-test", "paths"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	got := out.String()
	for _, want := range []string{"app: tidslinje-test", "dev_mode: false", "config:", "data_dir:", "db:"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in paths output, got %q", want, got)
		}
	}
}

func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "env.db")
	t.Setenv("TIDSLINJE_DB_PATH", dbPath)
	t.Setenv("TIDSLINJE_CONFIG", filepath.Join(dir, "config.toml"))
	if err := run(context.Background(), nil, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite db at env path, stat error = %v", err)
	}
}

func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	dir, args := testArgs(t)
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	err := run(context.Background(), append(args, "report"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging level error, got %v", err)
	}
}

func TestRunTUIModeWritesRuntimeLogsToFileOnly(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	dir, args := testArgs(t)
	logDir := filepath.Join(dir, "logs")
	cfgPath := filepath.Join(dir, "config.toml")
	content := "[logging]\nlevel = \"debug\"\n[logging.dev_file]\nenabled = true\ndir = \"" + filepath.ToSlash(logDir) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var stderr strings.Builder
	if err := run(context.Background(), append(args, "--dev"), io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected muted console in tui mode, got %q", stderr.String())
	}
	entries, err := os.ReadDir(logDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one dev log file, got %v (err %v)", entries, err)
	}
	logged, err := os.ReadFile(filepath.Join(logDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(logged), "starting tui program loop") {
		t.Fatalf("expected tui startup in dev log, got %q", string(logged))
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("TIDSLINJE_TEST_BOOL", "true")
	if v, ok := parseBoolEnv("TIDSLINJE_TEST_BOOL"); !ok || !v {
		t.Fatalf("expected true/ok, got %t/%t", v, ok)
	}
	t.Setenv("TIDSLINJE_TEST_BOOL", "maybe")
	if _, ok := parseBoolEnv("TIDSLINJE_TEST_BOOL"); ok {
		t.Fatal("expected invalid bool to be ignored")
	}
	t.Setenv("TIDSLINJE_TEST_BOOL", "")
	if _, ok := parseBoolEnv("TIDSLINJE_TEST_BOOL"); ok {
		t.Fatal("expected empty value to be ignored")
	}
}

func TestChartOptionsMapsConfig(t *testing.T) {
	cfg := config.Default("/tmp/tidslinje.db")
	cfg.Chart.ViewMode = string(domain.ViewModeWeek)
	cfg.Chart.RTL = true
	cfg.Chart.TimeStepMinutes = 60
	cfg.Modes.Overdue = true
	cfg.Batch = config.BatchConfig{Field: "crew", Value: "a"}

	opts := chartOptions(cfg)
	if opts.ViewMode != domain.ViewModeWeek {
		t.Fatalf("expected week view, got %q", opts.ViewMode)
	}
	if !opts.Layout.RTL {
		t.Fatal("expected rtl layout")
	}
	if opts.TimeStep != time.Hour {
		t.Fatalf("expected one hour step, got %v", opts.TimeStep)
	}
	if !opts.Modes.Overdue || opts.Modes.BehindSchedule {
		t.Fatalf("unexpected modes %#v", opts.Modes)
	}
	if !opts.Batch.Active() || opts.Batch.Value != "a" {
		t.Fatalf("unexpected batch filter %#v", opts.Batch)
	}
}

func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	cfg := config.Default("/tmp/tidslinje.db").Logging

	logger, err := newRuntimeLogger(&console, "tidslinje", false, cfg, func() time.Time {
		return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	logger.sink().Info("shared during")
	logger.SetConsoleEnabled(true)
	logger.sink().Info("shared after")

	out := console.String()
	if !strings.Contains(out, "before") || !strings.Contains(out, "shared after") {
		t.Fatalf("expected enabled console logs, got %q", out)
	}
	if strings.Contains(out, "during") {
		t.Fatalf("expected muted console log to omit 'during', got %q", out)
	}
}

func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); got != root {
		t.Fatalf("workspaceRootFrom() = %q, want %q", got, root)
	}
}

func TestDevLogFilePathUsesDayStamp(t *testing.T) {
	dir := t.TempDir()
	got, err := devLogFilePath(dir, "tids linje", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	if want := filepath.Join(dir, "tids-linje-20260302.log"); got != want {
		t.Fatalf("devLogFilePath() = %q, want %q", got, want)
	}
	if sanitizeLogFileStem("  ") != "tidslinje" {
		t.Fatalf("expected default stem for blank app name")
	}
}
