package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hylla/tidslinje/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/tidslinje.db")
	if cfg.Database.Path != "/tmp/tidslinje.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
	if !cfg.Chart.ShowAllArrows {
		t.Fatal("expected show_all_arrows enabled by default")
	}
	if got := cfg.TimeStep(); got != 24*time.Hour {
		t.Fatalf("unexpected time step %v", got)
	}
	if got := cfg.Layout().BarHeight(); got != 30 {
		t.Fatalf("unexpected bar height %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/tidslinje.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[database]
path = "/custom/tidslinje.db"

[logging]
level = "debug"

[chart]
view_mode = "quarter day"
column_width = 40
rtl = true
time_step_minutes = 60
show_all_arrows = false

[palette.bar]
background = "#101010"

[modes]
overdue = true

[batch]
field = "project"
value = "alpha"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/tidslinje.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.ViewMode() != domain.ViewModeQuarterDay {
		t.Fatalf("unexpected view mode %q", cfg.ViewMode())
	}
	layout := cfg.Layout()
	if layout.ColumnWidth != 40 || !layout.RTL || layout.RowHeight != 50 {
		t.Fatalf("unexpected layout %#v", layout)
	}
	if cfg.TimeStep() != time.Hour {
		t.Fatalf("unexpected time step %v", cfg.TimeStep())
	}
	if cfg.Chart.ShowAllArrows {
		t.Fatal("expected show_all_arrows disabled")
	}
	if cfg.Palette.Bar.Background != "#101010" {
		t.Fatalf("unexpected bar background %q", cfg.Palette.Bar.Background)
	}
	if cfg.Palette.Project.Background == "" {
		t.Fatal("expected untouched palette entries to keep defaults")
	}
	if !cfg.Modes.Overdue || cfg.Modes.BehindSchedule {
		t.Fatalf("unexpected modes %#v", cfg.Modes)
	}
	if cfg.Batch.Field != "project" || cfg.Batch.Value != "alpha" {
		t.Fatalf("unexpected batch %#v", cfg.Batch)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"level":       "[logging]\nlevel = \"loud\"\n",
		"view mode":   "[chart]\nview_mode = \"decade\"\n",
		"bar fill":    "[chart]\nbar_fill = 120\n",
		"time step":   "[chart]\ntime_step_minutes = 0\n",
		"batch field": "[batch]\nvalue = \"alpha\"\n",
		"endpoint":    "[server]\napi_endpoint = \"api\"\n",
		"db path":     "[database]\npath = \"  \"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/tidslinje.db")); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[chart\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := Load(path, Default("/tmp/tidslinje.db"))
	if err == nil || !strings.Contains(err.Error(), "decode toml") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
