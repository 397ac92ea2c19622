// Package config loads the TOML runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Chart    ChartConfig    `toml:"chart"`
	Palette  bars.Palette   `toml:"palette"`
	Modes    ModesConfig    `toml:"modes"`
	Batch    BatchConfig    `toml:"batch"`
	Server   ServerConfig   `toml:"server"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the extra logfmt sink written in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ChartConfig struct {
	ViewMode        string  `toml:"view_mode"`
	ColumnWidth     float64 `toml:"column_width"`
	RowHeight       float64 `toml:"row_height"`
	BarFill         float64 `toml:"bar_fill"` // percent of row height
	CornerRadius    float64 `toml:"corner_radius"`
	HandleWidth     float64 `toml:"handle_width"`
	ArrowIndent     float64 `toml:"arrow_indent"`
	RTL             bool    `toml:"rtl"`
	TimeStepMinutes int     `toml:"time_step_minutes"`
	PreSteps        int     `toml:"pre_steps"`
	ShowAllArrows   bool    `toml:"show_all_arrows"`
}

type ModesConfig struct {
	Overdue        bool `toml:"overdue"`
	BehindSchedule bool `toml:"behind_schedule"`
}

// BatchConfig moves every task whose field equals value together.
type BatchConfig struct {
	Field string `toml:"field"`
	Value string `toml:"value"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type KeyConfig struct {
	Search   string `toml:"search"`
	Copy     string `toml:"copy"`
	Link     string `toml:"link"`
	ViewMode string `toml:"view_mode"`
}

var logLevels = []string{"debug", "info", "warn", "error", "fatal"}

func Default(dbPath string) Config {
	layout := bars.DefaultLayout()
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".tidslinje/log",
			},
		},
		Chart: ChartConfig{
			ViewMode:        string(domain.ViewModeDay),
			ColumnWidth:     layout.ColumnWidth,
			RowHeight:       layout.RowHeight,
			BarFill:         layout.BarFill,
			CornerRadius:    layout.CornerRadius,
			HandleWidth:     layout.HandleWidth,
			ArrowIndent:     layout.ArrowIndent,
			TimeStepMinutes: 24 * 60,
			PreSteps:        1,
			ShowAllArrows:   true,
		},
		Palette: bars.DefaultPalette(),
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Keys: KeyConfig{
			Search:   "/",
			Copy:     "y",
			Link:     "l",
			ViewMode: "v",
		},
	}
}

// Load reads path over defaults. A missing or empty file keeps the defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	level := strings.TrimSpace(strings.ToLower(c.Logging.Level))
	if !slices.Contains(logLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if _, err := domain.ParseViewMode(c.Chart.ViewMode); err != nil {
		return fmt.Errorf("invalid chart.view_mode: %q", c.Chart.ViewMode)
	}
	if c.Chart.ColumnWidth <= 0 {
		return errors.New("chart.column_width must be > 0")
	}
	if c.Chart.RowHeight <= 0 {
		return errors.New("chart.row_height must be > 0")
	}
	if c.Chart.BarFill <= 0 || c.Chart.BarFill > 100 {
		return fmt.Errorf("chart.bar_fill must be in (0, 100], got %v", c.Chart.BarFill)
	}
	if c.Chart.HandleWidth < 0 || c.Chart.CornerRadius < 0 || c.Chart.ArrowIndent < 0 {
		return errors.New("chart.handle_width, chart.corner_radius and chart.arrow_indent must be >= 0")
	}
	if c.Chart.TimeStepMinutes <= 0 {
		return errors.New("chart.time_step_minutes must be > 0")
	}
	if c.Chart.PreSteps < 0 {
		return errors.New("chart.pre_steps must be >= 0")
	}

	if strings.TrimSpace(c.Batch.Value) != "" && strings.TrimSpace(c.Batch.Field) == "" {
		return errors.New("batch.field is required when batch.value is set")
	}

	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	for name, endpoint := range map[string]string{"server.api_endpoint": c.Server.APIEndpoint, "server.mcp_endpoint": c.Server.MCPEndpoint} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with '/': %q", name, endpoint)
		}
	}
	return nil
}

// Layout maps the chart section into bar geometry.
func (c Config) Layout() bars.Layout {
	return bars.Layout{
		ColumnWidth:  c.Chart.ColumnWidth,
		RowHeight:    c.Chart.RowHeight,
		BarFill:      c.Chart.BarFill,
		CornerRadius: c.Chart.CornerRadius,
		HandleWidth:  c.Chart.HandleWidth,
		ArrowIndent:  c.Chart.ArrowIndent,
		RTL:          c.Chart.RTL,
	}
}

// ViewMode parses the configured view mode, falling back to Day.
func (c Config) ViewMode() domain.ViewMode {
	mode, err := domain.ParseViewMode(c.Chart.ViewMode)
	if err != nil {
		return domain.ViewModeDay
	}
	return mode
}

func (c Config) TimeStep() time.Duration {
	return time.Duration(c.Chart.TimeStepMinutes) * time.Minute
}
