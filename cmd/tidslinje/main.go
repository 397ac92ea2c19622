package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/glamour"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	serveradapter "github.com/hylla/tidslinje/internal/adapters/server"
	servercommon "github.com/hylla/tidslinje/internal/adapters/server/common"
	"github.com/hylla/tidslinje/internal/adapters/storage/sqlite"
	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/config"
	"github.com/hylla/tidslinje/internal/gantt"
	"github.com/hylla/tidslinje/internal/interaction"
	"github.com/hylla/tidslinje/internal/platform"
	"github.com/hylla/tidslinje/internal/tui"
	"github.com/spf13/cobra"
)

var version = "dev"

type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes one command line without fang's styled help and error output.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	flags := &globalFlags{appName: platform.DefaultAppName}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TIDSLINJE_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TIDSLINJE_APP_NAME")); envApp != "" {
		flags.appName = envApp
	}

	root := &cobra.Command{
		Use:           "tidslinje",
		Short:         "Interactive gantt timeline for the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "tui", func(rt *runtimeEnv) error {
				return runTUI(rt)
			})
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("tidslinje {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config TOML")
	pf.StringVar(&flags.dbPath, "db", "", "path to sqlite database")
	pf.StringVar(&flags.appName, "app", flags.appName, "application name for config/data path resolution")
	pf.BoolVar(&flags.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(flags, stdout),
		newServeCommand(flags, stderr),
		newExportCommand(flags, stdout, stderr),
		newImportCommand(flags, stdout, stderr),
		newReportCommand(flags, stdout, stderr),
	)
	return root
}

func newPathsCommand(flags *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: flags.appName,
				DevMode: flags.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", flags.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", flags.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

func newServeCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "serve", func(rt *runtimeEnv) error {
				cfg := serveradapter.Config{
					HTTPBind:      firstNonEmpty(httpBind, rt.cfg.Server.HTTPBind),
					APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
					ServerName:    flags.appName,
					ServerVersion: version,
				}
				rt.logger.Info("starting server", "http", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
				return serveCommandRunner(rt.ctx, cfg, serveradapter.Dependencies{
					Service: servercommon.NewAppServiceAdapter(rt.svc),
					Ready:   rt.repo.Ping,
					Logger:  rt.logger.sink(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (default from config)")
	return cmd
}

func newExportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks and shifts as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "export", func(rt *runtimeEnv) error {
				doc, err := rt.svc.Export(rt.ctx)
				if err != nil {
					return fmt.Errorf("export document: %w", err)
				}
				f, err := resolveFormat(format, outPath)
				if err != nil {
					return err
				}
				encoded, err := app.EncodeDocument(doc, f)
				if err != nil {
					return fmt.Errorf("encode document: %w", err)
				}
				if outPath == "-" {
					_, err = stdout.Write(encoded)
					return err
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				rt.logger.Info("export written", "path", outPath, "tasks", len(doc.Tasks))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from --out extension)")
	return cmd
}

func newImportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var inPath, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import tasks and shifts from a JSON or YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return fmt.Errorf("--in is required")
			}
			return withRuntime(cmd.Context(), flags, stderr, "import", func(rt *runtimeEnv) error {
				content, err := os.ReadFile(inPath)
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				f, err := resolveFormat(format, inPath)
				if err != nil {
					return err
				}
				doc, err := app.DecodeDocument(content, f)
				if err != nil {
					return fmt.Errorf("decode import file: %w", err)
				}
				res, err := rt.svc.Import(rt.ctx, doc)
				if err != nil {
					return fmt.Errorf("import document: %w", err)
				}
				_, _ = fmt.Fprintf(stdout, "created: %d\nupdated: %d\nshift rows: %d\n", res.Created, res.Updated, res.Shifts)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input document path")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from --in extension)")
	return cmd
}

func newReportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var raw bool
	var width int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the schedule status report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), flags, stderr, "report", func(rt *runtimeEnv) error {
				markdown, err := rt.svc.Report(rt.ctx)
				if err != nil {
					return fmt.Errorf("build report: %w", err)
				}
				if raw {
					_, err = io.WriteString(stdout, markdown)
					return err
				}
				renderer, err := glamour.NewTermRenderer(
					glamour.WithStandardStyle("dark"),
					glamour.WithWordWrap(width),
				)
				if err != nil {
					return fmt.Errorf("create markdown renderer: %w", err)
				}
				rendered, err := renderer.Render(markdown)
				if err != nil {
					return fmt.Errorf("render report: %w", err)
				}
				_, err = io.WriteString(stdout, rendered)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	cmd.Flags().IntVar(&width, "width", 100, "wrap width for rendered output")
	return cmd
}

// runtimeEnv is the resolved state one command runs against.
type runtimeEnv struct {
	ctx    context.Context
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service
}

// withRuntime resolves paths and config, opens storage, and runs fn with
// command flow logging around it.
func withRuntime(ctx context.Context, flags *globalFlags, stderr io.Writer, command string, fn func(*runtimeEnv) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: flags.appName,
		DevMode: flags.devMode,
	})
	if err != nil {
		return err
	}

	configPath := paths.ConfigPath
	if envCfg := strings.TrimSpace(os.Getenv("TIDSLINJE_CONFIG")); envCfg != "" {
		configPath = envCfg
	}
	if strings.TrimSpace(flags.configPath) != "" {
		configPath = flags.configPath
	}
	dbOverride := strings.TrimSpace(os.Getenv("TIDSLINJE_DB_PATH"))
	if strings.TrimSpace(flags.dbPath) != "" {
		dbOverride = flags.dbPath
	}

	cfg, err := config.Load(configPath, config.Default(paths.DBPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverride != "" {
		cfg.Database.Path = dbOverride
	}

	logger, err := newRuntimeLogger(stderr, flags.appName, flags.devMode, cfg.Logging, time.Now)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Close()
	}()
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", flags.appName, "dev_mode", flags.devMode, "config_path", configPath)
	logger.Info("configuration loaded", "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level, "view_mode", cfg.Chart.ViewMode)
	if devLog := logger.DevLogPath(); devLog != "" {
		logger.Info("dev file logging enabled", "path", devLog)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	logger.Info("opening sqlite repository", "path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "path", cfg.Database.Path, "err", err)
		return err
	}
	defer func() {
		_ = repo.Close()
	}()
	logger.Info("sqlite repository ready", "path", cfg.Database.Path)

	svc := app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{
		Chart:  chartOptions(cfg),
		Logger: logger.sink(),
	})

	logger.Info("command flow start", "command", command)
	if err := fn(&runtimeEnv{ctx: ctx, cfg: cfg, logger: logger, repo: repo, svc: svc}); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

func runTUI(rt *runtimeEnv) error {
	m := tui.NewModel(rt.svc,
		tui.WithKeys(tui.KeyConfig{
			Search:   rt.cfg.Keys.Search,
			Copy:     rt.cfg.Keys.Copy,
			Link:     rt.cfg.Keys.Link,
			ViewMode: rt.cfg.Keys.ViewMode,
		}),
		tui.WithLogger(rt.logger.sink()),
	)
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	return nil
}

// chartOptions maps the chart sections of cfg onto gantt options.
func chartOptions(cfg config.Config) gantt.Options {
	opts := gantt.DefaultOptions()
	opts.Layout = cfg.Layout()
	opts.Palette = cfg.Palette
	opts.ViewMode = cfg.ViewMode()
	opts.PreSteps = cfg.Chart.PreSteps
	if step := cfg.TimeStep(); step > 0 {
		opts.TimeStep = step
	}
	opts.ShowAllArrows = cfg.Chart.ShowAllArrows
	opts.Modes = gantt.Modes{
		Overdue:        cfg.Modes.Overdue,
		BehindSchedule: cfg.Modes.BehindSchedule,
	}
	opts.Batch = interaction.FieldFilter{Field: cfg.Batch.Field, Value: cfg.Batch.Value}
	return opts
}

func resolveFormat(raw, path string) (app.Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return app.FormatForPath(path), nil
	case "json":
		return app.FormatJSON, nil
	case "yaml", "yml":
		return app.FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", raw)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseBoolEnv reports the boolean value of an env var and whether it was set.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
	level          charmLog.Level
	appName        string
	consoleOut     io.Writer
	fileOut        io.Writer
}

func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})
	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
		level:          level,
		appName:        appName,
		consoleOut:     stderr,
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	devLogPath, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	logger.fileOut = logFile
	return logger, nil
}

func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives events. The TUI
// owns the terminal, so it runs with the console muted.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil || sink == nil {
		return false
	}
	return sink != l.consoleSink || l.consoleEnabled
}

// sink returns one *log.Logger that forwards to every enabled sink, for
// packages that take a plain charm logger.
func (l *runtimeLogger) sink() *charmLog.Logger {
	if l == nil {
		return charmLog.New(io.Discard)
	}
	return charmLog.NewWithOptions(sinkWriter{l}, charmLog.Options{
		Level:           l.level,
		Prefix:          l.appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
}

// sinkWriter copies formatted log lines to the enabled sink outputs.
type sinkWriter struct {
	l *runtimeLogger
}

func (w sinkWriter) Write(p []byte) (int, error) {
	if w.l.consoleEnabled && w.l.consoleOut != nil {
		if _, err := w.l.consoleOut.Write(p); err != nil {
			return 0, err
		}
	}
	if w.l.fileOut != nil {
		if _, err := w.l.fileOut.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Debug(msg, keyvals...) })
}

func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Info(msg, keyvals...) })
}

func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Warn(msg, keyvals...) })
}

func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.each(func(s *charmLog.Logger) { s.Error(msg, keyvals...) })
}

func (l *runtimeLogger) each(fn func(*charmLog.Logger)) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if l.shouldLogToSink(sink) {
			fn(sink)
		}
	}
}

// devLogFilePath resolves a workspace-local dev log file path for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".tidslinje/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	fileName := fmt.Sprintf("%s-%s.log", sanitizeLogFileStem(appName), now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// workspaceRootFrom walks up to the nearest go.mod or .git directory.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	dir := start
	for {
		if hasWorkspaceMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

func hasWorkspaceMarker(dir string) bool {
	for _, marker := range []string{"go.mod", ".git"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

func sanitizeLogFileStem(appName string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem := strings.Trim(replacer.Replace(strings.TrimSpace(appName)), "-")
	if stem == "" {
		return platform.DefaultAppName
	}
	return stem
}
