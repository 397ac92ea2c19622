package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/domain"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Repository stores tasks, dependency edges and row shifts in SQLite.
type Repository struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL DEFAULT 'task',
			name TEXT NOT NULL,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			project TEXT NOT NULL DEFAULT '',
			order_key TEXT NOT NULL DEFAULT '',
			row_index INTEGER NOT NULL DEFAULT 0,
			display_order INTEGER NOT NULL DEFAULT 0,
			disabled INTEGER NOT NULL DEFAULT 0,
			info INTEGER NOT NULL DEFAULT 0,
			hide_children INTEGER NOT NULL DEFAULT 0,
			overlapping INTEGER NOT NULL DEFAULT 0,
			styles_json TEXT NOT NULL DEFAULT '{}',
			allowed_rows_json TEXT NOT NULL DEFAULT '[]',
			fields_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// depends_on_id is not a foreign key so imports may reference tasks in any order.
		`CREATE TABLE IF NOT EXISTS task_dependencies (
			task_id TEXT NOT NULL,
			depends_on_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY(task_id, depends_on_id),
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS row_shifts (
			row_index INTEGER NOT NULL,
			position INTEGER NOT NULL,
			start TEXT NOT NULL,
			finish TEXT NOT NULL,
			with_day_off INTEGER NOT NULL DEFAULT 0,
			next_day_end INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(row_index, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_row_order ON tasks(row_index, display_order, id);`,
		`CREATE INDEX IF NOT EXISTS idx_task_dependencies_depends_on ON task_dependencies(depends_on_id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	alters := []string{
		`ALTER TABLE tasks ADD COLUMN overlapping INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE tasks ADD COLUMN fields_json TEXT NOT NULL DEFAULT '{}'`,
	}
	for _, stmt := range alters {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil && !isDuplicateColumnErr(err) {
			return fmt.Errorf("migrate sqlite tasks: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, type, name, start_at, end_at, progress, status, project, order_key, row_index, display_order,
	disabled, info, hide_children, overlapping, styles_json, allowed_rows_json, fields_json, created_at, updated_at`

// CreateTask inserts t and its dependency edges.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) (err error) {
	enc, err := encodeTask(t)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks(`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		string(t.Type),
		t.Name,
		ts(t.Start),
		ts(t.End),
		t.Progress,
		string(t.Status),
		t.Project,
		t.OrderKey,
		t.Row,
		t.DisplayOrder,
		t.Disabled,
		t.Info,
		t.HideChildren,
		t.Overlapping,
		enc.styles,
		enc.allowedRows,
		enc.fields,
		ts(t.CreatedAt),
		ts(t.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if err = writeDependencies(ctx, tx, t.ID, t.Dependencies); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// UpdateTask overwrites every column of t and replaces its dependency edges.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) (err error) {
	enc, err := encodeTask(t)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks
		SET type = ?, name = ?, start_at = ?, end_at = ?, progress = ?, status = ?, project = ?, order_key = ?,
		    row_index = ?, display_order = ?, disabled = ?, info = ?, hide_children = ?, overlapping = ?,
		    styles_json = ?, allowed_rows_json = ?, fields_json = ?, updated_at = ?
		WHERE id = ?
	`,
		string(t.Type),
		t.Name,
		ts(t.Start),
		ts(t.End),
		t.Progress,
		string(t.Status),
		t.Project,
		t.OrderKey,
		t.Row,
		t.DisplayOrder,
		t.Disabled,
		t.Info,
		t.HideChildren,
		t.Overlapping,
		enc.styles,
		enc.allowedRows,
		enc.fields,
		ts(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, t.ID); err != nil {
		return err
	}
	if err = writeDependencies(ctx, tx, t.ID, t.Dependencies); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

func (r *Repository) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		return domain.Task{}, err
	}
	deps, err := r.dependencies(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	task.Dependencies = deps[task.ID]
	return task, nil
}

// ListTasks returns every task in row and display order.
func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY row_index ASC, display_order ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	deps, err := r.dependencies(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Dependencies = deps[out[i].ID]
	}
	return out, nil
}

// DeleteTask removes a task. Its own edges cascade; edges pointing at it are
// left to the caller.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// ReplaceShifts swaps the whole shift table for rows.
func (r *Repository) ReplaceShifts(ctx context.Context, rows []domain.RowShifts) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM row_shifts`); err != nil {
		return err
	}
	for _, row := range rows {
		for i, shift := range row.Shifts {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO row_shifts(row_index, position, start, finish, with_day_off, next_day_end)
				VALUES (?, ?, ?, ?, ?, ?)
			`, row.Row, i, shift.Start, shift.Finish, shift.WithDayOff, shift.NextDayEnd)
			if err != nil {
				return fmt.Errorf("insert shift row %d: %w", row.Row, err)
			}
		}
	}
	err = tx.Commit()
	return err
}

// ListShifts returns shifts grouped by row, rows ascending.
func (r *Repository) ListShifts(ctx context.Context) ([]domain.RowShifts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT row_index, start, finish, with_day_off, next_day_end
		FROM row_shifts
		ORDER BY row_index ASC, position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RowShifts{}
	for rows.Next() {
		var (
			row   int
			shift domain.Shift
		)
		if err := rows.Scan(&row, &shift.Start, &shift.Finish, &shift.WithDayOff, &shift.NextDayEnd); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].Row != row {
			out = append(out, domain.RowShifts{Row: row})
		}
		out[len(out)-1].Shifts = append(out[len(out)-1].Shifts, shift)
	}
	return out, rows.Err()
}

// dependencies loads every edge keyed by dependent task id.
func (r *Repository) dependencies(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT task_id, depends_on_id FROM task_dependencies ORDER BY task_id ASC, position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var taskID, dependsOn string
		if err := rows.Scan(&taskID, &dependsOn); err != nil {
			return nil, err
		}
		out[taskID] = append(out[taskID], dependsOn)
	}
	return out, rows.Err()
}

type execerContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeDependencies(ctx context.Context, execer execerContext, taskID string, deps []string) error {
	for i, dep := range deps {
		if _, err := execer.ExecContext(ctx, `
			INSERT INTO task_dependencies(task_id, depends_on_id, position) VALUES (?, ?, ?)
		`, taskID, dep, i); err != nil {
			return fmt.Errorf("insert dependency %s -> %s: %w", taskID, dep, err)
		}
	}
	return nil
}

type encodedTask struct {
	styles      string
	allowedRows string
	fields      string
}

func encodeTask(t domain.Task) (encodedTask, error) {
	styles, err := json.Marshal(t.Styles)
	if err != nil {
		return encodedTask{}, fmt.Errorf("encode styles_json: %w", err)
	}
	allowed := t.AllowedRows
	if allowed == nil {
		allowed = []domain.RowWindow{}
	}
	allowedRows, err := json.Marshal(allowed)
	if err != nil {
		return encodedTask{}, fmt.Errorf("encode allowed_rows_json: %w", err)
	}
	fields := t.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return encodedTask{}, fmt.Errorf("encode fields_json: %w", err)
	}
	return encodedTask{styles: string(styles), allowedRows: string(allowedRows), fields: string(fieldsJSON)}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (domain.Task, error) {
	var (
		t              domain.Task
		taskType       string
		status         string
		startRaw       string
		endRaw         string
		stylesRaw      string
		allowedRowsRaw string
		fieldsRaw      string
		createdRaw     string
		updatedRaw     string
	)
	if err := s.Scan(
		&t.ID,
		&taskType,
		&t.Name,
		&startRaw,
		&endRaw,
		&t.Progress,
		&status,
		&t.Project,
		&t.OrderKey,
		&t.Row,
		&t.DisplayOrder,
		&t.Disabled,
		&t.Info,
		&t.HideChildren,
		&t.Overlapping,
		&stylesRaw,
		&allowedRowsRaw,
		&fieldsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, app.ErrNotFound
		}
		return domain.Task{}, err
	}
	t.Type = domain.TaskType(taskType)
	t.Status = domain.Status(status)
	t.Start = parseTS(startRaw)
	t.End = parseTS(endRaw)
	t.CreatedAt = parseTS(createdRaw)
	t.UpdatedAt = parseTS(updatedRaw)
	if err := decodeJSONColumn(stylesRaw, "{}", &t.Styles); err != nil {
		return domain.Task{}, fmt.Errorf("decode task styles_json: %w", err)
	}
	if err := decodeJSONColumn(allowedRowsRaw, "[]", &t.AllowedRows); err != nil {
		return domain.Task{}, fmt.Errorf("decode task allowed_rows_json: %w", err)
	}
	if len(t.AllowedRows) == 0 {
		t.AllowedRows = nil
	}
	if err := decodeJSONColumn(fieldsRaw, "{}", &t.Fields); err != nil {
		return domain.Task{}, fmt.Errorf("decode task fields_json: %w", err)
	}
	if len(t.Fields) == 0 {
		t.Fields = nil
	}
	return t, nil
}

func decodeJSONColumn(raw, empty string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		raw = empty
	}
	return json.Unmarshal([]byte(raw), dst)
}

func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func isDuplicateColumnErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
