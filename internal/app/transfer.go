package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/tidslinje/internal/domain"
	"gopkg.in/yaml.v3"
)

// TransferVersion tags import and export documents.
const TransferVersion = "tidslinje.v1"

// Format is the encoding of a transfer document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the import/export file.
type Document struct {
	Version    string             `json:"version" yaml:"version"`
	ExportedAt time.Time          `json:"exported_at,omitzero" yaml:"exported_at,omitempty"`
	Tasks      []domain.TaskInput `json:"tasks" yaml:"tasks"`
	Shifts     []domain.RowShifts `json:"shifts,omitempty" yaml:"shifts,omitempty"`
}

// DecodeDocument parses content in format.
func DecodeDocument(content []byte, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidImport, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(content))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: decode json: %v", ErrInvalidImport, err)
		}
	}
	if doc.Version != "" && doc.Version != TransferVersion {
		return Document{}, fmt.Errorf("%w: unsupported version %q", ErrInvalidImport, doc.Version)
	}
	return doc, nil
}

// EncodeDocument renders doc in format.
func EncodeDocument(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		encoded, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(encoded, '\n'), nil
	}
}

// ImportResult counts what an import changed.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Shifts  int `json:"shifts"`
}

// Import upserts every task of doc. The whole document is validated before
// anything is written.
func (s *Service) Import(ctx context.Context, doc Document) (ImportResult, error) {
	now := s.clock()
	existing, err := s.repo.ListTasks(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	known := make(map[string]domain.Task, len(existing))
	graph := make(map[string][]string, len(existing)+len(doc.Tasks))
	for _, task := range existing {
		known[task.ID] = task
		graph[task.ID] = task.Dependencies
	}

	tasks := make([]domain.Task, 0, len(doc.Tasks))
	seen := map[string]struct{}{}
	for i, in := range doc.Tasks {
		if strings.TrimSpace(in.ID) == "" {
			in.ID = s.idGen()
		}
		task, err := domain.NewTask(in, now)
		if err != nil {
			return ImportResult{}, fmt.Errorf("%w: tasks[%d]: %w", ErrInvalidImport, i, err)
		}
		if _, dup := seen[task.ID]; dup {
			return ImportResult{}, fmt.Errorf("%w: tasks[%d]: duplicate id %s", ErrInvalidImport, i, task.ID)
		}
		seen[task.ID] = struct{}{}
		if prev, ok := known[task.ID]; ok {
			task.CreatedAt = prev.CreatedAt
		}
		graph[task.ID] = task.Dependencies
		tasks = append(tasks, task)
	}
	if id, ok := findCycle(graph); ok {
		return ImportResult{}, fmt.Errorf("%w: through %s", ErrDependencyCycle, id)
	}
	for i, row := range doc.Shifts {
		for _, shift := range row.Shifts {
			if err := shift.Validate(); err != nil {
				return ImportResult{}, fmt.Errorf("%w: shifts[%d]: %w", ErrInvalidImport, i, err)
			}
		}
	}

	var result ImportResult
	for _, task := range tasks {
		if _, ok := known[task.ID]; ok {
			if err := s.repo.UpdateTask(ctx, task); err != nil {
				return result, fmt.Errorf("update task %s: %w", task.ID, err)
			}
			result.Updated++
			continue
		}
		if err := s.repo.CreateTask(ctx, task); err != nil {
			return result, fmt.Errorf("create task %s: %w", task.ID, err)
		}
		result.Created++
	}
	if len(doc.Shifts) > 0 {
		if err := s.repo.ReplaceShifts(ctx, doc.Shifts); err != nil {
			return result, fmt.Errorf("replace shifts: %w", err)
		}
		result.Shifts = len(doc.Shifts)
	}
	s.logger.Info("import complete", "created", result.Created, "updated", result.Updated, "shift_rows", result.Shifts)
	return result, nil
}

// Export captures every task and shift.
func (s *Service) Export(ctx context.Context) (Document, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return Document{}, err
	}
	shifts, err := s.repo.ListShifts(ctx)
	if err != nil {
		return Document{}, err
	}
	doc := Document{
		Version:    TransferVersion,
		ExportedAt: s.clock().UTC(),
		Tasks:      make([]domain.TaskInput, 0, len(tasks)),
		Shifts:     shifts,
	}
	for _, task := range tasks {
		doc.Tasks = append(doc.Tasks, inputFromTask(task))
	}
	return doc, nil
}

func inputFromTask(t domain.Task) domain.TaskInput {
	return domain.TaskInput{
		ID:           t.ID,
		Type:         t.Type,
		Name:         t.Name,
		Start:        t.Start,
		End:          t.End,
		Progress:     t.Progress,
		Status:       t.Status,
		Project:      t.Project,
		OrderKey:     t.OrderKey,
		Row:          t.Row,
		DisplayOrder: t.DisplayOrder,
		Dependencies: t.Dependencies,
		Disabled:     t.Disabled,
		Info:         t.Info,
		HideChildren: t.HideChildren,
		Overlapping:  t.Overlapping,
		Styles:       t.Styles,
		AllowedRows:  t.AllowedRows,
		Fields:       t.Fields,
	}
}
