package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hylla/tidslinje/internal/domain"
)

const yamlDoc = `version: tidslinje.v1
tasks:
  - id: design
    name: Design
    start: 2026-03-02T00:00:00Z
    end: 2026-03-04T00:00:00Z
    progress: 20
  - id: build
    name: Build
    start: 2026-03-04T00:00:00Z
    end: 2026-03-08T00:00:00Z
    row: 1
    dependencies: [design]
    allowed_rows:
      - {min: 1, max: 2}
shifts:
  - row: 0
    shifts:
      - {start: "08:00", finish: "16:00"}
`

func TestImportYAMLDocument(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	doc, err := DecodeDocument([]byte(yamlDoc), FormatForPath("plan.yml"))
	if err != nil {
		t.Fatalf("DecodeDocument() error = %v", err)
	}
	result, err := svc.Import(context.Background(), doc)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Created != 2 || result.Updated != 0 || result.Shifts != 1 {
		t.Fatalf("unexpected result %#v", result)
	}
	build := repo.tasks["build"]
	if build.Row != 1 || len(build.AllowedRows) != 1 || build.Dependencies[0] != "design" {
		t.Fatalf("unexpected task %#v", build)
	}

	result, err = svc.Import(context.Background(), doc)
	if err != nil || result.Updated != 2 {
		t.Fatalf("second Import() = %#v, %v", result, err)
	}
}

func TestImportRejectsCycleBeforeWriting(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	doc := Document{Tasks: []domain.TaskInput{
		{ID: "a", Name: "a", Start: day(0), Dependencies: []string{"b"}},
		{ID: "b", Name: "b", Start: day(0), Dependencies: []string{"a"}},
	}}
	if _, err := svc.Import(context.Background(), doc); !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}
	if len(repo.tasks) != 0 {
		t.Fatalf("expected nothing written, got %d tasks", len(repo.tasks))
	}
}

func TestDecodeDocumentRejectsUnknownFields(t *testing.T) {
	if _, err := DecodeDocument([]byte(`{"tasks": [], "bogus": 1}`), FormatJSON); !errors.Is(err, ErrInvalidImport) {
		t.Fatalf("expected ErrInvalidImport, got %v", err)
	}
	if _, err := DecodeDocument([]byte(`{"version": "other"}`), FormatJSON); !errors.Is(err, ErrInvalidImport) {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()
	mustCreate(t, svc, domain.TaskInput{ID: "a", Name: "a", Start: day(0), End: day(1)})

	doc, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	for _, format := range []Format{FormatJSON, FormatYAML} {
		encoded, err := EncodeDocument(doc, format)
		if err != nil {
			t.Fatalf("EncodeDocument(%s) error = %v", format, err)
		}
		if !strings.Contains(string(encoded), TransferVersion) {
			t.Fatalf("expected version in %s output", format)
		}
		decoded, err := DecodeDocument(encoded, format)
		if err != nil {
			t.Fatalf("DecodeDocument(%s) error = %v", format, err)
		}
		if len(decoded.Tasks) != 1 || decoded.Tasks[0].ID != "a" || !decoded.Tasks[0].End.Equal(day(1)) {
			t.Fatalf("unexpected decoded tasks %#v", decoded.Tasks)
		}
	}
}

func TestReportListsTasksAndPastDue(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()
	mustCreate(t, svc, domain.TaskInput{ID: "a", Name: "Design | UX", Start: day(-3), End: day(-1), Progress: 50})
	mustCreate(t, svc, domain.TaskInput{ID: "b", Name: "Build", Start: day(0), End: day(4), Row: 1, Dependencies: []string{"a"}})

	report, err := svc.Report(ctx)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	for _, want := range []string{"# Schedule report", "| pending | 2 |", `Design \| UX`, "## Past due", "ended 2d ago"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}
