package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/tidslinje/internal/adapters/server/common"
	"github.com/hylla/tidslinje/internal/adapters/storage/sqlite"
	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/gantt"
)

// stubService provides deterministic responses for handler tests.
type stubService struct {
	tasks       []domain.Task
	err         error
	lastChart   common.ChartRequest
	lastCreate  domain.TaskInput
	lastGesture app.GestureRequest
	lastDep     common.DependencyRequest
	lastDelete  string
}

func (s *stubService) Chart(_ context.Context, req common.ChartRequest) (common.ChartView, error) {
	s.lastChart = req
	if s.err != nil {
		return common.ChartView{}, s.err
	}
	return common.ChartView{Snapshot: gantt.Snapshot{ViewMode: domain.ViewModeWeek, ColumnWidth: 60}}, nil
}

func (s *stubService) ListTasks(context.Context) ([]domain.Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Task(nil), s.tasks...), nil
}

func (s *stubService) CreateTask(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	s.lastCreate = in
	if s.err != nil {
		return domain.Task{}, s.err
	}
	return domain.Task{ID: in.ID, Name: in.Name, Start: in.Start, End: in.End}, nil
}

func (s *stubService) DeleteTask(_ context.Context, id string) error {
	s.lastDelete = id
	return s.err
}

func (s *stubService) AddDependency(_ context.Context, req common.DependencyRequest) (domain.Task, error) {
	s.lastDep = req
	if s.err != nil {
		return domain.Task{}, s.err
	}
	return domain.Task{ID: req.TaskID, Dependencies: []string{req.DependsOnID}}, nil
}

func (s *stubService) ApplyGesture(_ context.Context, req app.GestureRequest) (app.GestureResult, error) {
	s.lastGesture = req
	if s.err != nil {
		return app.GestureResult{}, s.err
	}
	return app.GestureResult{Action: req.Action, Items: []app.GestureItem{{TaskID: req.TaskID, Accepted: true}}}, nil
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerChart(t *testing.T) {
	svc := &stubService{}
	rec := serve(t, NewHandler(svc), http.MethodGet, "/chart?view_mode=Week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got["view_mode"] != "Week" {
		t.Fatalf("view_mode = %v, want Week", got["view_mode"])
	}
	if svc.lastChart.ViewMode != "Week" {
		t.Fatalf("request view_mode = %q, want Week", svc.lastChart.ViewMode)
	}
}

func TestHandlerTasks(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	svc := &stubService{tasks: []domain.Task{{ID: "a", Name: "a", Start: start, End: start}}}
	handler := NewHandler(svc)

	listRec := serve(t, handler, http.MethodGet, "/tasks", "")
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", listRec.Code, http.StatusOK)
	}
	var listed struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&listed); err != nil {
		t.Fatalf("Decode(list) error = %v", err)
	}
	if len(listed.Tasks) != 1 || listed.Tasks[0].ID != "a" {
		t.Fatalf("unexpected list payload %#v", listed.Tasks)
	}

	createRec := serve(t, handler, http.MethodPost, "/tasks", `{"id":"b","name":"Build","start":"2026-03-03T00:00:00Z","end":"2026-03-05T00:00:00Z"}`)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", createRec.Code, http.StatusCreated)
	}
	if svc.lastCreate.Name != "Build" || !svc.lastCreate.End.Equal(start.AddDate(0, 0, 3)) {
		t.Fatalf("unexpected create input %#v", svc.lastCreate)
	}

	deleteRec := serve(t, handler, http.MethodDelete, "/tasks/b", "")
	if deleteRec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", deleteRec.Code, http.StatusNoContent)
	}
	if svc.lastDelete != "b" {
		t.Fatalf("delete id = %q, want b", svc.lastDelete)
	}
}

func TestHandlerGestureAndDependency(t *testing.T) {
	svc := &stubService{}
	handler := NewHandler(svc)

	rec := serve(t, handler, http.MethodPost, "/gestures", `{"task_id":"a","action":"move","dx":120,"dy":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("gesture status = %d, want %d", rec.Code, http.StatusOK)
	}
	var result app.GestureResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Decode(gesture) error = %v", err)
	}
	if result.Action != "move" || len(result.Items) != 1 || !result.Items[0].Accepted {
		t.Fatalf("unexpected gesture payload %#v", result)
	}
	if svc.lastGesture.DX != 120 {
		t.Fatalf("dx = %v, want 120", svc.lastGesture.DX)
	}

	rec = serve(t, handler, http.MethodPost, "/dependencies", `{"task_id":"b","depends_on_id":"a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("dependency status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastDep.DependsOnID != "a" {
		t.Fatalf("depends_on_id = %q, want a", svc.lastDep.DependsOnID)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid request",
			err:        errors.Join(common.ErrInvalidRequest, errors.New("bad input")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "not found",
			err:        errors.Join(common.ErrNotFound, errors.New("missing")),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "conflict",
			err:        errors.Join(common.ErrConflict, app.ErrDependencyCycle),
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "internal error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, NewHandler(&stubService{err: tt.err}), http.MethodPost, "/dependencies", `{"task_id":"b","depends_on_id":"a"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var envelope ErrorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if envelope.Error.Code != tt.wantCode {
				t.Fatalf("error.code = %q, want %q", envelope.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestHandlerRejectsMalformedRequests(t *testing.T) {
	cases := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "unknown field", method: http.MethodPost, target: "/gestures", body: `{"task_id":"a","action":"move","bogus":1}`, wantStatus: http.StatusBadRequest},
		{name: "trailing content", method: http.MethodPost, target: "/dependencies", body: `{"task_id":"b","depends_on_id":"a"} {}`, wantStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodPut, target: "/tasks", wantStatus: http.StatusMethodNotAllowed},
		{name: "wrong method on task", method: http.MethodGet, target: "/tasks/a", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, target: "/nope/deeper", wantStatus: http.StatusNotFound},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, NewHandler(&stubService{}), tt.method, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandlerRejectsRowPastMaxRow(t *testing.T) {
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	svc := app.NewService(repo, func() string { return "generated" }, func() time.Time {
		return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	}, app.ServiceConfig{})
	h := NewHandler(common.NewAppServiceAdapter(svc))

	rec := serve(t, h, http.MethodPost, "/tasks", `{"id":"far","name":"Far","start":"2026-03-02T00:00:00Z","end":"2026-03-03T00:00:00Z","row":1099511627776}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	tasks, err := svc.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected oversized row to be rejected before storage, got %d tasks", len(tasks))
	}
}

func TestHandlerWithoutService(t *testing.T) {
	rec := serve(t, NewHandler(nil), http.MethodGet, "/chart", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
