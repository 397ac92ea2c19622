// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hylla/tidslinje/internal/adapters/server/common"
	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/interaction"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing chart, task and gesture tools.
func NewHandler(cfg Config, service common.Service) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("chart service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerChartTool(mcpSrv, service)
	registerTaskTools(mcpSrv, service)
	registerGestureTool(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "tidslinje"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerChartTool registers the `tidslinje.chart` tool.
func registerChartTool(srv *mcpserver.MCPServer, charts common.ChartReader) {
	modes := make([]string, 0, len(domain.ViewModes()))
	for _, mode := range domain.ViewModes() {
		modes = append(modes, string(mode))
	}
	srv.AddTool(
		mcp.NewTool(
			"tidslinje.chart",
			mcp.WithDescription("Return the laid-out chart: bars, arrows, highlights and non-working periods."),
			mcp.WithString("view_mode", mcp.Description("Timeline scale"), mcp.Enum(modes...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, err := charts.Chart(ctx, common.ChartRequest{ViewMode: req.GetString("view_mode", "")})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(view)
			if err != nil {
				return nil, fmt.Errorf("encode chart result: %w", err)
			}
			return result, nil
		},
	)
}

// registerTaskTools registers task list, create, delete and dependency tools.
func registerTaskTools(srv *mcpserver.MCPServer, tasks common.TaskService) {
	srv.AddTool(
		mcp.NewTool(
			"tidslinje.list_tasks",
			mcp.WithDescription("List every task ordered by row and display order."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			list, err := tasks.ListTasks(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"tasks": list,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tidslinje.create_task",
			mcp.WithDescription("Create one task, milestone or project."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
			mcp.WithString("start", mcp.Required(), mcp.Description("RFC3339 start")),
			mcp.WithString("end", mcp.Description("RFC3339 end; omitted for milestones")),
			mcp.WithString("id", mcp.Description("Optional identifier; generated when empty")),
			mcp.WithString("type", mcp.Description("Task type"), mcp.Enum("task", "milestone", "project")),
			mcp.WithString("project", mcp.Description("Project the task belongs to")),
			mcp.WithNumber("row", mcp.Description("Grid row")),
			mcp.WithNumber("progress", mcp.Description("Completion percentage 0-100")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			startRaw, err := req.RequireString("start")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			start, err := time.Parse(time.RFC3339, startRaw)
			if err != nil {
				return mcp.NewToolResultError("invalid_request: start: " + err.Error()), nil
			}
			var end time.Time
			if endRaw := strings.TrimSpace(req.GetString("end", "")); endRaw != "" {
				end, err = time.Parse(time.RFC3339, endRaw)
				if err != nil {
					return mcp.NewToolResultError("invalid_request: end: " + err.Error()), nil
				}
			}
			task, err := tasks.CreateTask(ctx, domain.TaskInput{
				ID:       req.GetString("id", ""),
				Type:     domain.TaskType(req.GetString("type", "")),
				Name:     name,
				Start:    start,
				End:      end,
				Project:  req.GetString("project", ""),
				Row:      req.GetInt("row", 0),
				Progress: req.GetInt("progress", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tidslinje.delete_task",
			mcp.WithDescription("Delete one task and detach every dependency pointing at it."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := tasks.DeleteTask(ctx, taskID); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"deleted": taskID,
			})
			if err != nil {
				return nil, fmt.Errorf("encode delete_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"tidslinje.add_dependency",
			mcp.WithDescription("Make task_id depend on depends_on_id. Cycles are refused."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Dependent task identifier")),
			mcp.WithString("depends_on_id", mcp.Required(), mcp.Description("Prerequisite task identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			dependsOn, err := req.RequireString("depends_on_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := tasks.AddDependency(ctx, common.DependencyRequest{TaskID: taskID, DependsOnID: dependsOn})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode add_dependency result: %w", err)
			}
			return result, nil
		},
	)
}

// registerGestureTool registers the `tidslinje.gesture` tool.
func registerGestureTool(srv *mcpserver.MCPServer, gestures common.GestureService) {
	srv.AddTool(
		mcp.NewTool(
			"tidslinje.gesture",
			mcp.WithDescription("Drag one bar by a pixel offset and commit the snapped result."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			mcp.WithString("action", mcp.Required(), mcp.Description("Drag handle"), mcp.Enum(
				string(interaction.ActionMove),
				string(interaction.ActionStart),
				string(interaction.ActionEnd),
				string(interaction.ActionProgress),
			)),
			mcp.WithNumber("dx", mcp.Description("Horizontal offset in pixels")),
			mcp.WithNumber("dy", mcp.Description("Vertical offset in pixels")),
			mcp.WithString("view_mode", mcp.Description("Timeline scale the offsets refer to")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			action, err := req.RequireString("action")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			gestureReq := app.GestureRequest{
				TaskID: taskID,
				Action: action,
				DX:     req.GetFloat("dx", 0),
				DY:     req.GetFloat("dy", 0),
			}
			if raw := strings.TrimSpace(req.GetString("view_mode", "")); raw != "" {
				mode, err := domain.ParseViewMode(raw)
				if err != nil {
					return mcp.NewToolResultError("invalid_request: " + err.Error()), nil
				}
				gestureReq.ViewMode = mode
			}
			out, err := gestures.ApplyGesture(ctx, gestureReq)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode gesture result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("conflict: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
