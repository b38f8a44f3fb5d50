package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
	"github.com/rpggio/evtrack/internal/domain/timelog"
)

type toolHandlers struct {
	svc    TaskListService
	logger *slog.Logger
}

func registerTools(server *sdkmcp.Server, svc TaskListService, logger *slog.Logger) {
	h := &toolHandlers{svc: svc, logger: logger}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ping",
		Description: "Check that the server is responding",
	}, h.ping)

	// Task lists
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_task_lists",
		Description: "List the loaded task lists and rollups",
	}, h.listTaskLists)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "import_task_list",
		Description: "Import a task list or rollup from a YAML definition and store it",
	}, h.importTaskList)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_task_list_file",
		Description: "Register a YAML definition file as a task list; the file is reread when it changes",
	}, h.addTaskListFile)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_task_list",
		Description: "Delete a task list and its stored time log",
	}, h.deleteTaskList)

	// Time log
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "log_time",
		Description: "Log minutes spent on a task of a stored task list",
	}, h.logTime)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_time_log",
		Description: "List time log entries of a stored task list, optionally bounded by start time",
	}, h.getTimeLog)

	// Calculations
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recalculate",
		Description: "Recalculate a task list and return its earned value metrics",
	}, h.recalculate)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_metrics",
		Description: "Recalculate a task list and render its metrics in the chosen style",
	}, h.getMetrics)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_schedule",
		Description: "Recalculate a task list and return its schedule periods",
	}, h.getSchedule)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_task_tree",
		Description: "Recalculate a task list and return its task tree with plan and forecast dates",
	}, h.getTaskTree)
}

func (h *toolHandlers) ping(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, any, error) {
	return toolResult(map[string]string{"status": "ok"})
}

func (h *toolHandlers) listTaskLists(_ context.Context, _ *sdkmcp.CallToolRequest, _ EmptyParams) (*sdkmcp.CallToolResult, any, error) {
	lists := h.svc.List()
	if lists == nil {
		lists = []tasklist.Summary{}
	}
	return toolResult(TaskListsResponse{TaskLists: lists})
}

func (h *toolHandlers) importTaskList(ctx context.Context, _ *sdkmcp.CallToolRequest, in ImportTaskListParams) (*sdkmcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Definition) == "" {
		return h.toolError(invalidInput("definition is required"))
	}
	info, err := h.svc.ImportYAML(ctx, []byte(in.Definition))
	if err != nil {
		return h.toolError(err)
	}
	return toolResult(info)
}

func (h *toolHandlers) addTaskListFile(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddTaskListFileParams) (*sdkmcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Path) == "" {
		return h.toolError(invalidInput("path is required"))
	}
	info, err := h.svc.AddFile(ctx, in.Path)
	if err != nil {
		return h.toolError(err)
	}
	return toolResult(info)
}

func (h *toolHandlers) deleteTaskList(ctx context.Context, _ *sdkmcp.CallToolRequest, in TaskListParams) (*sdkmcp.CallToolResult, any, error) {
	if err := h.svc.Delete(ctx, in.TaskList); err != nil {
		return h.toolError(err)
	}
	return toolResult(map[string]string{"deleted": in.TaskList})
}

func (h *toolHandlers) logTime(ctx context.Context, _ *sdkmcp.CallToolRequest, in LogTimeParams) (*sdkmcp.CallToolResult, any, error) {
	start, err := parseTime("start", in.Start)
	if err != nil {
		return h.toolError(err)
	}
	entry, err := h.svc.LogTime(ctx, tasklist.LogTimeRequest{
		TaskList: in.TaskList,
		Path:     in.Path,
		Start:    start,
		Minutes:  in.Minutes,
	})
	if err != nil {
		return h.toolError(err)
	}
	return toolResult(entry)
}

func (h *toolHandlers) getTimeLog(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetTimeLogParams) (*sdkmcp.CallToolResult, any, error) {
	from, err := parseTime("from", in.From)
	if err != nil {
		return h.toolError(err)
	}
	to, err := parseTime("to", in.To)
	if err != nil {
		return h.toolError(err)
	}
	entries, err := h.svc.TimeLog(ctx, in.TaskList, timelog.Filter{From: from, To: to})
	if err != nil {
		return h.toolError(err)
	}
	if entries == nil {
		entries = []timelog.Entry{}
	}
	return toolResult(map[string]any{"entries": entries})
}

func (h *toolHandlers) recalculate(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecalculateParams) (*sdkmcp.CallToolResult, any, error) {
	snap, err := h.svc.Recalculate(ctx, in.TaskList, in.IncludeCost)
	if err != nil {
		return h.toolError(err)
	}
	return toolResult(RecalculateResponse{
		Name:          snap.Name,
		Kind:          snap.Kind,
		EffectiveDate: snap.EffectiveDate,
		Metrics:       metricRows(snap.Metrics, metrics.Medium),
		Errors:        snap.Errors,
		HasErrors:     snap.HasErrors,
	})
}

func (h *toolHandlers) getMetrics(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetMetricsParams) (*sdkmcp.CallToolResult, any, error) {
	style, err := metrics.ParseStyle(in.Style)
	if err != nil {
		return h.toolError(invalidInput(err.Error()))
	}
	snap, err := h.svc.Recalculate(ctx, in.TaskList, in.IncludeCost)
	if err != nil {
		return h.toolError(err)
	}
	return toolResult(RecalculateResponse{
		Name:          snap.Name,
		Kind:          snap.Kind,
		EffectiveDate: snap.EffectiveDate,
		Metrics:       metricRows(snap.Metrics, style),
		Errors:        snap.Errors,
		HasErrors:     snap.HasErrors,
	})
}

func (h *toolHandlers) getSchedule(ctx context.Context, _ *sdkmcp.CallToolRequest, in TaskListParams) (*sdkmcp.CallToolResult, any, error) {
	snap, err := h.svc.Recalculate(ctx, in.TaskList, false)
	if err != nil {
		return h.toolError(err)
	}
	return toolResult(ScheduleResponse{Name: snap.Name, Periods: snap.Periods})
}

func (h *toolHandlers) getTaskTree(ctx context.Context, _ *sdkmcp.CallToolRequest, in TaskListParams) (*sdkmcp.CallToolResult, any, error) {
	snap, err := h.svc.Recalculate(ctx, in.TaskList, false)
	if err != nil {
		return h.toolError(err)
	}
	return toolResult(TaskTreeResponse{Name: snap.Name, Tree: snap.Tree, Tasks: snap.Tasks})
}

func parseTime(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalidInput(field + " must be an RFC 3339 time")
	}
	return t, nil
}

func invalidInput(msg string) *APIError {
	return &APIError{Code: "INVALID_INPUT", Message: msg}
}

func toolResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func (h *toolHandlers) toolError(err error) (*sdkmcp.CallToolResult, any, error) {
	apiErr := toAPIError(err)
	if apiErr.Code == "INTERNAL" {
		h.logger.Error("tool failed", "error", err)
	}
	data, mErr := json.Marshal(apiErr)
	if mErr != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		IsError: true,
	}, nil, nil
}
