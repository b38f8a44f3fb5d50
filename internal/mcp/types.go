package mcp

import (
	"time"

	"github.com/rpggio/evtrack/internal/domain/metrics"
	"github.com/rpggio/evtrack/internal/domain/schedule"
	"github.com/rpggio/evtrack/internal/domain/tasklist"
)

type EmptyParams struct{}

type ImportTaskListParams struct {
	Definition string `json:"definition" jsonschema:"YAML task list definition; see evtrack://docs/definitions"`
}

type AddTaskListFileParams struct {
	Path string `json:"path" jsonschema:"path of a YAML definition file readable by the server"`
}

type TaskListParams struct {
	TaskList string `json:"task_list" jsonschema:"task list name"`
}

type LogTimeParams struct {
	TaskList string  `json:"task_list" jsonschema:"task list name"`
	Path     string  `json:"path" jsonschema:"task path, e.g. /Code/Design"`
	Start    string  `json:"start,omitempty" jsonschema:"RFC 3339 start time; defaults to now"`
	Minutes  float64 `json:"minutes" jsonschema:"elapsed minutes"`
}

type RecalculateParams struct {
	TaskList    string `json:"task_list" jsonschema:"task list name"`
	IncludeCost bool   `json:"include_cost,omitempty" jsonschema:"include metrics that reveal actual cost"`
}

type GetMetricsParams struct {
	TaskList    string `json:"task_list" jsonschema:"task list name"`
	Style       string `json:"style,omitempty" jsonschema:"short, medium or full; defaults to short"`
	IncludeCost bool   `json:"include_cost,omitempty" jsonschema:"include metrics that reveal actual cost"`
}

type GetTimeLogParams struct {
	TaskList string `json:"task_list" jsonschema:"task list name"`
	From     string `json:"from,omitempty" jsonschema:"RFC 3339 inclusive lower bound"`
	To       string `json:"to,omitempty" jsonschema:"RFC 3339 exclusive upper bound"`
}

type TaskListsResponse struct {
	TaskLists []tasklist.Summary `json:"task_lists"`
}

type RecalculateResponse struct {
	Name          string            `json:"name"`
	Kind          tasklist.Kind     `json:"kind"`
	EffectiveDate time.Time         `json:"effective_date,omitzero"`
	Metrics       []MetricResponse  `json:"metrics"`
	Errors        map[string]string `json:"errors,omitempty"`
	HasErrors     bool              `json:"has_errors,omitempty"`
}

type MetricResponse struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ScheduleResponse struct {
	Name    string            `json:"name"`
	Periods []schedule.Period `json:"periods"`
}

type TaskTreeResponse struct {
	Name  string              `json:"name"`
	Tree  *tasklist.NodeView  `json:"tree"`
	Tasks []tasklist.TaskView `json:"tasks"`
}

func metricRows(rows []metrics.Row, style metrics.Style) []MetricResponse {
	out := make([]MetricResponse, 0, len(rows))
	for _, r := range rows {
		v := r.Short
		switch style {
		case metrics.Medium:
			v = r.Medium
		case metrics.Full:
			v = r.Full
		}
		out = append(out, MetricResponse{Key: r.Key, Name: r.Name, Value: v})
	}
	return out
}
