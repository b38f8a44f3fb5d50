package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `evtrack keeps earned value (EV) projections for task lists.

Core concepts:
- Task list: a work breakdown of tasks with plan minutes, a schedule of periods with planned hours, and a time log.
- Rollup: a task list that combines other task lists by name. It has no tasks of its own.
- Plan value: a task's share of total plan time. Value is earned only when a task is completed.
- Forecasts are derived from the earned value history and, where there is enough data, a Monte Carlo simulation.

Default workflow:
1) Orient: call list_task_lists.
2) Add work: import_task_list with a YAML definition, or add_task_list_file for a file the server can read.
3) Record progress: log_time against a task path such as /Code/Design. Mark completion by updating the definition.
4) Read results: recalculate for a metric summary; get_metrics, get_schedule and get_task_tree for detail.

Metrics that reveal actual cost are hidden unless include_cost is true.

Docs:
- evtrack://docs/index
- evtrack://docs/definitions
- evtrack://docs/metrics
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "evtrack://docs/index",
		Name:        "docs_index",
		Title:       "evtrack docs index",
		Description: "Entry point for agent-facing docs: tools, docs and known limitations.",
		Content: `# evtrack: Agent Docs Index

## Tools

- ` + "`list_task_lists`" + ` names every loaded task list and rollup.
- ` + "`import_task_list`" + ` stores a YAML definition. Names are unique.
- ` + "`add_task_list_file`" + ` tracks a definition file; edits are picked up on the next recalculation.
- ` + "`log_time`" + ` / ` + "`get_time_log`" + ` work on imported task lists only. File task lists carry their time log inline.
- ` + "`recalculate`" + ` returns the metric summary.
- ` + "`get_metrics`" + ` renders metrics as short, medium or full text.
- ` + "`get_schedule`" + ` returns the periods with plan and actual values.
- ` + "`get_task_tree`" + ` returns tasks with plan, replan and forecast dates.
- ` + "`delete_task_list`" + ` removes a task list and its time log.

## Docs

- ` + "`evtrack://docs/definitions`" + ` covers the YAML definition format.
- ` + "`evtrack://docs/metrics`" + ` lists the metrics and how to read them.

## Limitations

- Dates are calendar times; there is no working-day calendar beyond the planned hours of each period.
- A rollup child that is not loaded is left out of the rollup with a warning in the server log.
`,
	},
	{
		URI:         "evtrack://docs/definitions",
		Name:        "docs_definitions",
		Title:       "Task list definitions",
		Description: "YAML format accepted by import_task_list and add_task_list_file.",
		Content: `# Task list definitions

` + "```yaml" + `
name: Release 1
schedule:
  start: 2026-01-05T00:00:00Z
  period_days: 7        # default 7
  hours_per_period: 10
  periods: 4            # default 1
baseline:
  date: 2026-01-30T00:00:00Z
  hours: 38
tasks:
  - name: Code
    children:
      - name: Design
        plan_minutes: 240
        completed: 2026-01-06T12:00:00Z
      - name: Spike
        plan_minutes: 120
        pruned: true
  - name: Test
    plan_minutes: 600
  - name: Meetings
    level_of_effort: 0.1
time_log:
  - path: /Code/Design
    start: 2026-01-05T09:00:00Z
    minutes: 90
` + "```" + `

- Instead of equal periods, ` + "`schedule.explicit`" + ` lists periods as ` + "`{end, hours}`" + ` pairs.
- Task names must be unique among siblings and cannot contain ` + "`/`" + `.
- ` + "`level_of_effort`" + ` is a fraction between 0 and 1. Such tasks consume schedule time and earn no value.
- ` + "`pruned: true`" + ` leaves a task out of the plan; ` + "`pruned: false`" + ` brings a child back under a pruned parent.
- ` + "`ordinal`" + ` orders tasks for value earning; lower goes first.
- Unknown keys are rejected.

## Rollups

` + "```yaml" + `
name: Program
rollup: [Release 1, Release 2]
` + "```" + `

A rollup carries no schedule, tasks or time log. Rollups may contain rollups but not themselves.
`,
	},
	{
		URI:         "evtrack://docs/metrics",
		Name:        "docs_metrics",
		Title:       "Earned value metrics",
		Description: "What each metric means and which ones reveal cost.",
		Content: `# Earned value metrics

All times are minutes internally and rendered as hours or days.

| Key | Meaning |
| --- | --- |
| Plan_Date | When the plan completes if worked as scheduled |
| Replan_Date | When the remaining plan completes at the current pace |
| Forecast_Date | Forecast completion date |
| Forecast_Date_Range | Forecast completion dates at the configured confidence |
| Forecast_Cost | Forecast total cost |
| Forecast_Cost_Range | Forecast cost at the configured confidence |
| Forecast_Duration | Forecast time from start to completion |
| Schedule_Variance | Earned value minus planned value to date |
| Schedule_Variance_Duration | How far ahead of or behind schedule |
| Schedule_Performance_Index | Earned value over planned value |
| Cost_Variance | Earned value minus actual cost of completed work |
| Cost_Performance_Index | Earned value over actual cost (cost) |
| Percent_Complete | Earned value over total plan |
| Percent_Spent | Actual cost over total plan (cost) |
| To_Complete_Index | Pace needed on remaining work to finish on budget (cost) |
| Improvement_Ratio | Required change in pace (cost) |
| Baseline_Date / Baseline_Cost | The baseline plan, when one was given |
| Baseline_Growth | Change in plan since the baseline |

Metrics measured in hours, and rows marked (cost), are hidden unless ` + "`include_cost`" + ` is true. Rollups add Optimized_* dates that balance the combined schedule.

A metric is omitted when it cannot be computed yet, for example before any value is earned. Errors in the calculation appear under ` + "`errors`" + `.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
