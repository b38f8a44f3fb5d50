package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/evtrack/internal/domain/schedule"
)

// Style selects how verbosely a metric is rendered.
type Style int

const (
	// Short is a bare number or date, e.g. "-65%".
	Short Style = iota
	// Medium interprets the sign, e.g. "3 days behind schedule".
	Medium
	// Full is a sentence.
	Full
)

// ParseStyle converts "short", "medium" or "full" into a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "short":
		return Short, nil
	case "medium":
		return Medium, nil
	case "full":
		return Full, nil
	default:
		return Short, fmt.Errorf("unknown format style %q", s)
	}
}

const (
	hourMinutes  = 60
	dayMinutes   = 24 * hourMinutes
	weekMinutes  = 7 * dayMinutes
	monthMinutes = 30 * dayMinutes
	yearMinutes  = 365 * dayMinutes
)

var durationUnits = []struct {
	minutes float64
	name    string
}{
	{yearMinutes, "year"},
	{monthMinutes, "month"},
	{weekMinutes, "week"},
	{dayMinutes, "day"},
	{hourMinutes, "hour"},
	{1, "minute"},
}

// FormatDuration renders an unsigned number of minutes using the largest
// unit no bigger than maxUnit minutes, e.g. "2.5 weeks".
func FormatDuration(minutes, maxUnit float64) string {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return ""
	}
	minutes = math.Abs(minutes)
	maxUnit = math.Max(1, maxUnit)
	for _, u := range durationUnits {
		if u.minutes > maxUnit {
			continue
		}
		if minutes > u.minutes {
			return formatNumber(minutes/u.minutes) + " " + u.name + "s"
		}
		if minutes == u.minutes {
			return "1 " + u.name
		}
	}
	return formatNumber(minutes) + " minutes"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100), 'f', 0, 64) + "%"
}

func formatDate(t time.Time, style Style) string {
	switch style {
	case Short:
		return t.Format(time.DateOnly)
	case Medium:
		return t.Format("Jan 2, 2006")
	default:
		return t.Format("Monday, January 2, 2006")
	}
}

type metricKind int

const (
	kindCost metricKind = iota
	kindPercent
	kindIndex
	kindDuration
	kindDate
	kindCostRange
	kindDateRange
)

type definition struct {
	key    string
	name   string
	kind   metricKind
	cost   bool
	rollup bool

	// above and below interpret a positive or negative value in Medium.
	above, below string
	// full is the Full sentence; it receives the Medium text (or the two
	// Medium bounds of a range).
	full string

	num    func(*Metrics) (float64, bool)
	date   func(*Metrics) time.Time
	numLo  func(*Metrics) (float64, bool)
	numHi  func(*Metrics) (float64, bool)
	dateLo func(*Metrics) time.Time
	dateHi func(*Metrics) time.Time
}

var definitions = []definition{
	{key: "Plan_Date", name: "Plan Date", kind: kindDate,
		full: "The plan calls for completion on %s.",
		date: (*Metrics).PlanDate},
	{key: "Optimized_Plan_Date", name: "Optimized Plan Date", kind: kindDate, rollup: true,
		full: "Balancing the work across the combined schedule, the plan calls for completion on %s.",
		date: (*Metrics).OptimizedPlanDate},
	{key: "Replan_Date", name: "Replan Date", kind: kindDate,
		full: "At the current rate of progress, the remaining plan will complete on %s.",
		date: (*Metrics).ReplanDate},
	{key: "Optimized_Replan_Date", name: "Optimized Replan Date", kind: kindDate, rollup: true,
		full: "Balancing the work across the combined schedule, the remaining plan will complete on %s.",
		date: (*Metrics).OptimizedReplanDate},
	{key: "Replan_Cost", name: "Replan Cost", kind: kindCost,
		full: "Finishing the remaining plan will bring the total cost to %s.",
		num: (*Metrics).ReplanCost},
	{key: "Cost_Variance", name: "Cost Variance", kind: kindCost,
		above: "under budget", below: "over budget",
		full: "The completed work is %s.",
		num: (*Metrics).CostVariance},
	{key: "Cost_Variance_Percent", name: "Cost Variance %", kind: kindPercent, cost: true,
		above: "under budget", below: "over budget",
		full: "The completed work is %s.",
		num: (*Metrics).CostVariancePercentage},
	{key: "Cost_Performance_Index", name: "Cost Performance Index", kind: kindIndex, cost: true,
		full: "Completed work earned %s planned hours per actual hour.",
		num: (*Metrics).CostPerformanceIndex},
	{key: "Schedule_Variance", name: "Schedule Variance", kind: kindCost,
		above: "ahead of schedule", below: "behind schedule",
		full: "The project is %s.",
		num: (*Metrics).ScheduleVariance},
	{key: "Schedule_Variance_Percent", name: "Schedule Variance %", kind: kindPercent,
		above: "ahead of schedule", below: "behind schedule",
		full: "The project is %s.",
		num: (*Metrics).ScheduleVariancePercentage},
	{key: "Schedule_Variance_Duration", name: "Schedule Variance Duration", kind: kindDuration,
		above: "ahead of schedule", below: "behind schedule",
		full: "The project is %s.",
		num: (*Metrics).ScheduleVarianceDuration},
	{key: "Schedule_Performance_Index", name: "Schedule Performance Index", kind: kindIndex,
		full: "Work has been earned at %s times the planned rate.",
		num: (*Metrics).SchedulePerformanceIndex},
	{key: "Baseline_Cost", name: "Baseline Cost", kind: kindCost,
		full: "The baseline plan called for %s of work.",
		num: (*Metrics).TotalBaseline},
	{key: "Baseline_Growth", name: "Baseline Growth", kind: kindCost,
		above: "of growth", below: "of reduction",
		full: "The plan shows %s since the baseline.",
		num: (*Metrics).BaselineGrowth},
	{key: "Baseline_Growth_Percent", name: "Baseline Growth %", kind: kindPercent,
		above: "growth", below: "reduction",
		full: "The plan shows %s since the baseline.",
		num: (*Metrics).BaselineGrowthPercentage},
	{key: "Baseline_Date", name: "Baseline Date", kind: kindDate,
		full: "The baseline plan called for completion on %s.",
		date: (*Metrics).BaselineDate},
	{key: "Percent_Complete", name: "Percent Complete", kind: kindPercent,
		full: "%s of the total work has been accomplished.",
		num: (*Metrics).PercentComplete},
	{key: "Percent_Spent", name: "Percent Spent", kind: kindPercent, cost: true,
		full: "%s of the total planned cost has been spent.",
		num: (*Metrics).PercentSpent},
	{key: "To_Complete_Index", name: "To Complete Index", kind: kindIndex, cost: true,
		full: "The remaining work must earn %s planned hours per actual hour to finish within the plan.",
		num: (*Metrics).ToCompletePerformanceIndex},
	{key: "Improvement_Ratio", name: "Improvement Ratio", kind: kindPercent, cost: true,
		above: "improvement needed", below: "slack available",
		full: "To finish within the plan: %s.",
		num: (*Metrics).ImprovementRatio},
	{key: "Forecast_Cost", name: "Forecast Cost", kind: kindCost,
		full: "The total cost is forecast to be %s.",
		num: (*Metrics).IndependentForecastCostEff},
	{key: "Forecast_Cost_Range", name: "Forecast Cost Range", kind: kindCostRange,
		full: "The total cost is forecast to fall between %s and %s.",
		numLo: (*Metrics).IndependentForecastCostLPI, numHi: (*Metrics).IndependentForecastCostUPI},
	{key: "Forecast_Duration", name: "Forecast Duration", kind: kindDuration,
		full: "The project is forecast to take %s.",
		num: (*Metrics).IndependentForecastDuration},
	{key: "Forecast_Date", name: "Forecast Date", kind: kindDate,
		full: "The project is forecast to complete on %s.",
		date: (*Metrics).IndependentForecastDate},
	{key: "Forecast_Date_Range", name: "Forecast Date Range", kind: kindDateRange,
		full: "The project is forecast to complete between %s and %s.",
		dateLo: (*Metrics).IndependentForecastDateLPI, dateHi: (*Metrics).IndependentForecastDateUPI},
	{key: "Optimized_Forecast_Duration", name: "Optimized Forecast Duration", kind: kindDuration, rollup: true,
		full: "Balancing the work across the combined schedule, the project is forecast to take %s.",
		num: (*Metrics).OptimizedForecastDuration},
	{key: "Optimized_Forecast_Date", name: "Optimized Forecast Date", kind: kindDate, rollup: true,
		full: "Balancing the work across the combined schedule, the project is forecast to complete on %s.",
		date: (*Metrics).OptimizedForecastDate},
	{key: "Optimized_Forecast_Date_Range", name: "Optimized Forecast Date Range", kind: kindDateRange, rollup: true,
		full: "Balancing the work across the combined schedule, the project is forecast to complete between %s and %s.",
		dateLo: (*Metrics).OptimizedForecastDateLPI, dateHi: (*Metrics).OptimizedForecastDateUPI},
}

// scalars are queryable by Value but have no formatted rendering.
var scalars = map[string]func(*Metrics) (float64, bool){
	"Total_Plan_Time":                   plain((*Metrics).TotalPlan),
	"Earned_Value_Time":                 plain((*Metrics).EarnedValue),
	"Actual_Time":                       plain((*Metrics).Actual),
	"Plan_Time":                         plain((*Metrics).Plan),
	"Indirect_Time":                     plain((*Metrics).IndirectTime),
	"Spent_Time":                        plain((*Metrics).SpentTime),
	"Incomplete_Task_Plan_Time":         plain((*Metrics).IncompleteTaskPlanTime),
	"Elapsed_Time":                      (*Metrics).Elapsed,
	"Time_Estimating_Error":             (*Metrics).TimeEstimatingError,
	"Cost_Performance_Index_Eff":        (*Metrics).CostPerformanceIndexEff,
	"Direct_Time_Performance_Index":     (*Metrics).DirectTimePerformanceIndex,
	"Direct_Time_Performance_Index_Eff": (*Metrics).DirectTimePerformanceIndexEff,
	"Independent_Forecast_Cost":         (*Metrics).IndependentForecastCost,
	"Forecast_Cost_LPI":                 (*Metrics).IndependentForecastCostLPI,
	"Forecast_Cost_UPI":                 (*Metrics).IndependentForecastCostUPI,
}

func plain(f func(*Metrics) float64) func(*Metrics) (float64, bool) {
	return func(m *Metrics) (float64, bool) { return value(f(m)) }
}

func lookup(key string) (definition, bool) {
	for _, d := range definitions {
		if d.key == key {
			return d, true
		}
	}
	return definition{}, false
}

// Value returns the numeric metric with the given key. Date metrics are
// not numeric; use Date.
func (m *Metrics) Value(key string) (float64, bool) {
	if f, ok := scalars[key]; ok {
		return f(m)
	}
	d, ok := lookup(key)
	if !ok || d.num == nil || (d.rollup && m.rollup == nil) {
		return 0, false
	}
	return d.num(m)
}

// Date returns the date metric with the given key.
func (m *Metrics) Date(key string) (time.Time, bool) {
	d, ok := lookup(key)
	if !ok || d.date == nil || (d.rollup && m.rollup == nil) {
		return time.Time{}, false
	}
	t := d.date(m)
	return t, validDate(t)
}

// Name returns the display name of a formatted metric.
func Name(key string) string {
	if d, ok := lookup(key); ok {
		return d.name
	}
	return ""
}

// CostRelated reports whether the metric reveals actual cost.
func CostRelated(key string) bool {
	d, ok := lookup(key)
	return ok && (d.cost || d.kind == kindCost || d.kind == kindCostRange)
}

// Format renders the metric with the given key, or returns "" when it is
// unavailable.
func (m *Metrics) Format(key string, style Style) string {
	d, ok := lookup(key)
	if !ok || (d.rollup && m.rollup == nil) {
		return ""
	}
	s, _ := d.render(m, style)
	return s
}

// Valid lists, in display order, the keys of every metric Format can
// currently render.
func (m *Metrics) Valid() []string {
	var keys []string
	for _, d := range definitions {
		if d.rollup && m.rollup == nil {
			continue
		}
		if _, ok := d.render(m, Short); ok {
			keys = append(keys, d.key)
		}
	}
	return keys
}

// Row is one rendered metric.
type Row struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Short  string `json:"short"`
	Medium string `json:"medium"`
	Full   string `json:"full"`
}

// Rows renders every valid metric. Cost related metrics are omitted
// unless includeCost is set.
func (m *Metrics) Rows(includeCost bool) []Row {
	var rows []Row
	for _, key := range m.Valid() {
		if !includeCost && CostRelated(key) {
			continue
		}
		rows = append(rows, Row{
			Key:    key,
			Name:   Name(key),
			Short:  m.Format(key, Short),
			Medium: m.Format(key, Medium),
			Full:   m.Format(key, Full),
		})
	}
	return rows
}

func validDate(t time.Time) bool {
	return !t.Equal(schedule.LongAgo) && !schedule.IsNever(t)
}

func (d definition) render(m *Metrics, style Style) (string, bool) {
	switch d.kind {
	case kindDate:
		t := d.date(m)
		if !validDate(t) {
			return "", false
		}
		if style == Full {
			return fmt.Sprintf(d.full, formatDate(t, Full)), true
		}
		return formatDate(t, style), true

	case kindDateRange:
		lo, hi := d.dateLo(m), d.dateHi(m)
		if !validDate(lo) || !validDate(hi) {
			return "", false
		}
		if style == Full {
			return fmt.Sprintf(d.full, formatDate(lo, Medium), formatDate(hi, Medium)), true
		}
		return formatDate(lo, style) + " - " + formatDate(hi, style), true

	case kindCostRange:
		lo, okLo := d.numLo(m)
		hi, okHi := d.numHi(m)
		if !okLo || !okHi {
			return "", false
		}
		switch style {
		case Short:
			return formatNumber(lo/hourMinutes) + " - " + formatNumber(hi/hourMinutes), true
		case Medium:
			return FormatDuration(lo, hourMinutes) + " - " + FormatDuration(hi, hourMinutes), true
		default:
			return fmt.Sprintf(d.full, FormatDuration(lo, hourMinutes), FormatDuration(hi, hourMinutes)), true
		}
	}

	v, ok := d.num(m)
	if !ok {
		return "", false
	}
	var short, medium string
	switch d.kind {
	case kindCost:
		short = formatNumber(v / hourMinutes)
		medium = d.interpret(v, FormatDuration(v, hourMinutes))
	case kindDuration:
		short = formatNumber(v / dayMinutes)
		medium = d.interpret(v, FormatDuration(v, yearMinutes))
	case kindPercent:
		short = formatPercent(v)
		medium = d.interpret(v, formatPercent(math.Abs(v)))
		if d.above == "" {
			medium = formatPercent(v)
		}
	default:
		short = strconv.FormatFloat(v, 'f', 2, 64)
		medium = short
	}
	return d.sentence(style, short, medium), true
}

func (d definition) interpret(v float64, magnitude string) string {
	switch {
	case d.above == "":
		return magnitude
	case v < 0:
		return magnitude + " " + d.below
	default:
		return magnitude + " " + d.above
	}
}

func (d definition) sentence(style Style, short, medium string) string {
	switch style {
	case Short:
		return short
	case Medium:
		return medium
	default:
		return fmt.Sprintf(d.full, medium)
	}
}
