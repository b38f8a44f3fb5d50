package schedule

import "time"

// Period is one time bucket of a schedule. Times are in minutes. A period
// begins where the previous one ends.
type Period struct {
	End time.Time `json:"end"`

	// PlanTotalTime includes level-of-effort time; PlanDirectTime is the
	// share available to value-earning tasks.
	PlanTotalTime     float64 `json:"plan_total_time"`
	PlanDirectTime    float64 `json:"plan_direct_time"`
	CumPlanDirectTime float64 `json:"cum_plan_direct_time"`
	PlanValue         float64 `json:"plan_value"`
	CumPlanValue      float64 `json:"cum_plan_value"`

	ActualDirectTime    float64 `json:"actual_direct_time"`
	ActualIndirectTime  float64 `json:"actual_indirect_time"`
	CumActualDirectTime float64 `json:"cum_actual_direct_time"`
	EarnedValue         float64 `json:"earned_value"`
	CumEarnedValue      float64 `json:"cum_earned_value"`
	ActualCost          float64 `json:"actual_cost"`
	CumActualCost       float64 `json:"cum_actual_cost"`

	// Automatic periods were added by growth rather than defined by a user.
	Automatic bool `json:"automatic,omitempty"`
}

// Spec defines one user-supplied period.
type Spec struct {
	End         time.Time
	PlanMinutes float64
}

func elapsedPercent(begin, end, when time.Time) float64 {
	if when.IsZero() {
		return 0
	}
	elapsed := when.Sub(begin)
	if elapsed <= 0 {
		return 0
	}
	length := end.Sub(begin)
	if elapsed >= length {
		return 1
	}
	return float64(elapsed) / float64(length)
}

func (p *Period) resetActuals() {
	p.CumPlanValue = 0
	p.CumEarnedValue = 0
	p.CumActualCost = 0
	p.ActualDirectTime = 0
	p.ActualIndirectTime = 0
	p.CumActualDirectTime = 0
}
