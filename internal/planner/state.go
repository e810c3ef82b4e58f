package planner

import (
	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
)

// State is the planner's editing state: either AutoState or ManualState
type State interface {
	Mode() models.PlanMode
	// Plan projects the state onto the persisted plan shape
	Plan() models.CyclePlan
	isState()
}

// AutoState keeps only the inputs; break length and session count are
// always derived from them
type AutoState struct {
	FocusMinutes     int
	AvailableMinutes *int
}

// ManualState owns all three plan fields; nothing is derived
type ManualState struct {
	FocusMinutes     int
	BreakMinutes     int
	SessionCount     int
	AvailableMinutes *int
}

func (AutoState) isState()   {}
func (ManualState) isState() {}

// Mode implements State
func (AutoState) Mode() models.PlanMode { return models.PlanModeAuto }

// Mode implements State
func (ManualState) Mode() models.PlanMode { return models.PlanModeManual }

// Plan implements State
func (s AutoState) Plan() models.CyclePlan {
	return DeriveAutoplan(s.FocusMinutes, s.AvailableMinutes)
}

// Plan implements State
func (s ManualState) Plan() models.CyclePlan {
	return models.CyclePlan{
		Mode:             models.PlanModeManual,
		FocusMinutes:     s.FocusMinutes,
		BreakMinutes:     s.BreakMinutes,
		SessionCount:     s.SessionCount,
		AvailableMinutes: copyInt(s.AvailableMinutes),
	}
}

// NewAutoState starts a planner in auto mode for the given window
func NewAutoState(focusMinutes int, start, end *calendar.TimeOfDay) AutoState {
	if focusMinutes <= 0 {
		focusMinutes = DefaultFocusMinutes
	}
	return AutoState{FocusMinutes: focusMinutes, AvailableMinutes: WindowMinutes(start, end)}
}

// FromPlan rebuilds the editing state from a stored plan. A nil plan starts
// a default auto state.
func FromPlan(plan *models.CyclePlan) State {
	if plan == nil {
		return AutoState{FocusMinutes: DefaultFocusMinutes}
	}
	if plan.Mode == models.PlanModeManual {
		return ManualState{
			FocusMinutes:     atLeastOne(plan.FocusMinutes),
			BreakMinutes:     atLeastOne(plan.BreakMinutes),
			SessionCount:     atLeastOne(plan.SessionCount),
			AvailableMinutes: copyInt(plan.AvailableMinutes),
		}
	}
	return AutoState{FocusMinutes: plan.FocusMinutes, AvailableMinutes: copyInt(plan.AvailableMinutes)}
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
