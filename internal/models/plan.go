package models

// PlanMode selects whether a cycle plan is derived or user-owned
type PlanMode string

const (
	PlanModeAuto   PlanMode = "auto"
	PlanModeManual PlanMode = "manual"
)

// CyclePlanField names a user-editable field of a CyclePlan
type CyclePlanField string

const (
	FieldFocusMinutes CyclePlanField = "focusMinutes"
	FieldBreakMinutes CyclePlanField = "breakMinutes"
	FieldSessionCount CyclePlanField = "sessionCount"
)

// CyclePlan holds the Pomodoro parameters attached to a task.
// AvailableMinutes is informational only; the task's window is authoritative.
type CyclePlan struct {
	Mode             PlanMode `json:"mode"`
	FocusMinutes     int      `json:"focus_minutes"`
	BreakMinutes     int      `json:"break_minutes"`
	SessionCount     int      `json:"session_count"`
	AvailableMinutes *int     `json:"available_minutes,omitempty"`
}

// CycleMinutes is the length of one focus period plus its break
func (p CyclePlan) CycleMinutes() int {
	return p.FocusMinutes + p.BreakMinutes
}

// TotalMinutes is the length of the whole plan
func (p CyclePlan) TotalMinutes() int {
	return p.CycleMinutes() * p.SessionCount
}
