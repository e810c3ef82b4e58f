// Package planner derives Pomodoro cycle plans from a focus duration and a
// task's available time window. Everything here is a pure function of its
// inputs; invalid inputs degrade to defaults rather than failing.
package planner

import (
	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
)

const (
	// DefaultFocusMinutes is the standard Pomodoro focus length
	DefaultFocusMinutes = 25
	// DefaultSessionCount is used when no usable time window is known
	DefaultSessionCount = 4
	// FocusToBreakRatio fixes break length at one fifth of focus length
	FocusToBreakRatio = 5
)

// BreakMinutesFor returns ceil(focus/5), never less than one minute
func BreakMinutesFor(focusMinutes int) int {
	b := (focusMinutes + FocusToBreakRatio - 1) / FocusToBreakRatio
	if b < 1 {
		return 1
	}
	return b
}

// DeriveAutoplan computes a complete auto-mode plan. A nil or non-positive
// availableMinutes means the window is not known yet.
func DeriveAutoplan(focusMinutes int, availableMinutes *int) models.CyclePlan {
	if focusMinutes <= 0 {
		focusMinutes = DefaultFocusMinutes
	}
	breakMinutes := BreakMinutesFor(focusMinutes)

	plan := models.CyclePlan{
		Mode:         models.PlanModeAuto,
		FocusMinutes: focusMinutes,
		BreakMinutes: breakMinutes,
		SessionCount: DefaultSessionCount,
	}

	if availableMinutes != nil && *availableMinutes > 0 {
		available := *availableMinutes
		plan.AvailableMinutes = &available
		plan.SessionCount = max(1, available/(focusMinutes+breakMinutes))
	}

	return plan
}

// ApplyManualEdit sets exactly one field of plan and leaves the other two
// untouched. Values below one are clamped to one. Unknown fields return the
// plan unchanged.
func ApplyManualEdit(plan models.CyclePlan, field models.CyclePlanField, value int) models.CyclePlan {
	out := plan
	out.Mode = models.PlanModeManual
	out.AvailableMinutes = copyInt(plan.AvailableMinutes)
	if value < 1 {
		value = 1
	}

	switch field {
	case models.FieldFocusMinutes:
		out.FocusMinutes = value
	case models.FieldBreakMinutes:
		out.BreakMinutes = value
	case models.FieldSessionCount:
		out.SessionCount = value
	}

	return out
}

// WindowMinutes returns end-start in minutes, or nil when either bound is
// missing or the window is empty or inverted
func WindowMinutes(start, end *calendar.TimeOfDay) *int {
	if start == nil || end == nil {
		return nil
	}
	diff := end.Minutes() - start.Minutes()
	if diff <= 0 {
		return nil
	}
	return &diff
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
