package planner

import (
	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
)

// Event is one user edit applied to a planner State
type Event interface {
	isEvent()
}

// SetFocus changes the focus duration
type SetFocus struct {
	Minutes int
}

// SetWindow changes the task's start/end time
type SetWindow struct {
	Start *calendar.TimeOfDay
	End   *calendar.TimeOfDay
}

// EditField sets one plan field directly. Only focus minutes is editable in
// auto mode; other fields are ignored there.
type EditField struct {
	Field models.CyclePlanField
	Value int
}

// SwitchToAuto discards manual break/session values and re-derives them
type SwitchToAuto struct{}

// SwitchToManual freezes the current derived values as the manual baseline
type SwitchToManual struct{}

func (SetFocus) isEvent()       {}
func (SetWindow) isEvent()      {}
func (EditField) isEvent()      {}
func (SwitchToAuto) isEvent()   {}
func (SwitchToManual) isEvent() {}

// Reduce applies e to s and returns the next state. It never mutates s.
func Reduce(s State, e Event) State {
	if s == nil {
		s = AutoState{FocusMinutes: DefaultFocusMinutes}
	}

	switch st := s.(type) {
	case AutoState:
		return reduceAuto(st, e)
	case ManualState:
		return reduceManual(st, e)
	default:
		return s
	}
}

func reduceAuto(s AutoState, e Event) State {
	switch ev := e.(type) {
	case SetFocus:
		return AutoState{FocusMinutes: focusOrDefault(ev.Minutes), AvailableMinutes: copyInt(s.AvailableMinutes)}
	case SetWindow:
		return AutoState{FocusMinutes: s.FocusMinutes, AvailableMinutes: WindowMinutes(ev.Start, ev.End)}
	case EditField:
		if ev.Field == models.FieldFocusMinutes {
			return reduceAuto(s, SetFocus{Minutes: ev.Value})
		}
		return s
	case SwitchToManual:
		plan := s.Plan()
		return ManualState{
			FocusMinutes:     plan.FocusMinutes,
			BreakMinutes:     plan.BreakMinutes,
			SessionCount:     plan.SessionCount,
			AvailableMinutes: copyInt(s.AvailableMinutes),
		}
	default:
		return s
	}
}

func reduceManual(s ManualState, e Event) State {
	switch ev := e.(type) {
	case SetFocus:
		return fromManualPlan(ApplyManualEdit(s.Plan(), models.FieldFocusMinutes, ev.Minutes))
	case EditField:
		return fromManualPlan(ApplyManualEdit(s.Plan(), ev.Field, ev.Value))
	case SetWindow:
		next := s
		next.AvailableMinutes = WindowMinutes(ev.Start, ev.End)
		return next
	case SwitchToAuto:
		return AutoState{FocusMinutes: s.FocusMinutes, AvailableMinutes: copyInt(s.AvailableMinutes)}
	default:
		return s
	}
}

func fromManualPlan(p models.CyclePlan) ManualState {
	return ManualState{
		FocusMinutes:     p.FocusMinutes,
		BreakMinutes:     p.BreakMinutes,
		SessionCount:     p.SessionCount,
		AvailableMinutes: p.AvailableMinutes,
	}
}

func focusOrDefault(v int) int {
	if v <= 0 {
		return DefaultFocusMinutes
	}
	return v
}
