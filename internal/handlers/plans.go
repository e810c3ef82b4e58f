package handlers

import (
	"fmt"
	"net/http"

	"github.com/benvon/study-planner/internal/models"
	"github.com/benvon/study-planner/internal/planner"
	"github.com/gorilla/mux"
)

// Planner event names accepted on the wire
const (
	EventSetFocus       = "set_focus"
	EventSetWindow      = "set_window"
	EventEditField      = "edit_field"
	EventSwitchToAuto   = "switch_to_auto"
	EventSwitchToManual = "switch_to_manual"
)

// PlanHandler exposes the cycle planner without touching storage
type PlanHandler struct{}

// NewPlanHandler creates a new plan handler
func NewPlanHandler() *PlanHandler {
	return &PlanHandler{}
}

// RegisterRoutes registers plan routes on the given router
func (h *PlanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/derive", h.Derive).Methods("POST")
	r.HandleFunc("/reduce", h.Reduce).Methods("POST")
}

// DeriveRequest asks for the auto plan of a focus length and window
type DeriveRequest struct {
	FocusMinutes int    `json:"focus_minutes" validate:"max=240"`
	StartTime    string `json:"start_time,omitempty" validate:"omitempty,hhmm"`
	EndTime      string `json:"end_time,omitempty" validate:"omitempty,hhmm"`
}

// EventRequest is one planner event
type EventRequest struct {
	Type      string `json:"type" validate:"required,oneof=set_focus set_window edit_field switch_to_auto switch_to_manual"`
	Minutes   int    `json:"minutes,omitempty"`
	StartTime string `json:"start_time,omitempty" validate:"omitempty,hhmm"`
	EndTime   string `json:"end_time,omitempty" validate:"omitempty,hhmm"`
	Field     string `json:"field,omitempty" validate:"omitempty,oneof=focusMinutes breakMinutes sessionCount"`
	Value     int    `json:"value,omitempty"`
}

// ReduceRequest applies one event to a plan. A missing state starts from
// the default auto plan.
type ReduceRequest struct {
	State *models.CyclePlan `json:"state,omitempty"`
	Event EventRequest      `json:"event"`
}

// Derive returns the auto plan for the given inputs
func (h *PlanHandler) Derive(w http.ResponseWriter, r *http.Request) {
	var req DeriveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	times, err := parseTimes(req.StartTime, req.EndTime)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	plan := planner.DeriveAutoplan(req.FocusMinutes, planner.WindowMinutes(times[0], times[1]))
	respondJSON(w, http.StatusOK, plan)
}

// Reduce runs one event through the planner reducer and returns the next plan
func (h *PlanHandler) Reduce(w http.ResponseWriter, r *http.Request) {
	var req ReduceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := toEvent(req.Event)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	next := planner.Reduce(planner.FromPlan(req.State), event)
	respondJSON(w, http.StatusOK, next.Plan())
}

func toEvent(req EventRequest) (planner.Event, error) {
	switch req.Type {
	case EventSetFocus:
		return planner.SetFocus{Minutes: req.Minutes}, nil
	case EventSetWindow:
		times, err := parseTimes(req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
		return planner.SetWindow{Start: times[0], End: times[1]}, nil
	case EventEditField:
		if req.Field == "" {
			return nil, fmt.Errorf("field is required for %s", EventEditField)
		}
		return planner.EditField{Field: models.CyclePlanField(req.Field), Value: req.Value}, nil
	case EventSwitchToAuto:
		return planner.SwitchToAuto{}, nil
	case EventSwitchToManual:
		return planner.SwitchToManual{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", req.Type)
	}
}
