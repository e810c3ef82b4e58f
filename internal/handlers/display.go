package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/gorilla/mux"
)

// DisplayHandler formats wire values the way the app shows them
type DisplayHandler struct{}

// NewDisplayHandler creates a new display handler
func NewDisplayHandler() *DisplayHandler {
	return &DisplayHandler{}
}

// RegisterRoutes registers display routes
func (h *DisplayHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/time", h.Time).Methods("GET")
	r.HandleFunc("/date", h.Date).Methods("GET")
}

// DisplayResponse pairs the input with its display form
type DisplayResponse struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// Time converts ?t=HH:mm into 12-hour form, e.g. 14:05 -> 2:05 PM
func (h *DisplayHandler) Time(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("t")
	display, err := calendar.FormatDisplay(value)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "t must be a time in HH:mm format")
		return
	}
	respondJSON(w, http.StatusOK, DisplayResponse{Value: value, Display: display})
}

// Date converts ?d=YYYY-MM-DD into a long form such as Friday, December 5, 2025
func (h *DisplayHandler) Date(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("d")
	d, err := calendar.ParseDate(value)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "d must be a date in YYYY-MM-DD format")
		return
	}
	respondJSON(w, http.StatusOK, DisplayResponse{Value: value, Display: d.In(time.UTC).Format("Monday, January 2, 2006")})
}
