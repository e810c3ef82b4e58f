package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/conflict"
	"github.com/benvon/study-planner/internal/database"
	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ConflictHandler handles conflict checks and ordering recommendations
type ConflictHandler struct {
	repo     database.TaskRepositoryInterface
	detector *conflict.Detector
	logger   *zap.Logger
}

// NewConflictHandler creates a new conflict handler
func NewConflictHandler(repo database.TaskRepositoryInterface, detector *conflict.Detector, log *zap.Logger) *ConflictHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConflictHandler{repo: repo, detector: detector, logger: log}
}

// RegisterRoutes registers conflict routes on the given router
func (h *ConflictHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/check", h.Check).Methods("POST")
	r.HandleFunc("/ordering", h.Ordering).Methods("POST")
}

// CandidateRequest describes a proposed or edited task. ID is set when an
// existing task is being re-checked so it is not compared with itself.
type CandidateRequest struct {
	ID       string `json:"id,omitempty" validate:"omitempty,uuid"`
	Title    string `json:"title" validate:"max=1000"`
	Priority string `json:"priority" validate:"required,priority"`
	DueDate  string `json:"due_date" validate:"required,isodate"`
	DueTime  string `json:"due_time,omitempty" validate:"omitempty,hhmm"`
}

// OrderingRequest names two of the caller's tasks
type OrderingRequest struct {
	TaskAID string `json:"task_a_id" validate:"required,uuid"`
	TaskBID string `json:"task_b_id" validate:"required,uuid"`
}

// OrderingResponse carries the recommendation text
type OrderingResponse struct {
	Recommendation string `json:"recommendation"`
}

// Check classifies a candidate against the caller's incomplete tasks
func (h *ConflictHandler) Check(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CandidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	candidate, err := req.toTask(user.ID)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	report := h.detector.CheckConflicts(r.Context(), user.ID, candidate)
	respondJSON(w, http.StatusOK, report)
}

// Ordering recommends which of two tasks to complete first
func (h *ConflictHandler) Ordering(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req OrderingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tasks := make([]*models.Task, 0, 2)
	for _, raw := range []string{req.TaskAID, req.TaskBID} {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
			return
		}
		task, err := h.repo.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
				return
			}
			h.logger.Error("task_get_failed", zap.String("task_id", id.String()), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
			return
		}
		if task.UserID != user.ID {
			respondJSONError(w, http.StatusForbidden, "Forbidden", "Access denied")
			return
		}
		tasks = append(tasks, task)
	}

	text := h.detector.RecommendOrdering(r.Context(), tasks[0], tasks[1])
	respondJSON(w, http.StatusOK, OrderingResponse{Recommendation: text})
}

func (req CandidateRequest) toTask(userID uuid.UUID) (*models.Task, error) {
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		return nil, err
	}
	dueDate, err := calendar.ParseDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	dueTime, err := calendar.ParseOptionalTime(req.DueTime)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		UserID:   userID,
		Title:    req.Title,
		Priority: priority,
		DueDate:  dueDate,
		DueTime:  dueTime,
	}
	if req.ID != "" {
		if task.ID, err = uuid.Parse(req.ID); err != nil {
			return nil, err
		}
	}
	return task, nil
}
