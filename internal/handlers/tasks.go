package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/clock"
	"github.com/benvon/study-planner/internal/conflict"
	"github.com/benvon/study-planner/internal/database"
	"github.com/benvon/study-planner/internal/logger"
	"github.com/benvon/study-planner/internal/models"
	"github.com/benvon/study-planner/internal/planner"
	"github.com/benvon/study-planner/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	repo     database.TaskRepositoryInterface
	detector *conflict.Detector
	clock    clock.Clock
	logger   *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(repo database.TaskRepositoryInterface, detector *conflict.Detector, clk clock.Clock, log *zap.Logger) *TaskHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHandler{repo: repo, detector: detector, clock: clk, logger: log}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleTask).Methods("POST")
}

// PlanInput carries optional plan edits. Fields are applied through the
// planner reducer in this order: focus, mode switch, manual field edits.
type PlanInput struct {
	Mode         string `json:"mode,omitempty" validate:"omitempty,oneof=auto manual"`
	FocusMinutes *int   `json:"focus_minutes,omitempty" validate:"omitempty,max=240"`
	BreakMinutes *int   `json:"break_minutes,omitempty" validate:"omitempty,max=120"`
	SessionCount *int   `json:"session_count,omitempty" validate:"omitempty,max=24"`
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title     string     `json:"title" validate:"max=1000"`
	Subject   string     `json:"subject,omitempty" validate:"max=100"`
	Priority  string     `json:"priority" validate:"required,priority"`
	DueDate   string     `json:"due_date" validate:"required,isodate"`
	DueTime   string     `json:"due_time,omitempty" validate:"omitempty,hhmm"`
	StartTime string     `json:"start_time,omitempty" validate:"omitempty,hhmm"`
	EndTime   string     `json:"end_time,omitempty" validate:"omitempty,hhmm"`
	Plan      *PlanInput `json:"plan,omitempty"`
}

// UpdateTaskRequest represents an update task request. Time fields set to
// an empty string are cleared.
type UpdateTaskRequest struct {
	Title     *string    `json:"title,omitempty"`
	Subject   *string    `json:"subject,omitempty"`
	Priority  *string    `json:"priority,omitempty" validate:"omitempty,priority"`
	DueDate   *string    `json:"due_date,omitempty" validate:"omitempty,isodate"`
	DueTime   *string    `json:"due_time,omitempty"`
	StartTime *string    `json:"start_time,omitempty"`
	EndTime   *string    `json:"end_time,omitempty"`
	Plan      *PlanInput `json:"plan,omitempty"`
}

// CreateTaskResponse is returned when the caller asked for a conflict check
type CreateTaskResponse struct {
	Task     *models.Task           `json:"task"`
	Conflict *models.ConflictReport `json:"conflict"`
}

// ListTasks lists the caller's tasks, optionally filtered by date and completion
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var filter models.TaskFilter
	if d := r.URL.Query().Get("date"); d != "" {
		date, err := calendar.ParseDate(d)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "date must be in YYYY-MM-DD format")
			return
		}
		filter.DueDate = &date
	}
	if c := r.URL.Query().Get("completed"); c != "" {
		completed, err := strconv.ParseBool(c)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "completed must be true or false")
			return
		}
		filter.Completed = &completed
	}

	tasks, err := h.repo.ListByUser(r.Context(), user.ID, filter)
	if err != nil {
		h.logger.Error("task_list_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask validates and stores a new task with an auto-derived plan.
// With ?check_conflicts=true the response also carries a conflict report
// computed against the caller's existing incomplete tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.buildTask(user.ID, &req)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()

	var report *models.ConflictReport
	if checkConflicts(r) {
		rep := h.detector.CheckConflicts(ctx, user.ID, task)
		report = &rep
	}

	if err := h.repo.Create(ctx, task); err != nil {
		h.logger.Error("task_create_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	h.logger.Info("task_created",
		zap.String("task_id", task.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("title", logger.SanitizeTitle(task.Title)),
		zap.String("plan_mode", string(task.PomodoroPlan.Mode)),
	)

	if report != nil {
		respondJSON(w, http.StatusCreated, CreateTaskResponse{Task: task, Conflict: report})
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// buildTask applies the creation rules and derives the initial plan
func (h *TaskHandler) buildTask(userID uuid.UUID, req *CreateTaskRequest) (*models.Task, error) {
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		return nil, err
	}
	dueDate, err := calendar.ParseDate(req.DueDate)
	if err != nil {
		return nil, err
	}
	now := h.clock.Now()
	title, err := validation.ValidateNewTask(req.Title, dueDate, now)
	if err != nil {
		return nil, err
	}

	times, err := parseTimes(req.DueTime, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	subject := validation.SanitizeText(req.Subject)
	if subject == "" {
		subject = models.DefaultSubject
	}

	var state planner.State = planner.NewAutoState(planner.DefaultFocusMinutes, times[1], times[2])
	state = applyPlanInput(state, req.Plan)
	plan := state.Plan()

	return &models.Task{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		Subject:      subject,
		Priority:     priority,
		DueDate:      dueDate,
		DueTime:      times[0],
		StartTime:    times[1],
		EndTime:      times[2],
		PomodoroPlan: &plan,
		CreatedAt:    now,
	}, nil
}

// GetTask returns one of the caller's tasks
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask edits a task. The plan is re-run through the planner only when
// the window, focus or plan fields change, so a manual plan survives edits
// to the title or priority. The due date is not re-checked against today.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := applyUpdate(task, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if err := h.repo.Update(r.Context(), task); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		h.logger.Error("task_update_failed", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

func applyUpdate(task *models.Task, req *UpdateTaskRequest) error {
	if req.Title != nil {
		title, err := validation.ValidateTitle(*req.Title)
		if err != nil {
			return err
		}
		task.Title = title
	}
	if req.Subject != nil {
		task.Subject = validation.SanitizeText(*req.Subject)
		if task.Subject == "" {
			task.Subject = models.DefaultSubject
		}
	}
	if req.Priority != nil {
		p, err := models.ParsePriority(*req.Priority)
		if err != nil {
			return err
		}
		task.Priority = p
	}
	if req.DueDate != nil {
		d, err := calendar.ParseDate(*req.DueDate)
		if err != nil {
			return err
		}
		task.DueDate = d
	}
	if req.DueTime != nil {
		t, err := calendar.ParseOptionalTime(*req.DueTime)
		if err != nil {
			return err
		}
		task.DueTime = t
	}

	windowChanged := req.StartTime != nil || req.EndTime != nil
	if req.StartTime != nil {
		t, err := calendar.ParseOptionalTime(*req.StartTime)
		if err != nil {
			return err
		}
		task.StartTime = t
	}
	if req.EndTime != nil {
		t, err := calendar.ParseOptionalTime(*req.EndTime)
		if err != nil {
			return err
		}
		task.EndTime = t
	}

	if windowChanged || req.Plan != nil {
		state := planner.FromPlan(task.PomodoroPlan)
		if windowChanged {
			state = planner.Reduce(state, planner.SetWindow{Start: task.StartTime, End: task.EndTime})
		}
		state = applyPlanInput(state, req.Plan)
		plan := state.Plan()
		task.PomodoroPlan = &plan
	}
	return nil
}

// DeleteTask removes one of the caller's tasks
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), task.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		h.logger.Error("task_delete_failed", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask flips the completed flag of one of the caller's tasks
func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadOwnedTask(w, r)
	if !ok {
		return
	}

	updated, err := h.repo.ToggleComplete(r.Context(), task.ID, h.clock.Now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		h.logger.Error("task_toggle_failed", zap.String("task_id", task.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to toggle task")
		return
	}

	h.logger.Info("task_toggled",
		zap.String("task_id", updated.ID.String()),
		zap.Bool("completed", updated.Completed),
	)
	respondJSON(w, http.StatusOK, updated)
}

// loadOwnedTask resolves {id} to a task owned by the caller, writing the
// error response when it cannot
func (h *TaskHandler) loadOwnedTask(w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	user := requireUser(w, r)
	if user == nil {
		return nil, false
	}

	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	task, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return nil, false
		}
		h.logger.Error("task_get_failed", zap.String("task_id", id.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return nil, false
	}

	// Verify ownership
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Access denied")
		return nil, false
	}

	return task, true
}

// applyPlanInput feeds plan edits to the reducer
func applyPlanInput(state planner.State, in *PlanInput) planner.State {
	if in == nil {
		return state
	}
	if in.FocusMinutes != nil {
		state = planner.Reduce(state, planner.SetFocus{Minutes: *in.FocusMinutes})
	}
	switch models.PlanMode(in.Mode) {
	case models.PlanModeManual:
		state = planner.Reduce(state, planner.SwitchToManual{})
	case models.PlanModeAuto:
		state = planner.Reduce(state, planner.SwitchToAuto{})
	}
	if in.BreakMinutes != nil {
		state = planner.Reduce(state, planner.EditField{Field: models.FieldBreakMinutes, Value: *in.BreakMinutes})
	}
	if in.SessionCount != nil {
		state = planner.Reduce(state, planner.EditField{Field: models.FieldSessionCount, Value: *in.SessionCount})
	}
	return state
}

// parseTimes parses HH:mm values in order; empty strings become nil
func parseTimes(values ...string) ([]*calendar.TimeOfDay, error) {
	out := make([]*calendar.TimeOfDay, len(values))
	for i, v := range values {
		t, err := calendar.ParseOptionalTime(v)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func checkConflicts(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("check_conflicts"))
	return err == nil && v
}
