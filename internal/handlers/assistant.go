package handlers

import (
	"fmt"
	"net/http"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/clock"
	"github.com/benvon/study-planner/internal/conflict"
	"github.com/benvon/study-planner/internal/database"
	"github.com/benvon/study-planner/internal/logger"
	"github.com/benvon/study-planner/internal/models"
	"github.com/benvon/study-planner/internal/services/ai"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AssistantHandler answers chat messages with the caller's schedule in view.
// When a proposed task is attached it runs the conflict check first.
type AssistantHandler struct {
	repo     database.TaskRepositoryInterface
	detector *conflict.Detector
	chat     *ai.ChatService
	clock    clock.Clock
	logger   *zap.Logger
}

// NewAssistantHandler creates a new assistant handler. chat may be nil, in
// which case replies are built from the conflict report alone.
func NewAssistantHandler(repo database.TaskRepositoryInterface, detector *conflict.Detector, chat *ai.ChatService, clk clock.Clock, log *zap.Logger) *AssistantHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistantHandler{repo: repo, detector: detector, chat: chat, clock: clk, logger: log}
}

// RegisterRoutes registers assistant routes
func (h *AssistantHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/chat", h.Chat).Methods("POST")
	r.HandleFunc("/session", h.CloseSession).Methods("DELETE")
}

// AssistantRequest represents a chat message request
type AssistantRequest struct {
	Message  string            `json:"message" validate:"required,max=4000"`
	Proposed *CandidateRequest `json:"proposed_task,omitempty"`
}

// AssistantResponse carries the reply and, for proposed tasks, the report
type AssistantResponse struct {
	Reply    string                 `json:"reply"`
	Conflict *models.ConflictReport `json:"conflict,omitempty"`
}

// Chat handles one assistant message
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req AssistantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()

	var proposed *models.Task
	if req.Proposed != nil {
		task, err := req.Proposed.toTask(user.ID)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.CreatedAt = h.clock.Now()
		proposed = task
	}

	upcoming, err := h.repo.ListIncompleteTasks(ctx, user.ID)
	if err != nil {
		h.logger.Warn("assistant_task_read_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		upcoming = nil
	}

	planning := &ai.PlanningContext{
		Today:    calendar.DateOf(h.clock.Now()),
		Upcoming: upcoming,
		Proposed: proposed,
	}
	if proposed != nil {
		report := models.NoConflict()
		if err == nil {
			report = h.detector.Evaluate(ctx, proposed, upcoming)
		}
		planning.Conflict = &report
	}

	resp := AssistantResponse{Conflict: planning.Conflict}

	if h.chat != nil {
		reply, chatErr := h.chat.Send(ctx, user.ID, req.Message, planning)
		if chatErr == nil {
			resp.Reply = reply.Message
			respondJSON(w, http.StatusOK, resp)
			return
		}
		h.logger.Warn("assistant_chat_failed_using_fallback",
			zap.String("user_id", user.ID.String()),
			zap.String("error", logger.SanitizeError(chatErr)),
			zap.Bool("rate_limited", ai.IsRateLimitError(chatErr)),
		)
	}

	resp.Reply = fallbackReply(planning)
	respondJSON(w, http.StatusOK, resp)
}

// CloseSession discards the caller's conversation history
func (h *AssistantHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	if h.chat != nil {
		if err := h.chat.CloseSession(r.Context(), user.ID); err != nil {
			h.logger.Error("assistant_session_close_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to close session")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func fallbackReply(p *ai.PlanningContext) string {
	if p.Proposed != nil {
		if p.Conflict != nil && p.Conflict.HasConflict {
			return p.Conflict.Recommendation
		}
		return fmt.Sprintf("%q fits on %s without conflicts.", p.Proposed.Label(), p.Proposed.DueDate)
	}

	today := 0
	for _, t := range p.Upcoming {
		if t.DueDate == p.Today {
			today++
		}
	}
	return fmt.Sprintf("You have %d open tasks, %d due today.", len(p.Upcoming), today)
}
