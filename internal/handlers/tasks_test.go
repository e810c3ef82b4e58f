package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/clock"
	"github.com/benvon/study-planner/internal/conflict"
	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
)

var testNow = time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

func newTestTaskHandler(repo *memoryTaskRepo) *TaskHandler {
	return NewTaskHandler(repo, conflict.NewDetector(repo), clock.Fixed(testNow), nil)
}

func newTestUser() *models.User {
	return &models.User{ID: uuid.New(), Timezone: "UTC"}
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// decodeData unwraps the response envelope into dst
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("Expected success response, got error %q", envelope.Message)
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

func existingTask(userID uuid.UUID, title string, priority models.Priority, due string, dueTime string) *models.Task {
	task := &models.Task{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Subject:   models.DefaultSubject,
		Priority:  priority,
		DueDate:   calendar.MustParseDate(due),
		CreatedAt: testNow.Add(-time.Hour),
	}
	if dueTime != "" {
		tod := calendar.MustParseTimeOfDay(dueTime)
		task.DueTime = &tod
	}
	return task
}

func TestCreateTask_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		body         map[string]any
		expectStatus int
	}{
		{
			name:         "due today is accepted",
			body:         map[string]any{"title": "Essay", "priority": "High", "due_date": "2025-12-01"},
			expectStatus: http.StatusCreated,
		},
		{
			name:         "priority is case-insensitive",
			body:         map[string]any{"title": "Essay", "priority": "medium", "due_date": "2025-12-05"},
			expectStatus: http.StatusCreated,
		},
		{
			name:         "past due date",
			body:         map[string]any{"title": "Essay", "priority": "High", "due_date": "2025-11-30"},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "blank title",
			body:         map[string]any{"title": "   ", "priority": "High", "due_date": "2025-12-05"},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "invalid priority",
			body:         map[string]any{"title": "Essay", "priority": "Urgent", "due_date": "2025-12-05"},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "malformed date",
			body:         map[string]any{"title": "Essay", "priority": "Low", "due_date": "12/05/2025"},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "malformed time",
			body:         map[string]any{"title": "Essay", "priority": "Low", "due_date": "2025-12-05", "due_time": "25:00"},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "unknown field",
			body:         map[string]any{"title": "Essay", "priority": "Low", "due_date": "2025-12-05", "colour": "red"},
			expectStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newMemoryTaskRepo()
			h := newTestTaskHandler(repo)

			w := httptest.NewRecorder()
			h.CreateTask(w, withUser(jsonRequest(t, http.MethodPost, "/api/v1/tasks", tt.body), newTestUser()))

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectStatus, w.Code, w.Body.String())
			}

			wantCount := 0
			if tt.expectStatus == http.StatusCreated {
				wantCount = 1
			}
			if got := repo.count(); got != wantCount {
				t.Errorf("Expected %d stored tasks, got %d", wantCount, got)
			}
		})
	}
}

func TestCreateTask_Unauthorized(t *testing.T) {
	t.Parallel()

	h := newTestTaskHandler(newMemoryTaskRepo())
	w := httptest.NewRecorder()
	h.CreateTask(w, jsonRequest(t, http.MethodPost, "/api/v1/tasks", map[string]any{"title": "Essay"}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestCreateTask_DerivesPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   map[string]any
		expect models.CyclePlan
	}{
		{
			name:   "three hour window",
			body:   map[string]any{"start_time": "09:00", "end_time": "12:00"},
			expect: models.CyclePlan{Mode: models.PlanModeAuto, FocusMinutes: 25, BreakMinutes: 5, SessionCount: 6},
		},
		{
			name:   "no window uses default sessions",
			body:   map[string]any{},
			expect: models.CyclePlan{Mode: models.PlanModeAuto, FocusMinutes: 25, BreakMinutes: 5, SessionCount: 4},
		},
		{
			name:   "custom focus",
			body:   map[string]any{"start_time": "09:00", "end_time": "12:00", "plan": map[string]any{"focus_minutes": 50}},
			expect: models.CyclePlan{Mode: models.PlanModeAuto, FocusMinutes: 50, BreakMinutes: 10, SessionCount: 3},
		},
		{
			name:   "manual session count",
			body:   map[string]any{"start_time": "09:00", "end_time": "12:00", "plan": map[string]any{"mode": "manual", "session_count": 2}},
			expect: models.CyclePlan{Mode: models.PlanModeManual, FocusMinutes: 25, BreakMinutes: 5, SessionCount: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := map[string]any{"title": "Study", "priority": "Medium", "due_date": "2025-12-05"}
			for k, v := range tt.body {
				body[k] = v
			}

			h := newTestTaskHandler(newMemoryTaskRepo())
			w := httptest.NewRecorder()
			h.CreateTask(w, withUser(jsonRequest(t, http.MethodPost, "/api/v1/tasks", body), newTestUser()))

			if w.Code != http.StatusCreated {
				t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
			}

			var task models.Task
			decodeData(t, w, &task)
			if task.PomodoroPlan == nil {
				t.Fatal("Expected a pomodoro plan")
			}
			got := *task.PomodoroPlan
			if got.Mode != tt.expect.Mode || got.FocusMinutes != tt.expect.FocusMinutes ||
				got.BreakMinutes != tt.expect.BreakMinutes || got.SessionCount != tt.expect.SessionCount {
				t.Errorf("Expected plan %+v, got %+v", tt.expect, got)
			}
			if task.Subject != models.DefaultSubject {
				t.Errorf("Expected subject %q, got %q", models.DefaultSubject, task.Subject)
			}
		})
	}
}

func TestCreateTask_CheckConflicts(t *testing.T) {
	t.Parallel()

	user := newTestUser()
	repo := newMemoryTaskRepo(existingTask(user.ID, "Math exam", models.PriorityHigh, "2025-12-05", "10:00"))
	h := newTestTaskHandler(repo)

	body := map[string]any{"title": "Chem lab", "priority": "High", "due_date": "2025-12-05", "due_time": "15:00"}
	w := httptest.NewRecorder()
	h.CreateTask(w, withUser(jsonRequest(t, http.MethodPost, "/api/v1/tasks?check_conflicts=true", body), user))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp CreateTaskResponse
	decodeData(t, w, &resp)
	if resp.Conflict == nil {
		t.Fatal("Expected a conflict report")
	}
	if resp.Conflict.ConflictType != models.ConflictPriority {
		t.Errorf("Expected conflict type %q, got %q", models.ConflictPriority, resp.Conflict.ConflictType)
	}
	if repo.count() != 2 {
		t.Errorf("Expected task to be stored despite the conflict, got %d tasks", repo.count())
	}
}

func TestCreateTask_CheckConflictsPrefersStoredTask(t *testing.T) {
	t.Parallel()

	user := newTestUser()
	repo := newMemoryTaskRepo(existingTask(user.ID, "Physics lab", models.PriorityHigh, "2025-12-05", ""))
	h := newTestTaskHandler(repo)

	body := map[string]any{"title": "Essay draft", "priority": "High", "due_date": "2025-12-05"}
	w := httptest.NewRecorder()
	h.CreateTask(w, withUser(jsonRequest(t, http.MethodPost, "/api/v1/tasks?check_conflicts=true", body), user))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp CreateTaskResponse
	decodeData(t, w, &resp)
	if resp.Conflict == nil || resp.Conflict.ConflictType != models.ConflictPriority {
		t.Fatalf("Expected a priority conflict, got %+v", resp.Conflict)
	}
	want := `Complete "Physics lab" first, then "Essay draft". "Physics lab" was added first.`
	if !strings.Contains(resp.Conflict.Recommendation, want) {
		t.Errorf("Expected recommendation to contain %q, got %q", want, resp.Conflict.Recommendation)
	}
	if !resp.Task.CreatedAt.Equal(testNow) {
		t.Errorf("Expected CreatedAt %v, got %v", testNow, resp.Task.CreatedAt)
	}
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	manual := models.CyclePlan{Mode: models.PlanModeManual, FocusMinutes: 40, BreakMinutes: 15, SessionCount: 2}
	auto := models.CyclePlan{Mode: models.PlanModeAuto, FocusMinutes: 25, BreakMinutes: 5, SessionCount: 4}

	tests := []struct {
		name         string
		plan         models.CyclePlan
		body         map[string]any
		expectStatus int
		validate     func(*testing.T, *models.Task)
	}{
		{
			name:         "window change re-derives auto plan",
			plan:         auto,
			body:         map[string]any{"start_time": "13:00", "end_time": "14:00"},
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				if task.PomodoroPlan.SessionCount != 2 {
					t.Errorf("Expected 2 sessions, got %d", task.PomodoroPlan.SessionCount)
				}
			},
		},
		{
			name:         "window change keeps manual plan",
			plan:         manual,
			body:         map[string]any{"start_time": "13:00", "end_time": "14:00"},
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				p := task.PomodoroPlan
				if p.Mode != models.PlanModeManual || p.BreakMinutes != 15 || p.SessionCount != 2 {
					t.Errorf("Expected manual plan to be kept, got %+v", *p)
				}
				if p.AvailableMinutes == nil || *p.AvailableMinutes != 60 {
					t.Errorf("Expected available minutes 60, got %v", p.AvailableMinutes)
				}
			},
		},
		{
			name:         "title change leaves plan alone",
			plan:         manual,
			body:         map[string]any{"title": "Renamed"},
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				if task.Title != "Renamed" {
					t.Errorf("Expected title 'Renamed', got %q", task.Title)
				}
				if *task.PomodoroPlan != manual {
					t.Errorf("Expected plan %+v, got %+v", manual, *task.PomodoroPlan)
				}
			},
		},
		{
			name:         "past due date is not re-checked",
			plan:         auto,
			body:         map[string]any{"due_date": "2025-11-01"},
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				if task.DueDate.String() != "2025-11-01" {
					t.Errorf("Expected due date 2025-11-01, got %s", task.DueDate)
				}
			},
		},
		{
			name:         "empty string clears due time",
			plan:         auto,
			body:         map[string]any{"due_time": ""},
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				if task.DueTime != nil {
					t.Errorf("Expected due time to be cleared, got %v", task.DueTime)
				}
			},
		},
		{
			name:         "switch to auto discards manual values",
			plan:         manual,
			body:         map[string]any{"plan": map[string]any{"mode": "auto"}},
			expectStatus: http.StatusOK,
			validate: func(t *testing.T, task *models.Task) {
				p := task.PomodoroPlan
				if p.Mode != models.PlanModeAuto || p.FocusMinutes != 40 || p.BreakMinutes != 8 || p.SessionCount != 4 {
					t.Errorf("Expected re-derived auto plan, got %+v", *p)
				}
			},
		},
		{
			name:         "blank title rejected",
			plan:         auto,
			body:         map[string]any{"title": " "},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "invalid time rejected",
			plan:         auto,
			body:         map[string]any{"start_time": "9am"},
			expectStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user := newTestUser()
			task := existingTask(user.ID, "Essay", models.PriorityLow, "2025-12-05", "10:00")
			plan := tt.plan
			task.PomodoroPlan = &plan
			repo := newMemoryTaskRepo(task)
			h := newTestTaskHandler(repo)

			r := jsonRequest(t, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), tt.body)
			w := httptest.NewRecorder()
			h.UpdateTask(w, withID(withUser(r, user), task.ID.String()))

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectStatus, w.Code, w.Body.String())
			}
			if tt.validate == nil {
				return
			}
			var updated models.Task
			decodeData(t, w, &updated)
			tt.validate(t, &updated)
		})
	}
}

func TestTaskHandler_Ownership(t *testing.T) {
	t.Parallel()

	owner := newTestUser()
	task := existingTask(owner.ID, "Essay", models.PriorityLow, "2025-12-05", "")
	repo := newMemoryTaskRepo(task)
	h := newTestTaskHandler(repo)

	tests := []struct {
		name         string
		user         *models.User
		id           string
		expectStatus int
	}{
		{name: "owner", user: owner, id: task.ID.String(), expectStatus: http.StatusOK},
		{name: "other user", user: newTestUser(), id: task.ID.String(), expectStatus: http.StatusForbidden},
		{name: "missing task", user: owner, id: uuid.New().String(), expectStatus: http.StatusNotFound},
		{name: "invalid id", user: owner, id: "not-a-uuid", expectStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+tt.id, nil)
			w := httptest.NewRecorder()
			h.GetTask(w, withID(withUser(r, tt.user), tt.id))

			if w.Code != tt.expectStatus {
				t.Errorf("Expected status %d, got %d", tt.expectStatus, w.Code)
			}
		})
	}
}

func TestToggleAndDeleteTask(t *testing.T) {
	t.Parallel()

	user := newTestUser()
	task := existingTask(user.ID, "Essay", models.PriorityLow, "2025-12-05", "")
	repo := newMemoryTaskRepo(task)
	h := newTestTaskHandler(repo)
	id := task.ID.String()

	for _, want := range []bool{true, false} {
		w := httptest.NewRecorder()
		h.ToggleTask(w, withID(withUser(httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+id+"/toggle", nil), user), id))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var toggled models.Task
		decodeData(t, w, &toggled)
		if toggled.Completed != want {
			t.Errorf("Expected completed=%v, got %v", want, toggled.Completed)
		}
		if want && (toggled.CompletedAt == nil || !toggled.CompletedAt.Equal(testNow)) {
			t.Errorf("Expected completed_at %v, got %v", testNow, toggled.CompletedAt)
		}
	}

	w := httptest.NewRecorder()
	h.DeleteTask(w, withID(withUser(httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+id, nil), user), id))
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	if repo.count() != 0 {
		t.Errorf("Expected task to be deleted, %d remain", repo.count())
	}
}

func TestListTasks_Filters(t *testing.T) {
	t.Parallel()

	user := newTestUser()
	done := existingTask(user.ID, "Done", models.PriorityLow, "2025-12-05", "")
	done.Completed = true
	repo := newMemoryTaskRepo(
		existingTask(user.ID, "Essay", models.PriorityLow, "2025-12-05", ""),
		existingTask(user.ID, "Lab", models.PriorityHigh, "2025-12-06", ""),
		existingTask(uuid.New(), "Someone else", models.PriorityHigh, "2025-12-05", ""),
		done,
	)
	h := newTestTaskHandler(repo)

	tests := []struct {
		name         string
		query        string
		expectStatus int
		expectCount  int
	}{
		{name: "all", query: "", expectStatus: http.StatusOK, expectCount: 3},
		{name: "by date", query: "?date=2025-12-05", expectStatus: http.StatusOK, expectCount: 2},
		{name: "incomplete on date", query: "?date=2025-12-05&completed=false", expectStatus: http.StatusOK, expectCount: 1},
		{name: "bad date", query: "?date=tomorrow", expectStatus: http.StatusBadRequest},
		{name: "bad completed", query: "?completed=maybe", expectStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			h.ListTasks(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/tasks"+tt.query, nil), user))

			if w.Code != tt.expectStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectStatus, w.Code)
			}
			if tt.expectStatus != http.StatusOK {
				return
			}
			var tasks []*models.Task
			decodeData(t, w, &tasks)
			if len(tasks) != tt.expectCount {
				t.Errorf("Expected %d tasks, got %d", tt.expectCount, len(tasks))
			}
		})
	}
}
