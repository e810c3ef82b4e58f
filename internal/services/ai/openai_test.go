package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
)

func testTask(title, date, dueTime string, priority models.Priority) *models.Task {
	task := &models.Task{
		ID:        uuid.New(),
		Title:     title,
		Subject:   "Math",
		Priority:  priority,
		DueDate:   calendar.MustParseDate(date),
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if dueTime != "" {
		tod := calendar.MustParseTimeOfDay(dueTime)
		task.DueTime = &tod
	}
	return task
}

func TestBuildOrderingPrompt(t *testing.T) {
	t.Parallel()

	a := testTask("Problem set 4", "2025-03-10", "14:00", models.PriorityHigh)
	b := testTask("Essay draft", "2025-03-10", "", models.PriorityHigh)

	prompt := buildOrderingPrompt(a, b)

	expected := []string{
		`Task A: "Problem set 4"`,
		`Task B: "Essay draft"`,
		"2:00 PM",
		"end of day",
		"2025-03-10",
		"added first",
	}
	for _, want := range expected {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q, got:\n%s", want, prompt)
		}
	}
}

func TestBuildOrderingPrompt_StripsControlCharacters(t *testing.T) {
	t.Parallel()

	a := testTask("Read\x1b[31m chapter", "2025-03-10", "", models.PriorityHigh)
	b := testTask("Lab", "2025-03-10", "", models.PriorityHigh)

	if prompt := buildOrderingPrompt(a, b); strings.Contains(prompt, "\x1b") {
		t.Error("Expected escape characters to be removed from prompt")
	}
}

func TestBuildChatSystemPrompt(t *testing.T) {
	t.Parallel()

	upcoming := []*models.Task{
		testTask("Problem set 4", "2025-03-10", "14:00", models.PriorityHigh),
		testTask("Reading", "2025-03-11", "", models.PriorityLow),
	}
	proposed := testTask("Quiz review", "2025-03-10", "14:00", models.PriorityMedium)
	report := &models.ConflictReport{
		HasConflict:    true,
		ConflictType:   models.ConflictTime,
		Recommendation: "Consider another time.",
	}

	tests := []struct {
		name        string
		planning    *PlanningContext
		contains    []string
		notContains []string
	}{
		{
			name:        "nil context",
			planning:    nil,
			contains:    []string{"study planning assistant"},
			notContains: []string{"Today is", "Upcoming"},
		},
		{
			name: "schedule and conflict",
			planning: &PlanningContext{
				Today:    calendar.MustParseDate("2025-03-09"),
				Upcoming: upcoming,
				Proposed: proposed,
				Conflict: report,
			},
			contains: []string{
				"Today is 2025-03-09.",
				"Problem set 4 (Math, High priority) due 2025-03-10 at 2:00 PM",
				"Reading (Math, Low priority) due 2025-03-11",
				`wants to add "Quiz review"`,
				"A time conflict was detected: Consider another time.",
			},
		},
		{
			name: "no conflict is not mentioned",
			planning: &PlanningContext{
				Proposed: proposed,
				Conflict: &models.ConflictReport{ConflictType: models.ConflictNone},
			},
			notContains: []string{"conflict was detected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			prompt := buildChatSystemPrompt(tt.planning)
			for _, want := range tt.contains {
				if !strings.Contains(prompt, want) {
					t.Errorf("Expected prompt to contain %q, got:\n%s", want, prompt)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(prompt, unwanted) {
					t.Errorf("Expected prompt not to contain %q, got:\n%s", unwanted, prompt)
				}
			}
		})
	}
}

func TestBuildChatSystemPrompt_CapsUpcoming(t *testing.T) {
	t.Parallel()

	upcoming := make([]*models.Task, 0, MaxUpcomingInPrompt+5)
	for i := 0; i < MaxUpcomingInPrompt+5; i++ {
		upcoming = append(upcoming, testTask("Task", "2025-03-10", "", models.PriorityLow))
	}

	prompt := buildChatSystemPrompt(&PlanningContext{Upcoming: upcoming})
	if !strings.Contains(prompt, "...and 5 more") {
		t.Errorf("Expected overflow marker, got:\n%s", prompt)
	}
}

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	registry := NewProviderRegistry()
	RegisterOpenAI(registry)

	if _, err := registry.GetProvider("anthropic", nil); err == nil {
		t.Error("Expected error for unknown provider")
	}
	if _, err := registry.GetProvider("openai", map[string]string{}); err == nil {
		t.Error("Expected error when api_key is missing")
	}

	provider, err := registry.GetProvider("openai", map[string]string{"api_key": "sk-test"})
	if err != nil {
		t.Fatalf("Expected provider, got error: %v", err)
	}
	if p, ok := provider.(*OpenAIProvider); !ok || p.model != DefaultOpenAIModel {
		t.Errorf("Expected OpenAIProvider with default model, got %#v", provider)
	}
}
