package ai

import (
	"context"

	"github.com/benvon/study-planner/internal/calendar"
	"github.com/benvon/study-planner/internal/models"
)

// AIProvider is the interface for AI providers
type AIProvider interface {
	// SuggestOrdering returns a short natural-language suggestion of which
	// of two competing tasks to do first
	SuggestOrdering(ctx context.Context, first, second *models.Task) (string, error)

	// Chat handles a chat message and returns the AI response
	Chat(ctx context.Context, messages []ChatMessage, planning *PlanningContext) (*ChatResponse, error)
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatResponse represents a response from the AI chat
type ChatResponse struct {
	Message string `json:"message"`
}

// PlanningContext is what the assistant knows about the student's schedule
// when it answers
type PlanningContext struct {
	Today    calendar.Date
	Upcoming []*models.Task
	Proposed *models.Task
	Conflict *models.ConflictReport
}

// ProviderFactory creates an AI provider based on the provider type
type ProviderFactory func(config map[string]string) (AIProvider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (AIProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
