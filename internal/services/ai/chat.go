package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHistory is how many messages a session keeps for context
const DefaultMaxHistory = 20

// ChatService manages assistant conversations on top of a SessionStore
type ChatService struct {
	provider   AIProvider
	store      SessionStore
	maxHistory int
	now        func() time.Time
}

// ChatSession represents an active chat session
type ChatSession struct {
	UserID       uuid.UUID     `json:"user_id"`
	Messages     []ChatMessage `json:"messages"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// NewChatService creates a new chat service
func NewChatService(provider AIProvider, store SessionStore) *ChatService {
	return &ChatService{
		provider:   provider,
		store:      store,
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
	}
}

// GetOrCreateSession loads the user's session or starts an empty one
func (s *ChatService) GetOrCreateSession(ctx context.Context, userID uuid.UUID) (*ChatSession, error) {
	session, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat session: %w", err)
	}
	if session != nil {
		return session, nil
	}

	now := s.now()
	return &ChatSession{
		UserID:       userID,
		Messages:     make([]ChatMessage, 0),
		CreatedAt:    now,
		LastActivity: now,
	}, nil
}

// AddMessage adds a message to the session, dropping the oldest messages
// beyond the history limit
func (s *ChatService) AddMessage(session *ChatSession, role string, content string) {
	session.Messages = append(session.Messages, ChatMessage{
		Role:    role,
		Content: content,
	})
	if s.maxHistory > 0 && len(session.Messages) > s.maxHistory {
		session.Messages = append([]ChatMessage(nil), session.Messages[len(session.Messages)-s.maxHistory:]...)
	}
	session.LastActivity = s.now()
}

// Send appends the user's message, asks the provider for a reply and saves
// the session. A provider failure leaves the stored session untouched.
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, message string, planning *PlanningContext) (*ChatResponse, error) {
	session, err := s.GetOrCreateSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.AddMessage(session, "user", message)

	response, err := s.provider.Chat(ctx, session.Messages, planning)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat response: %w", err)
	}

	s.AddMessage(session, "assistant", response.Message)

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save chat session: %w", err)
	}

	return response, nil
}

// CloseSession discards a user's conversation
func (s *ChatService) CloseSession(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to close chat session: %w", err)
	}
	return nil
}
