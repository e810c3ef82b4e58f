package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/study-planner/internal/models"
	"github.com/google/uuid"
)

type mockProvider struct {
	chatFunc    func(ctx context.Context, messages []ChatMessage, planning *PlanningContext) (*ChatResponse, error)
	suggestFunc func(ctx context.Context, first, second *models.Task) (string, error)
}

func (m *mockProvider) Chat(ctx context.Context, messages []ChatMessage, planning *PlanningContext) (*ChatResponse, error) {
	return m.chatFunc(ctx, messages, planning)
}

func (m *mockProvider) SuggestOrdering(ctx context.Context, first, second *models.Task) (string, error) {
	return m.suggestFunc(ctx, first, second)
}

func TestChatService_Send(t *testing.T) {
	t.Parallel()

	var seen int
	provider := &mockProvider{
		chatFunc: func(ctx context.Context, messages []ChatMessage, planning *PlanningContext) (*ChatResponse, error) {
			seen = len(messages)
			return &ChatResponse{Message: "Sounds good."}, nil
		},
	}
	store := NewMemorySessionStore(time.Hour)
	svc := NewChatService(provider, store)
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		resp, err := svc.Send(context.Background(), userID, "Add a quiz for Friday", nil)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if resp.Message != "Sounds good." {
			t.Errorf("Expected provider reply, got %q", resp.Message)
		}
	}

	// Second call sees the first exchange plus the new user message
	if seen != 3 {
		t.Errorf("Expected provider to see 3 messages, got %d", seen)
	}

	session, err := store.Load(context.Background(), userID)
	if err != nil || session == nil {
		t.Fatalf("Expected stored session, got %v, %v", session, err)
	}
	if len(session.Messages) != 4 {
		t.Errorf("Expected 4 stored messages, got %d", len(session.Messages))
	}
}

func TestChatService_Send_ProviderError(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{
		chatFunc: func(ctx context.Context, messages []ChatMessage, planning *PlanningContext) (*ChatResponse, error) {
			return nil, errors.New("upstream timeout")
		},
	}
	store := NewMemorySessionStore(time.Hour)
	svc := NewChatService(provider, store)
	userID := uuid.New()

	if _, err := svc.Send(context.Background(), userID, "hello", nil); err == nil {
		t.Fatal("Expected error from provider")
	}
	if session, _ := store.Load(context.Background(), userID); session != nil {
		t.Errorf("Expected no session to be stored, got %+v", session)
	}
}

func TestChatService_HistoryLimit(t *testing.T) {
	t.Parallel()

	svc := NewChatService(&mockProvider{}, NewMemorySessionStore(time.Hour))
	session := &ChatSession{UserID: uuid.New()}

	for i := 0; i < DefaultMaxHistory+7; i++ {
		svc.AddMessage(session, "user", "msg")
	}
	if len(session.Messages) != DefaultMaxHistory {
		t.Errorf("Expected %d messages, got %d", DefaultMaxHistory, len(session.Messages))
	}
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	userID := uuid.New()
	if err := store.Save(context.Background(), &ChatSession{UserID: userID, LastActivity: now}); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if s, _ := store.Load(context.Background(), userID); s == nil {
		t.Fatal("Expected fresh session to load")
	}

	now = now.Add(2 * time.Minute)
	if s, _ := store.Load(context.Background(), userID); s != nil {
		t.Errorf("Expected expired session to be dropped, got %+v", s)
	}
}

func TestMemorySessionStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore(time.Hour)
	userID := uuid.New()
	original := &ChatSession{UserID: userID, LastActivity: time.Now(), Messages: []ChatMessage{{Role: "user", Content: "hi"}}}
	if err := store.Save(context.Background(), original); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, _ := store.Load(context.Background(), userID)
	loaded.Messages[0].Content = "changed"

	again, _ := store.Load(context.Background(), userID)
	if again.Messages[0].Content != "hi" {
		t.Errorf("Expected stored session to be isolated from callers, got %q", again.Messages[0].Content)
	}

	if err := store.Delete(context.Background(), userID); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if s, _ := store.Load(context.Background(), userID); s != nil {
		t.Error("Expected session to be deleted")
	}
}
