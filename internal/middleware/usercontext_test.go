package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/study-planner/internal/models"
	"github.com/benvon/study-planner/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockUserRepo struct {
	getOrCreateFunc func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (m *mockUserRepo) GetOrCreate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getOrCreateFunc != nil {
		return m.getOrCreateFunc(ctx, id)
	}
	return &models.User{ID: id, Timezone: "UTC"}, nil
}

func TestUserContext(t *testing.T) {
	t.Parallel()

	validID := uuid.New()

	tests := []struct {
		name       string
		header     string
		repo       *mockUserRepo
		wantStatus int
		wantUser   bool
	}{
		{name: "valid user", header: validID.String(), repo: &mockUserRepo{}, wantStatus: http.StatusOK, wantUser: true},
		{name: "missing header", repo: &mockUserRepo{}, wantStatus: http.StatusUnauthorized},
		{name: "malformed header", header: "student-42", repo: &mockUserRepo{}, wantStatus: http.StatusBadRequest},
		{name: "nil uuid", header: uuid.Nil.String(), repo: &mockUserRepo{}, wantStatus: http.StatusBadRequest},
		{
			name:   "repository failure",
			header: validID.String(),
			repo: &mockUserRepo{getOrCreateFunc: func(context.Context, uuid.UUID) (*models.User, error) {
				return nil, errors.New("db down")
			}},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *models.User
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = request.UserFromContext(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			UserContext(tt.repo, zap.NewNop())(handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantUser {
				if got == nil || got.ID != validID {
					t.Errorf("Expected user %s in context, got %+v", validID, got)
				}
			} else if got != nil {
				t.Errorf("Expected handler not to run, got user %+v", got)
			}
		})
	}
}
