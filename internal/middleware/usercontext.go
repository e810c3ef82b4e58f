package middleware

import (
	"errors"
	"net/http"

	"github.com/benvon/study-planner/internal/database"
	logpkg "github.com/benvon/study-planner/internal/logger"
	"github.com/benvon/study-planner/internal/request"
	"go.uber.org/zap"
)

// UserIDHeader identifies the calling user
const UserIDHeader = request.UserIDHeader

// UserContext resolves X-User-ID to a user row, creating it on first sight,
// and attaches it to the request context
func UserContext(users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := request.UserID(r)
			switch {
			case errors.Is(err, request.ErrMissingUserID):
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", err.Error(), logger)
				return
			case err != nil:
				respondErrorJSON(w, r, http.StatusBadRequest, "Bad Request", err.Error(), logger)
				return
			}

			user, err := users.GetOrCreate(r.Context(), userID)
			if err != nil {
				logger.Error("user_lookup_failed",
					zap.String("user_id", logpkg.SanitizeUserID(userID.String())),
					zap.Error(err),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to load user", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
		})
	}
}
