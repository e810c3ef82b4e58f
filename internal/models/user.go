package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a student using the planner. Identity is taken from the
// X-User-ID header; there is no credential handling.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName *string   `json:"display_name,omitempty"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
