package commands

import (
	"fmt"

	"github.com/benvon/study-planner/internal/config"
	"github.com/benvon/study-planner/internal/database"
)

// openDB loads configuration and connects to the configured database. The
// returned close function is safe to defer.
func openDB() (*database.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, func() { _ = db.Close() }, nil
}
