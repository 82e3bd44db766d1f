package commands

import (
	"fmt"

	"github.com/astralume/astral-api/internal/config"
	"github.com/astralume/astral-api/internal/database"
)

// openDB loads the environment configuration and connects to Postgres. The
// caller closes the returned handle.
func openDB() (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}
