// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vantagecrm/automation/pkg/persistence"
	"github.com/vantagecrm/automation/pkg/persistence/file"
	"github.com/vantagecrm/automation/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme:
// postgres:// connects to PostgreSQL, anything else is treated as a file
// persistence root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL persistence: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
