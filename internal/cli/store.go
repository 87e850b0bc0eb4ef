package cli

import (
	"context"
	"fmt"

	"github.com/vietddude/zonewatch/internal/core/config"
	"github.com/vietddude/zonewatch/internal/infra/storage/postgres"
)

// openStore connects to the configured database. Offline commands need
// persistent storage, so an empty URL is an error.
func openStore(ctx context.Context, cfg *config.AppConfig) (*postgres.Store, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is not configured")
	}
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return postgres.NewStore(db), nil
}
