package store

import (
	"context"
	"fmt"

	"github.com/avvvet/poker-services/internal/tablesvc/config"
	"github.com/avvvet/poker-services/internal/tablesvc/db"
	log "github.com/sirupsen/logrus"
)

// New opens the store selected by settings.StoreMode.
func New(ctx context.Context, settings config.Settings) (Store, error) {
	switch settings.StoreMode {
	case config.StoreMemory:
		log.Warn("using in-memory table store, state is lost on restart")
		return NewMemory(), nil
	case config.StorePostgres:
		pool, err := db.Connect(ctx, settings.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return NewPostgres(pool), nil
	default:
		return nil, fmt.Errorf("unknown store mode %q", settings.StoreMode)
	}
}
