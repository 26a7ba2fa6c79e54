package store

import (
	"context"
	"fmt"
	"log/slog"

	coreconfig "github.com/m3rciful/tripbot/core/config"
	"github.com/m3rciful/tripbot/core/database"
	"github.com/m3rciful/tripbot/core/logger"
)

// Open builds the store selected by cfg.Store.Driver. The postgres driver
// connects with the database section and closes the pool on Close.
func Open(ctx context.Context, cfg *coreconfig.Config) (*DocStore, error) {
	var (
		s   *DocStore
		err error
	)
	switch cfg.Store.Driver {
	case coreconfig.StoreFile, "":
		s, err = NewFile(cfg.Store.Path)
	case coreconfig.StoreSQLite:
		s, err = NewSQLite(ctx, cfg.Store.Path)
	case coreconfig.StorePostgres:
		db, cerr := database.Connect(ctx, cfg.Database)
		if cerr != nil {
			return nil, cerr
		}
		s = newDocStore(coreconfig.StorePostgres, &sqlBackend{db: db, scanQuery: postgresScanQuery, ownsDB: true})
	case coreconfig.StoreMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Store.Info("store opened",
		slog.String("event", "store.open"),
		slog.String("driver", s.Driver()),
		slog.String("path", cfg.Store.Path),
	)
	return s, nil
}
