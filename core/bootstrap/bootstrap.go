package bootstrap

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/tripbot/core/config"
	coredatabase "github.com/m3rciful/tripbot/core/database"
	"github.com/m3rciful/tripbot/core/logger"
)

// Options control the bootstrap pipeline. S is the application's store type.
// OpenStore is required; the other hooks fall back to the real implementations.
type Options[S any] struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Migrate    func(context.Context, coreconfig.DatabaseConfig) error
	OpenStore  func(context.Context, *coreconfig.Config) (S, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result[S any] struct {
	Store S
}

// Run initializes the logger, applies migrations when the store lives in
// Postgres, and opens the record store.
func Run[S any](ctx context.Context, opts Options[S]) (*Result[S], error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	if opts.OpenStore == nil {
		return nil, fmt.Errorf("bootstrap: no store opener provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if opts.Config.Store.Driver == coreconfig.StorePostgres {
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, opts.Config.Database); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	st, err := opts.OpenStore(ctx, opts.Config)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: store initialization failed: %w", err)
	}

	return &Result[S]{Store: st}, nil
}
