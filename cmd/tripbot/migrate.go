package main

import (
	"fmt"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/tripbot/core/cmd"
	coreconfig "github.com/m3rciful/tripbot/core/config"
	"github.com/m3rciful/tripbot/core/database"
	"github.com/m3rciful/tripbot/core/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadStorageConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != coreconfig.StorePostgres {
				return fmt.Errorf("migrate: store.driver is %q, migrations only apply to %q", cfg.Store.Driver, coreconfig.StorePostgres)
			}
			if err := logger.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()
			return database.RunMigrations(cmd.Context(), cfg.Database)
		},
	}
}

func loadStorageConfig() (*coreconfig.Config, error) {
	path, err := corecmd.ResolveConfigPath(configFlag, corecmd.DefaultConfigEnvVar, defaultConfigPath)
	if err != nil {
		return nil, err
	}
	return coreconfig.LoadStorage(path)
}
