package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/m3rciful/tripbot/core/bootstrap"
	corecmd "github.com/m3rciful/tripbot/core/cmd"
	coreconfig "github.com/m3rciful/tripbot/core/config"
	"github.com/m3rciful/tripbot/internal/app"
	"github.com/m3rciful/tripbot/internal/store"
)

const defaultConfigPath = "config.yaml"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot, the daily reminder and the ops endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        configFlag,
				DefaultConfigPath: defaultConfigPath,
				LoadConfig:        coreconfig.Load,
				Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
					res, err := bootstrap.Run(ctx, bootstrap.Options[*store.DocStore]{
						Config:    cfg,
						OpenStore: store.Open,
					})
					if err != nil {
						return nil, err
					}
					return app.New(cfg, res.Store), nil
				},
			})
		},
	}
}
