package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"moodnote/internal/journal/bootstrap"
	"moodnote/pkg/logger"
	"moodnote/pkg/shutdown"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "moodnote service started"
	LogServiceShutdownDone = "moodnote service shutdown complete"
	LogInitService         = "initializing service"
)

func newServeCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.Log(ctx)
			cfg := state.cfg

			log.Info(ctx, LogServiceStarted,
				zap.String("environment", string(cfg.Logging.GetEnvironment())),
				zap.String("log_level", cfg.Logging.Level),
				zap.String("storage", cfg.Storage.Driver),
				zap.String("startup_time", time.Now().Format(time.RFC3339)))

			log.Info(ctx, LogInitService)
			svc, err := bootstrap.New(ctx, cfg)
			if err != nil {
				return err
			}

			svc.Start(ctx)

			shutdown.Wait(ctx, cfg.Shutdown.GetTimeout(), svc.Hooks()...)

			log.Info(ctx, LogServiceShutdownDone)
			return nil
		},
	}
}
