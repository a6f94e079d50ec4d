package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"moodnote/internal/journal/app"
	"moodnote/internal/journal/bootstrap"
	"moodnote/pkg/logger"
)

const LogReconcileDone = "reconciliation finished"

func newReconcileCommand(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over the journal and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := state.cfg

			storage, err := bootstrap.OpenStorage(ctx, cfg, time.Now)
			if err != nil {
				return err
			}
			defer func() {
				_ = storage.Close(ctx)
			}()

			report, err := app.NewReconcileUseCase(storage.Store, cfg.Reconcile.Grace).Run(ctx)
			if err != nil {
				return err
			}

			logger.Log(ctx).Info(ctx, LogReconcileDone,
				zap.Int("orphans_deleted", report.OrphansDeleted),
				zap.Int("flags_cleared", report.FlagsCleared))
			return nil
		},
	}
}
