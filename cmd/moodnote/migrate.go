package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"moodnote/internal/journal/config"
	"moodnote/pkg/db/postgres"
	"moodnote/pkg/logger"
)

const (
	LogMigrationsApplied   = "migrations applied"
	LogMigrationsReverted  = "migrations reverted"
	LogMigrationVersion    = "current migration version"
	LogSQLiteSchemaOnOpen  = "sqlite schema is applied when the database is opened"
	ErrMigrationsNeedPGSQL = "migrations are managed only for postgres"
)

type migrateFlags struct {
	down    int
	version bool
}

func newMigrateCommand(state *cli) *cobra.Command {
	flags := &migrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate [--down N] [--version]",
		Short: "Apply or revert database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.Log(ctx)
			cfg := state.cfg

			if cfg.Storage.Driver == config.DriverSQLite {
				log.Info(ctx, LogSQLiteSchemaOnOpen)
				return nil
			}
			if cfg.Storage.Driver != config.DriverPostgres {
				return errors.New(ErrMigrationsNeedPGSQL)
			}

			dsn := cfg.Postgres.GetConnectionURL()
			path := cfg.Postgres.MigrationsPath

			switch {
			case flags.version:
				version, dirty, err := postgres.VersionDSN(ctx, dsn, path)
				if err != nil {
					return err
				}
				log.Info(ctx, LogMigrationVersion, zap.Uint("version", version), zap.Bool("dirty", dirty))
				return nil

			case flags.down > 0:
				if err := postgres.RollbackDSN(ctx, dsn, path, flags.down); err != nil {
					return err
				}
				log.Info(ctx, LogMigrationsReverted, zap.Int("steps", flags.down))
				return nil

			case flags.down < 0:
				return fmt.Errorf("invalid --down value %d", flags.down)

			default:
				if err := postgres.MigrateDSN(ctx, dsn, path); err != nil {
					return err
				}
				log.Info(ctx, LogMigrationsApplied)
				return nil
			}
		},
	}

	cmd.Flags().IntVar(&flags.down, "down", 0, "revert N migrations")
	cmd.Flags().BoolVar(&flags.version, "version", false, "print the current migration version")
	return cmd
}
