package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moodnote/internal/journal/adapters/postgres"
	"moodnote/internal/journal/adapters/sqlite"
	"moodnote/internal/journal/config"
	"moodnote/internal/journal/ports/repositories"
	pgdb "moodnote/pkg/db/postgres"
	"moodnote/pkg/logger"
	"moodnote/pkg/shutdown"
)

const (
	LogOpeningStorage = "opening storage"
	ErrOpenStorage    = "failed to open storage"
)

// Storage хранилище заметок и хук его закрытия.
type Storage struct {
	Store repositories.NoteStore
	Close shutdown.Hook
}

// OpenStorage открывает хранилище, выбранное в конфигурации. Для Postgres
// миграции применяются перед открытием пула.
func OpenStorage(ctx context.Context, cfg *config.Config, now func() time.Time) (*Storage, error) {
	log := logger.Log(ctx).With(zap.String("method", "bootstrap.OpenStorage"))
	log.Info(ctx, LogOpeningStorage, zap.String("driver", cfg.Storage.Driver))

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrOpenStorage, err)
		}
		return &Storage{
			Store: sqlite.NewNoteStore(db, now),
			Close: func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverPostgres:
		if err := pgdb.MigrateDSN(ctx, cfg.Postgres.GetConnectionURL(), cfg.Postgres.MigrationsPath); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrOpenStorage, err)
		}
		db, err := pgdb.New(ctx, cfg.Postgres.GetDSN(), cfg.Postgres.PoolOptions(ServiceName))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrOpenStorage, err)
		}
		return &Storage{
			Store: postgres.NewNoteStore(db.Pool()),
			Close: func(ctx context.Context) error {
				db.Close(ctx)
				return nil
			},
		}, nil

	default:
		return nil, fmt.Errorf("%s: unknown driver %q", ErrOpenStorage, cfg.Storage.Driver)
	}
}
