// Package postgres содержит общий код подключения к Postgres через pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"moodnote/pkg/logger"
)

// Сообщения логгера.
const (
	LogConnecting = "connecting to Postgres"
	LogConnected  = "connected to Postgres"
	LogClosing    = "closing Postgres pool"
)

// Тексты ошибок.
const (
	ErrParseConfig  = "failed to parse connection config"
	ErrPoolOptions  = "invalid pool options"
	ErrCreatePool   = "failed to create connection pool"
	ErrPingDatabase = "failed to ping database"
)

// DefaultPingTimeout ограничивает проверку соединения при старте.
const DefaultPingTimeout = 5 * time.Second

// PoolOptions настройки пула. Нулевые длительности оставляют значения pgxpool.
type PoolOptions struct {
	MinConns          int
	MaxConns          int
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	// StatementTimeout передается серверу как statement_timeout; 0 без ограничения.
	StatementTimeout time.Duration
	ApplicationName  string
	PingTimeout      time.Duration
}

func (o PoolOptions) validate() error {
	switch {
	case o.MinConns < 0 || o.MaxConns < 0:
		return errors.New("connection limits must not be negative")
	case o.MaxConns > math.MaxInt32:
		return fmt.Errorf("max connections %d out of range", o.MaxConns)
	case o.MaxConns > 0 && o.MinConns > o.MaxConns:
		return fmt.Errorf("min connections %d exceed max connections %d", o.MinConns, o.MaxConns)
	case o.MaxConnLifetime < 0 || o.MaxConnIdleTime < 0 || o.HealthCheckPeriod < 0 || o.StatementTimeout < 0:
		return errors.New("durations must not be negative")
	}
	return nil
}

// PoolConfig разбирает dsn и применяет к нему opts.
func PoolConfig(dsn string, opts PoolOptions) (*pgxpool.Config, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrPoolOptions, err)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrParseConfig, err)
	}

	if opts.MaxConns > 0 {
		poolCfg.MaxConns = int32(opts.MaxConns) //nolint:gosec // проверено в validate
	}
	if opts.MinConns > 0 {
		poolCfg.MinConns = int32(opts.MinConns) //nolint:gosec // не больше MaxConns
	}
	if opts.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = opts.HealthCheckPeriod
	}

	params := poolCfg.ConnConfig.RuntimeParams
	if opts.ApplicationName != "" {
		params["application_name"] = opts.ApplicationName
	}
	if opts.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}
	return poolCfg, nil
}

// Database держит пул соединений.
type Database struct {
	pool *pgxpool.Pool
}

// New открывает пул и проверяет соединение.
func New(ctx context.Context, dsn string, opts PoolOptions) (*Database, error) {
	log := logger.Log(ctx).With(zap.String("component", "postgres"))

	poolCfg, err := PoolConfig(dsn, opts)
	if err != nil {
		log.Error(ctx, ErrParseConfig, zap.Error(err))
		return nil, err
	}
	log.Info(ctx, LogConnecting,
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.Int32("min_conn", poolCfg.MinConns),
		zap.Int32("max_conn", poolCfg.MaxConns),
		zap.Duration("max_conn_lifetime", poolCfg.MaxConnLifetime))

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error(ctx, ErrCreatePool, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrCreatePool, err)
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error(ctx, ErrPingDatabase, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrPingDatabase, err)
	}

	log.Info(ctx, LogConnected)
	return &Database{pool: pool}, nil
}

// Pool возвращает пул.
func (db *Database) Pool() *pgxpool.Pool {
	return db.pool
}

// Close закрывает пул.
func (db *Database) Close(ctx context.Context) {
	stat := db.pool.Stat()
	logger.Log(ctx).Info(ctx, LogClosing,
		zap.Int32("total_conns", stat.TotalConns()),
		zap.Int64("acquire_count", stat.AcquireCount()))
	db.pool.Close()
}
