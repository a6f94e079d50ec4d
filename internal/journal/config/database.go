package config

import (
	"fmt"
	"net/url"
	"time"

	pgdb "moodnote/pkg/db/postgres"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StorageConfig выбирает хранилище.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"MOODNOTE_STORAGE_DRIVER" env-default:"postgres"`
}

// PostgresConfig содержит настройки подключения к базе данных.
type PostgresConfig struct {
	Host           string `yaml:"host" env:"MOODNOTE_POSTGRES_HOST" env-default:"0.0.0.0"`
	Port           int    `yaml:"port" env:"MOODNOTE_POSTGRES_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"MOODNOTE_POSTGRES_USER" env-default:"postgres"`
	Password       string `yaml:"password" env:"MOODNOTE_POSTGRES_PASSWORD" env-default:"postgres"`
	Database       string `yaml:"database" env:"MOODNOTE_POSTGRES_DB" env-default:"moodnote"`
	MinConn        int    `yaml:"min_conn" env:"MOODNOTE_POSTGRES_MIN_CONN" env-default:"1"`
	MaxConn        int    `yaml:"max_conn" env:"MOODNOTE_POSTGRES_MAX_CONN" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"MOODNOTE_POSTGRES_MIGRATIONS_PATH" env-default:"file://migrations/journal"`

	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime" env:"MOODNOTE_POSTGRES_MAX_CONN_LIFETIME" env-default:"30m"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle_time" env:"MOODNOTE_POSTGRES_MAX_CONN_IDLE_TIME" env-default:"5m"`
	HealthCheckPeriod time.Duration `yaml:"health_check_period" env:"MOODNOTE_POSTGRES_HEALTH_CHECK_PERIOD" env-default:"30s"`
	// StatementTimeout ограничивает любой запрос хранилища; живые подписки перечитывают данные часто.
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"MOODNOTE_POSTGRES_STATEMENT_TIMEOUT" env-default:"5s"`
	PingTimeout      time.Duration `yaml:"ping_timeout" env:"MOODNOTE_POSTGRES_PING_TIMEOUT" env-default:"5s"`
}

// PoolOptions переводит настройки в параметры пула; applicationName попадает
// в pg_stat_activity.
func (p *PostgresConfig) PoolOptions(applicationName string) pgdb.PoolOptions {
	return pgdb.PoolOptions{
		MinConns:          p.MinConn,
		MaxConns:          p.MaxConn,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		StatementTimeout:  p.StatementTimeout,
		ApplicationName:   applicationName,
		PingTimeout:       p.PingTimeout,
	}
}

// GetDSN возвращает строку подключения к Postgres.
func (p *PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Database)
}

// GetConnectionURL возвращает URL-строку подключения для миграций.
func (p *PostgresConfig) GetConnectionURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SQLiteConfig настройки встроенного хранилища.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"MOODNOTE_SQLITE_PATH" env-default:"moodnote.db"`
}
