package config

import (
	"time"

	"moodnote/pkg/db/redis"
)

// RedisConfig представляет конфигурацию для Redis. Без Redis события изменений
// не покидают процесс, а подсказки не ограничиваются по частоте.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" env:"MOODNOTE_REDIS_ENABLED" env-default:"false"`
	Host         string        `yaml:"host" env:"MOODNOTE_REDIS_HOST" env-default:"localhost"`
	Port         int           `yaml:"port" env:"MOODNOTE_REDIS_PORT" env-default:"6379"`
	Password     string        `yaml:"password" env:"MOODNOTE_REDIS_PASSWORD" env-default:""`
	DB           int           `yaml:"db" env:"MOODNOTE_REDIS_DB" env-default:"0"`
	PoolSize     int           `yaml:"pool_size" env:"MOODNOTE_REDIS_POOL_SIZE" env-default:"10"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"MOODNOTE_REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"MOODNOTE_REDIS_READ_TIMEOUT" env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"MOODNOTE_REDIS_WRITE_TIMEOUT" env-default:"3s"`
	Channel      string        `yaml:"channel" env:"MOODNOTE_REDIS_CHANNEL" env-default:"moodnote:changes"`
}

// Client возвращает настройки клиента.
func (c *RedisConfig) Client() *redis.Config {
	return &redis.Config{
		Host:         c.Host,
		Port:         c.Port,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
