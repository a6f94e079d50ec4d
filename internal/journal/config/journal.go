package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// JournalConfig поведение журнала.
type JournalConfig struct {
	DefaultTimezone     string        `yaml:"default_timezone" env:"MOODNOTE_JOURNAL_DEFAULT_TIMEZONE" env-default:"UTC"`
	LeaderboardMaxLimit int           `yaml:"leaderboard_max_limit" env:"MOODNOTE_JOURNAL_LEADERBOARD_MAX_LIMIT" env-default:"100"`
	LeaderboardPageSize int           `yaml:"leaderboard_page_size" env:"MOODNOTE_JOURNAL_LEADERBOARD_PAGE_SIZE" env-default:"10"`
	LiveRefresh         time.Duration `yaml:"live_refresh" env:"MOODNOTE_JOURNAL_LIVE_REFRESH" env-default:"1m"`
	LiveKeepAlive       time.Duration `yaml:"live_keep_alive" env:"MOODNOTE_JOURNAL_LIVE_KEEP_ALIVE" env-default:"15s"`
}

// Location возвращает часовой пояс по умолчанию.
func (c *JournalConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone %q: %w", c.DefaultTimezone, err)
	}
	return loc, nil
}

// ReconcileConfig настройки периодической сверки.
type ReconcileConfig struct {
	Schedule string        `yaml:"schedule" env:"MOODNOTE_RECONCILE_SCHEDULE" env-default:"@every 5m"`
	Grace    time.Duration `yaml:"grace" env:"MOODNOTE_RECONCILE_GRACE" env-default:"2m"`
}

// ParseSchedule разбирает расписание в формате cron; пустое отключает сверку.
func (c *ReconcileConfig) ParseSchedule() (cron.Schedule, error) {
	if c.Schedule == "" {
		return nil, nil
	}
	schedule, err := cron.ParseStandard(c.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", c.Schedule, err)
	}
	return schedule, nil
}
