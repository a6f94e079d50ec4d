package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodnote/internal/journal/config"
	"moodnote/pkg/logger"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()

	t.Setenv("MOODNOTE_STORAGE_DRIVER", config.DriverSQLite)
	t.Setenv("MOODNOTE_SQLITE_PATH", ":memory:")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	return cfg
}

func closeService(t *testing.T, s *Service) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.hub.Close(ctx))
	s.stopBackground(ctx)
	require.NoError(t, s.closeAll(ctx))
}

func TestOpenStorage(t *testing.T) {
	logger.SetGlobalLogger(logger.NewNop())
	defer logger.SetGlobalLogger(nil)

	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		cfg := loadConfig(t, nil)

		storage, err := OpenStorage(ctx, cfg, time.Now)
		require.NoError(t, err)
		require.NotNil(t, storage.Store)
		require.NoError(t, storage.Close(ctx))
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := loadConfig(t, nil)
		cfg.Storage.Driver = "mongo"

		_, err := OpenStorage(ctx, cfg, time.Now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrOpenStorage)
	})
}

func TestNew(t *testing.T) {
	logger.SetGlobalLogger(logger.NewNop())
	defer logger.SetGlobalLogger(nil)

	ctx := context.Background()

	t.Run("in-process events without Redis", func(t *testing.T) {
		cfg := loadConfig(t, nil)

		s, err := New(ctx, cfg)
		require.NoError(t, err)
		defer closeService(t, s)

		assert.Nil(t, s.bus)
		assert.NotNil(t, s.scheduler)

		resp, err := s.http.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Redis change bus", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := loadConfig(t, map[string]string{
			"MOODNOTE_REDIS_ENABLED": "true",
			"MOODNOTE_REDIS_HOST":    mr.Host(),
			"MOODNOTE_REDIS_PORT":    mr.Port(),
		})

		s, err := New(ctx, cfg)
		require.NoError(t, err)
		defer closeService(t, s)

		assert.NotNil(t, s.bus)
	})

	t.Run("reconciliation disabled", func(t *testing.T) {
		cfg := loadConfig(t, nil)
		cfg.Reconcile.Schedule = ""

		s, err := New(ctx, cfg)
		require.NoError(t, err)
		defer closeService(t, s)

		assert.Nil(t, s.scheduler)
	})

	t.Run("scheduled pass runs against the store", func(t *testing.T) {
		cfg := loadConfig(t, nil)

		s, err := New(ctx, cfg)
		require.NoError(t, err)
		defer closeService(t, s)

		assert.NotPanics(t, func() { s.reconcile(ctx) })
	})
}
