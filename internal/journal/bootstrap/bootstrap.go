// Package bootstrap собирает сервис журнала из конфигурации.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"moodnote/internal/journal/adapters/events"
	journalhttp "moodnote/internal/journal/adapters/http"
	"moodnote/internal/journal/adapters/metrics"
	"moodnote/internal/journal/adapters/ratelimit"
	"moodnote/internal/journal/adapters/textgen"
	"moodnote/internal/journal/adapters/tokens"
	"moodnote/internal/journal/app"
	"moodnote/internal/journal/config"
	"moodnote/internal/journal/live"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/db/redis"
	"moodnote/pkg/logger"
	"moodnote/pkg/shutdown"
)

// ServiceName имя сервиса в Fiber и в application_name соединений Postgres.
const ServiceName = "moodnote"

// Константы для сообщений сервиса.
const (
	LogInitRedis         = "initializing Redis change bus and rate limiter"
	LogRedisDisabled     = "Redis disabled, change events stay in process"
	LogGeneratorDisabled = "text generation disabled"
	LogStartingHTTP      = "starting HTTP server"
	LogStoppingHTTP      = "stopping HTTP server"
	LogReconcileFailed   = "scheduled reconciliation failed"
	LogSchedulerStarted  = "reconciliation scheduler started"
	LogSchedulerStopped  = "reconciliation scheduler stopped"
	LogBusStopped        = "change bus stopped with error"

	ErrCreateRedisClient = "failed to create Redis client"
	ErrCreateGenerator   = "failed to create text generator"
	ErrStartHTTPServer   = "failed to start HTTP server"
)

// Service собранный сервис.
type Service struct {
	cfg        *config.Config
	http       *fiber.App
	hub        *live.Hub
	bus        *events.RedisBus
	scheduler  *cron.Cron
	reconciler *app.ReconcileUseCase
	closers    []shutdown.Hook
	cancel     context.CancelFunc
}

// New собирает зависимости. Ничего не запускает до Start.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	log := logger.Log(ctx).With(zap.String("method", "bootstrap.New"))

	loc, err := cfg.Journal.Location()
	if err != nil {
		return nil, err
	}
	schedule, err := cfg.Reconcile.ParseSchedule()
	if err != nil {
		return nil, err
	}

	storage, err := OpenStorage(ctx, cfg, time.Now)
	if err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, closers: []shutdown.Hook{storage.Close}}

	prom := metrics.New()
	s.hub = live.NewHub(
		live.WithRefreshInterval(cfg.Journal.LiveRefresh),
		live.WithObserver(prom),
	)

	var publisher services.ChangePublisher = s.hub
	var limiter services.RateLimiter
	if cfg.Redis.Enabled {
		log.Info(ctx, LogInitRedis)
		client, err := redis.NewClient(ctx, cfg.Redis.Client())
		if err != nil {
			s.closeAll(ctx)
			return nil, fmt.Errorf("%s: %w", ErrCreateRedisClient, err)
		}
		s.closers = append(s.closers, client.Close)
		s.bus = events.NewRedisBus(client.Raw(), cfg.Redis.Channel, s.hub)
		publisher = s.bus
		limiter = ratelimit.NewRedisLimiter(client.Raw(), cfg.AI.RateLimit, cfg.AI.RateLimitWindow)
	} else {
		log.Info(ctx, LogRedisDisabled)
	}

	var generator services.TextGenerator
	gen, err := textgen.New(cfg.AI.Generator(), cfg.AI.Resilience())
	switch {
	case errors.Is(err, textgen.ErrDisabled):
		log.Info(ctx, LogGeneratorDisabled)
	case err != nil:
		s.closeAll(ctx)
		return nil, fmt.Errorf("%s: %w", ErrCreateGenerator, err)
	default:
		generator = gen
	}

	opts := []app.Option{app.WithPublisher(publisher), app.WithMetrics(prom)}
	jwtService := tokens.NewJWT(cfg.JWT.SecretKey, cfg.JWT.Issuer, cfg.JWT.TTL)
	identity := app.NewIdentityUseCase(jwtService)
	queries := app.NewQueryUseCase(storage.Store, opts...)
	leaderboard := app.NewLeaderboardUseCase(storage.Store, cfg.Journal.LeaderboardMaxLimit, opts...)
	s.reconciler = app.NewReconcileUseCase(storage.Store, cfg.Reconcile.Grace, opts...)

	s.http = fiber.New(fiber.Config{
		AppName:      ServiceName,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		BodyLimit:    cfg.HTTP.BodyLimit,
	})
	journalhttp.SetupRouter(s.http, journalhttp.Dependencies{
		Logger:          logger.Log(ctx),
		Identity:        identity,
		Publication:     app.NewPublicationUseCase(storage.Store, opts...),
		Queries:         queries,
		Likes:           app.NewLikeUseCase(storage.Store, opts...),
		Leaderboard:     leaderboard,
		Suggestions:     app.NewSuggestionUseCase(generator, limiter, opts...),
		Drafts:          jwtService,
		Hub:             s.hub,
		Metrics:         prom,
		MetricsHandler:  prom.Handler(),
		DefaultLocation: loc,
		LeaderboardPage: cfg.Journal.LeaderboardPageSize,
		KeepAlive:       cfg.Journal.LiveKeepAlive,
	})

	if schedule != nil {
		s.scheduler = cron.New()
		s.scheduler.Schedule(schedule, cron.FuncJob(func() { s.reconcile(ctx) }))
	}

	return s, nil
}

// Start запускает шину событий, планировщик и HTTP сервер.
func (s *Service) Start(ctx context.Context) {
	log := logger.Log(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if s.bus != nil {
		go func() {
			if err := s.bus.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(ctx, LogBusStopped, zap.Error(err))
			}
		}()
	}

	if s.scheduler != nil {
		s.scheduler.Start()
		log.Info(ctx, LogSchedulerStarted, zap.String("schedule", s.cfg.Reconcile.Schedule))
	}

	log.Info(ctx, LogStartingHTTP, zap.String("address", s.cfg.HTTP.GetAddress()))
	go func() {
		if err := s.http.Listen(s.cfg.HTTP.GetAddress()); err != nil {
			log.Error(ctx, ErrStartHTTPServer, zap.Error(err))
		}
	}()
}

// Hooks возвращает хуки завершения. HTTP останавливается первым, затем
// закрываются подписки, фоновые задачи и соединения.
func (s *Service) Hooks() []shutdown.Hook {
	return []shutdown.Hook{
		func(ctx context.Context) error {
			logger.Log(ctx).Info(ctx, LogStoppingHTTP)
			if err := s.hub.Close(ctx); err != nil {
				return err
			}
			if err := s.http.ShutdownWithContext(ctx); err != nil {
				return fmt.Errorf("failed to stop HTTP server: %w", err)
			}
			s.stopBackground(ctx)
			return s.closeAll(ctx)
		},
	}
}

func (s *Service) stopBackground(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler != nil {
		select {
		case <-s.scheduler.Stop().Done():
			logger.Log(ctx).Info(ctx, LogSchedulerStopped)
		case <-ctx.Done():
		}
	}
}

func (s *Service) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) reconcile(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	if _, err := s.reconciler.Run(runCtx); err != nil {
		logger.Log(ctx).Error(ctx, LogReconcileFailed, zap.Error(err))
	}
}
