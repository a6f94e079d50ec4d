// Package events рассылает события изменения между экземплярами сервиса через Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/pkg/logger"
)

// DefaultChannel канал событий по умолчанию.
const DefaultChannel = "moodnote:changes"

const (
	LogSubscribed     = "subscribed to change channel"
	LogDecodeFailed   = "failed to decode change event"
	LogPublishFailed  = "failed to publish change event to redis, notifying locally"
	LogBusStopped     = "change bus stopped"
	ErrPublishEvent   = "failed to publish change event"
	ErrSubscribeEvent = "failed to subscribe to change channel"
)

// Notifier получает события, пришедшие из канала.
type Notifier interface {
	Notify(ev entities.ChangeEvent)
}

// RedisBus публикует события в канал и доставляет их локальному Notifier.
// Собственные события экземпляр тоже получает из канала, поэтому локально
// ничего не дублируется.
type RedisBus struct {
	client  *redis.Client
	channel string
	local   Notifier
}

// NewRedisBus создает шину; пустой channel означает DefaultChannel.
func NewRedisBus(client *redis.Client, channel string, local Notifier) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{client: client, channel: channel, local: local}
}

// Publish реализует services.ChangePublisher.
func (b *RedisBus) Publish(ctx context.Context, ev entities.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrPublishEvent, err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		logger.Log(ctx).Warn(ctx, LogPublishFailed, zap.Error(err))
		b.local.Notify(ev)
		return fmt.Errorf("%s: %w", ErrPublishEvent, err)
	}
	return nil
}

// Run слушает канал до отмены ctx.
func (b *RedisBus) Run(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("component", "RedisBus"), zap.String("channel", b.channel))

	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrSubscribeEvent, err)
	}
	log.Info(ctx, LogSubscribed)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, LogBusStopped)
			return nil
		case msg, ok := <-messages:
			if !ok {
				log.Info(ctx, LogBusStopped)
				return nil
			}
			var ev entities.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn(ctx, LogDecodeFailed, zap.Error(err))
				continue
			}
			b.local.Notify(ev)
		}
	}
}
