package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/repositories"
	"moodnote/pkg/logger"
)

// LeaderboardUseCase строит рейтинг публичных заметок за скользящее окно.
type LeaderboardUseCase struct {
	store    repositories.NoteStore
	maxLimit int
	opts     options
}

// NewLeaderboardUseCase создает рейтинг; maxLimit ограничивает размер выдачи.
func NewLeaderboardUseCase(store repositories.NoteStore, maxLimit int, opts ...Option) *LeaderboardUseCase {
	return &LeaderboardUseCase{store: store, maxLimit: maxLimit, opts: buildOptions(opts)}
}

// Rank returns up to topN liked notes of the window, anchored at the current time.
func (uc *LeaderboardUseCase) Rank(ctx context.Context, window entities.Window, topN int) ([]*entities.PublicNote, error) {
	if window.Duration() == 0 {
		return nil, fmt.Errorf("%w: unknown leaderboard window %q", entities.ErrValidation, window)
	}
	if topN <= 0 || (uc.maxLimit > 0 && topN > uc.maxLimit) {
		topN = uc.maxLimit
	}

	since := window.Since(uc.opts.now())
	notes, err := uc.store.ListPublicNotesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	ranked := entities.Rank(notes, since, topN)
	logger.Log(ctx).Debug(ctx, "leaderboard ranked",
		zap.String("window", string(window)),
		zap.Int("candidates", len(notes)),
		zap.Int("ranked", len(ranked)))
	return ranked, nil
}
