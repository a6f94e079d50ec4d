package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/repositories"
	"moodnote/pkg/logger"
)

// Результаты лайка для метрик.
const (
	LikeAccepted     = "accepted"
	LikeDuplicate    = "already_liked"
	LikeMissing      = "not_found"
	LikeStoreFailure = "error"
)

// LikeUseCase учитывает лайки публичных заметок: не больше одного от пользователя.
type LikeUseCase struct {
	store repositories.NoteStore
	opts  options
}

// NewLikeUseCase создает use case лайков.
func NewLikeUseCase(store repositories.NoteStore, opts ...Option) *LikeUseCase {
	return &LikeUseCase{store: store, opts: buildOptions(opts)}
}

// Like ставит лайк. Повторный лайк того же пользователя возвращает ErrAlreadyLiked.
func (uc *LikeUseCase) Like(ctx context.Context, userID, publicNoteID string) (*entities.PublicNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "LikeUseCase.Like"))

	if userID == "" || publicNoteID == "" {
		return nil, fmt.Errorf("%w: user id and note id are required", entities.ErrValidation)
	}

	note, err := uc.store.AddLike(ctx, publicNoteID, userID)
	switch {
	case err == nil:
	case errors.Is(err, entities.ErrAlreadyLiked):
		uc.opts.metrics.LikeResult(LikeDuplicate)
		log.Debug(ctx, "note already liked", zap.String("noteID", publicNoteID))
		return nil, err
	case errors.Is(err, entities.ErrNotFound):
		uc.opts.metrics.LikeResult(LikeMissing)
		return nil, err
	default:
		uc.opts.metrics.LikeResult(LikeStoreFailure)
		log.Error(ctx, "failed to add like", zap.String("noteID", publicNoteID), zap.Error(err))
		return nil, fmt.Errorf("failed to add like: %w", err)
	}

	uc.opts.metrics.LikeResult(LikeAccepted)
	emit(ctx, uc.opts.publisher, uc.opts.now, entities.ChangeLike, note.UserID, note.ID)

	log.Debug(ctx, "like recorded", zap.String("noteID", note.ID), zap.Int("likeCount", note.LikeCount))
	return note, nil
}
