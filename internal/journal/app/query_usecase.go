package app

import (
	"context"
	"fmt"
	"time"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/repositories"
)

// QueryUseCase отвечает на запросы чтения: история и лента дня.
type QueryUseCase struct {
	store repositories.NoteStore
	opts  options
}

// NewQueryUseCase создает use case чтения.
func NewQueryUseCase(store repositories.NoteStore, opts ...Option) *QueryUseCase {
	return &QueryUseCase{store: store, opts: buildOptions(opts)}
}

// History возвращает записи пользователя, новые сверху.
func (uc *QueryUseCase) History(ctx context.Context, userID string) ([]*entities.PrivateNote, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: %s", entities.ErrValidation, entities.MsgUserRequired)
	}
	notes, err := uc.store.ListPrivateNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return notes, nil
}

// Feed возвращает публичные заметки текущих суток в зоне loc, новые сверху.
func (uc *QueryUseCase) Feed(ctx context.Context, loc *time.Location) ([]*entities.PublicNote, error) {
	_, notes, err := uc.FeedOfDay(ctx, loc)
	return notes, err
}

// FeedOfDay как Feed, но возвращает и сами сутки, по которым отобрана лента.
// День и границы выборки берутся из одного показания часов.
func (uc *QueryUseCase) FeedOfDay(ctx context.Context, loc *time.Location) (string, []*entities.PublicNote, error) {
	day := entities.Day(uc.opts.now(), loc)
	from, to, err := entities.DayBounds(day, loc)
	if err != nil {
		return "", nil, err
	}
	notes, err := uc.store.ListPublicNotesBetween(ctx, from, to)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return day, notes, nil
}
