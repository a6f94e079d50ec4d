package services

import (
	"context"
	"time"

	"moodnote/internal/journal/domain/entities"
)

// PublicationService сохраняет записи и переключает их видимость.
type PublicationService interface {
	NewDraft(userID, mood, message string, loc *time.Location) (*entities.Draft, error)
	Save(ctx context.Context, draft *entities.Draft, intent entities.ShareIntent) (*entities.Outcome, error)
	ResolveSwap(ctx context.Context, draft *entities.Draft, decision entities.SwapDecision, loc *time.Location) (*entities.Outcome, error)
	SetVisibility(ctx context.Context, userID, noteID string, public bool) (*entities.Outcome, error)
	ResolveToggleSwap(ctx context.Context, userID, noteID string, decision entities.SwapDecision) (*entities.Outcome, error)
}

// LikeService ставит лайки.
type LikeService interface {
	Like(ctx context.Context, userID, publicNoteID string) (*entities.PublicNote, error)
}

// QueryService читает историю и ленту.
type QueryService interface {
	History(ctx context.Context, userID string) ([]*entities.PrivateNote, error)
	Feed(ctx context.Context, loc *time.Location) ([]*entities.PublicNote, error)
	FeedOfDay(ctx context.Context, loc *time.Location) (string, []*entities.PublicNote, error)
}

// LeaderboardService строит рейтинг.
type LeaderboardService interface {
	Rank(ctx context.Context, window entities.Window, topN int) ([]*entities.PublicNote, error)
}

// SuggestionService предлагает начало записи.
type SuggestionService interface {
	Suggest(ctx context.Context, userID, mood string) (string, error)
}

// IdentityService выдает и проверяет анонимные идентификаторы.
type IdentityService interface {
	Anonymous(ctx context.Context) (userID, token string, err error)
	Resolve(ctx context.Context, token string) (string, error)
}
