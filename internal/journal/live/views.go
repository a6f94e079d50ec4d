package live

import (
	"context"
	"fmt"
	"time"

	"moodnote/internal/journal/domain/entities"
)

// View источник строк одного представления.
type View interface {
	// Kind метка представления для логов и метрик.
	Kind() string
	Load(ctx context.Context) ([]Row, error)
	// Relevant сообщает, может ли событие изменить представление.
	Relevant(ev entities.ChangeEvent) bool
}

// HistoryReader читает историю пользователя.
type HistoryReader interface {
	History(ctx context.Context, userID string) ([]*entities.PrivateNote, error)
}

// FeedReader читает ленту дня.
type FeedReader interface {
	Feed(ctx context.Context, loc *time.Location) ([]*entities.PublicNote, error)
}

// Ranker строит рейтинг.
type Ranker interface {
	Rank(ctx context.Context, window entities.Window, topN int) ([]*entities.PublicNote, error)
}

// PublicItem публичная заметка глазами конкретного зрителя.
type PublicItem struct {
	*entities.PublicNote
	LikedByMe bool `json:"liked_by_me"`
}

// NewPublicItem скрывает лайкнувших и оставляет только отметку зрителя.
func NewPublicItem(n *entities.PublicNote, viewerID string) PublicItem {
	return PublicItem{PublicNote: n, LikedByMe: viewerID != "" && n.LikedByUser(viewerID)}
}

func privateRows(notes []*entities.PrivateNote) []Row {
	rows := make([]Row, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, Row{
			Key:         n.ID,
			Fingerprint: fmt.Sprintf("%s|%s|%t|%s", n.Mood, n.Message, n.IsPublic, n.PublicNoteID),
			Value:       n,
		})
	}
	return rows
}

func publicRows(notes []*entities.PublicNote, viewerID string) []Row {
	rows := make([]Row, 0, len(notes))
	for _, n := range notes {
		item := NewPublicItem(n, viewerID)
		rows = append(rows, Row{
			Key:         n.ID,
			Fingerprint: fmt.Sprintf("%s|%s|%d|%t", n.Mood, n.Message, n.LikeCount, item.LikedByMe),
			Value:       item,
		})
	}
	return rows
}

type historyView struct {
	reader HistoryReader
	userID string
}

// HistoryView история пользователя userID.
func HistoryView(reader HistoryReader, userID string) View {
	return &historyView{reader: reader, userID: userID}
}

func (v *historyView) Kind() string { return "history" }

func (v *historyView) Load(ctx context.Context) ([]Row, error) {
	notes, err := v.reader.History(ctx, v.userID)
	if err != nil {
		return nil, err
	}
	return privateRows(notes), nil
}

func (v *historyView) Relevant(ev entities.ChangeEvent) bool {
	return ev.Kind != entities.ChangeLike && ev.UserID == v.userID
}

type feedView struct {
	reader   FeedReader
	loc      *time.Location
	viewerID string
}

// FeedView лента текущих суток зрителя в зоне loc.
func FeedView(reader FeedReader, loc *time.Location, viewerID string) View {
	return &feedView{reader: reader, loc: loc, viewerID: viewerID}
}

func (v *feedView) Kind() string { return "feed" }

func (v *feedView) Load(ctx context.Context) ([]Row, error) {
	notes, err := v.reader.Feed(ctx, v.loc)
	if err != nil {
		return nil, err
	}
	return publicRows(notes, v.viewerID), nil
}

func (v *feedView) Relevant(ev entities.ChangeEvent) bool { return ev.AffectsPublic() }

type leaderboardView struct {
	ranker   Ranker
	window   entities.Window
	limit    int
	viewerID string
}

// LeaderboardView рейтинг окна window, не больше limit строк.
func LeaderboardView(ranker Ranker, window entities.Window, limit int, viewerID string) View {
	return &leaderboardView{ranker: ranker, window: window, limit: limit, viewerID: viewerID}
}

func (v *leaderboardView) Kind() string { return "leaderboard_" + string(v.window) }

func (v *leaderboardView) Load(ctx context.Context) ([]Row, error) {
	notes, err := v.ranker.Rank(ctx, v.window, v.limit)
	if err != nil {
		return nil, err
	}
	return publicRows(notes, v.viewerID), nil
}

func (v *leaderboardView) Relevant(ev entities.ChangeEvent) bool { return ev.AffectsPublic() }
