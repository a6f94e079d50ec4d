package entities

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Window окно рейтинга.
type Window string

const (
	WindowLast7Days  Window = "last7days"
	WindowLast30Days Window = "last30days"
)

// Windows возвращает поддерживаемые окна.
func Windows() []Window {
	return []Window{WindowLast7Days, WindowLast30Days}
}

// Duration длина окна. Окна скользящие и не зависят от часового пояса.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowLast7Days:
		return 7 * 24 * time.Hour
	case WindowLast30Days:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Since возвращает нижнюю границу окна относительно now.
func (w Window) Since(now time.Time) time.Time {
	return now.Add(-w.Duration())
}

// ParseWindow принимает last7days/last30days, а также weekly/monthly.
func ParseWindow(raw string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(WindowLast7Days), "weekly", "week", "7d":
		return WindowLast7Days, nil
	case string(WindowLast30Days), "monthly", "month", "30d":
		return WindowLast30Days, nil
	default:
		return "", fmt.Errorf("%w: unknown leaderboard window %q", ErrValidation, raw)
	}
}

// Rank keeps notes created at or after since with at least one like and orders
// them by like count desc, then created_at desc, then id asc. topN <= 0 means
// no limit. The input slice is not modified.
func Rank(notes []*PublicNote, since time.Time, topN int) []*PublicNote {
	ranked := make([]*PublicNote, 0, len(notes))
	for _, n := range notes {
		if n == nil || n.LikeCount <= 0 || n.CreatedAt.Before(since) {
			continue
		}
		ranked = append(ranked, n)
	}

	slices.SortStableFunc(ranked, CompareRank)

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// CompareRank порядок рейтинга.
func CompareRank(a, b *PublicNote) int {
	if a.LikeCount != b.LikeCount {
		if a.LikeCount > b.LikeCount {
			return -1
		}
		return 1
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// Reveal returns the prefix shown after "show more" was pressed; shown is the
// current visible count and step the increment. It never refetches.
func Reveal[T any](ranked []T, shown, step int) []T {
	n := shown + step
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
