// Package dto описывает тела запросов и ответов HTTP API журнала.
package dto

import (
	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/live"
)

// SaveEntryRequest новая запись и намерение ею поделиться.
type SaveEntryRequest struct {
	Mood    string `json:"mood" validate:"required"`
	Message string `json:"message" validate:"required,max=2000"`
	Share   string `json:"share" validate:"omitempty,oneof=private public"`
}

// SwapRequest решение о замене дневной публичной записи. DraftToken берется из
// ответа 409 на сохранение.
type SwapRequest struct {
	DraftToken string `json:"draft_token" validate:"required"`
	Decision   string `json:"decision" validate:"required,oneof=swap decline"`
}

// ToggleSwapRequest решение о замене при переключении видимости.
type ToggleSwapRequest struct {
	Decision string `json:"decision" validate:"required,oneof=swap decline"`
}

// VisibilityRequest новая видимость записи истории.
type VisibilityRequest struct {
	Public *bool `json:"public" validate:"required"`
}

// SuggestionRequest запрос подсказки.
type SuggestionRequest struct {
	Mood string `json:"mood" validate:"required"`
}

// IdentityResponse анонимная личность.
type IdentityResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// MoodResponse элемент каталога настроений.
type MoodResponse struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

// SuggestionResponse сгенерированное начало записи.
type SuggestionResponse struct {
	Text string `json:"text"`
}

// HistoryResponse записи пользователя.
type HistoryResponse struct {
	Entries []*entities.PrivateNote `json:"entries"`
}

// FeedResponse публичные записи дня.
type FeedResponse struct {
	Date  string            `json:"date"`
	Notes []live.PublicItem `json:"notes"`
}

// LikeResponse заметка после лайка.
type LikeResponse struct {
	Note live.PublicItem `json:"note"`
}

// LeaderboardResponse видимая часть рейтинга.
type LeaderboardResponse struct {
	Window  string            `json:"window"`
	Notes   []live.PublicItem `json:"notes"`
	Total   int               `json:"total"`
	HasMore bool              `json:"has_more"`
}

// OutcomeResponse результат шага публикации; DraftToken заполнен, пока
// ожидается решение о замене нового черновика.
type OutcomeResponse struct {
	*entities.Outcome
	DraftToken string `json:"draft_token,omitempty"`
}

// ErrorResponse тело ответа с ошибкой.
type ErrorResponse struct {
	Error          string   `json:"error"`
	FailedStep     string   `json:"failed_step,omitempty"`
	CompletedSteps []string `json:"completed_steps,omitempty"`
}

// Moods возвращает каталог настроений.
func Moods() []MoodResponse {
	out := make([]MoodResponse, 0, len(entities.Moods()))
	for _, m := range entities.Moods() {
		out = append(out, MoodResponse{Icon: m.Icon(), Label: m.Label()})
	}
	return out
}

// PublicItems обезличивает заметки для зрителя viewerID.
func PublicItems(notes []*entities.PublicNote, viewerID string) []live.PublicItem {
	out := make([]live.PublicItem, 0, len(notes))
	for _, n := range notes {
		out = append(out, live.NewPublicItem(n, viewerID))
	}
	return out
}
