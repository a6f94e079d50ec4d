package entities

import (
	"fmt"
	"strings"
	"time"
)

// State состояние публикации записи.
type State string

const (
	StateDrafted               State = "drafted"
	StateAwaitingShareDecision State = "awaiting_share_decision"
	StateKeptPrivate           State = "kept_private"
	StateCheckingDailyLimit    State = "checking_daily_limit"
	StatePublished             State = "published"
	StateAwaitingSwapDecision  State = "awaiting_swap_decision"
)

// Terminal is true for states that end a publication attempt.
func (s State) Terminal() bool {
	return s == StateKeptPrivate || s == StatePublished
}

// ShareIntent выбор пользователя после сохранения.
type ShareIntent string

const (
	ShareKeepPrivate ShareIntent = "private"
	SharePublish     ShareIntent = "public"
)

// ParseShareIntent разбирает намерение; пустое значение означает "оставить приватной".
func ParseShareIntent(raw string) (ShareIntent, error) {
	switch ShareIntent(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ShareKeepPrivate:
		return ShareKeepPrivate, nil
	case SharePublish:
		return SharePublish, nil
	default:
		return "", fmt.Errorf("%w: unknown share intent %q", ErrValidation, raw)
	}
}

// SwapDecision ответ пользователя на конфликт дневного лимита.
type SwapDecision string

const (
	SwapReplace SwapDecision = "swap"
	SwapDecline SwapDecision = "decline"
)

// ParseSwapDecision разбирает решение.
func ParseSwapDecision(raw string) (SwapDecision, error) {
	switch SwapDecision(strings.ToLower(strings.TrimSpace(raw))) {
	case SwapReplace:
		return SwapReplace, nil
	case SwapDecline:
		return SwapDecline, nil
	default:
		return "", fmt.Errorf("%w: unknown swap decision %q", ErrValidation, raw)
	}
}

// Draft is an unsaved entry. It is carried by the caller between the save
// request and the swap decision; nothing is persisted while a swap is pending.
type Draft struct {
	UserID    string    `json:"user_id"`
	Mood      Mood      `json:"mood"`
	Message   string    `json:"message"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDraft валидирует ввод и фиксирует дату в часовом поясе автора.
func NewDraft(userID, mood, message string, createdAt time.Time, loc *time.Location) (*Draft, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: %s", ErrValidation, MsgUserRequired)
	}
	m, err := ParseMood(mood)
	if err != nil {
		return nil, err
	}
	msg, err := NormalizeMessage(message)
	if err != nil {
		return nil, err
	}
	return &Draft{
		UserID:    userID,
		Mood:      m,
		Message:   msg,
		Date:      Day(createdAt, loc),
		CreatedAt: createdAt,
	}, nil
}

// Validate перепроверяет черновик, пришедший обратно от клиента.
func (d *Draft) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: draft is required", ErrValidation)
	}
	if strings.TrimSpace(d.UserID) == "" {
		return fmt.Errorf("%w: %s", ErrValidation, MsgUserRequired)
	}
	if d.CreatedAt.IsZero() {
		return fmt.Errorf("%w: draft creation time is required", ErrValidation)
	}
	msg, err := NormalizeMessage(d.Message)
	if err != nil {
		return err
	}
	d.Message = msg
	return validateContent(d.Mood, d.Message, d.Date)
}

// Допустимый возраст черновика, вернувшегося на решение о замене, и
// допустимое расхождение часов.
const (
	DraftMaxAge    = 30 * time.Minute
	DraftClockSkew = time.Minute
)

// Verify проверяет, что дата черновика выведена из момента создания в зоне loc
// и что момент создания не в будущем и не старше DraftMaxAge.
func (d *Draft) Verify(now time.Time, loc *time.Location) error {
	if d.Date != Day(d.CreatedAt, loc) {
		return fmt.Errorf("%w: %s", ErrValidation, MsgDraftDateMismatch)
	}
	if d.CreatedAt.After(now.Add(DraftClockSkew)) {
		return fmt.Errorf("%w: %s", ErrValidation, MsgDraftInFuture)
	}
	if d.CreatedAt.Before(now.Add(-DraftMaxAge)) {
		return fmt.Errorf("%w: %s", ErrValidation, MsgDraftExpired)
	}
	return nil
}

// PrivateNote строит приватную запись из черновика.
func (d *Draft) PrivateNote() *PrivateNote {
	return &PrivateNote{
		UserID:    d.UserID,
		Mood:      d.Mood,
		Message:   d.Message,
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
	}
}

// Outcome результат шага публикации.
type Outcome struct {
	State State `json:"state"`
	// Note сохраненная запись; nil пока ожидается решение о замене.
	Note *PrivateNote `json:"note,omitempty"`
	// Conflict уже опубликованная запись того же дня.
	Conflict *PrivateNote `json:"conflict,omitempty"`
	// Draft возвращается вызывающему в состоянии AwaitingSwapDecision.
	Draft *Draft `json:"draft,omitempty"`
}
