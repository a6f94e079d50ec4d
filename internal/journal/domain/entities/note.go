package entities

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout формат календарной даты заметки.
const DateLayout = "2006-01-02"

// MaxMessageLength максимальная длина сообщения в символах.
const MaxMessageLength = 2000

// PrivateNote запись дневника, принадлежащая пользователю.
type PrivateNote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mood      Mood      `json:"mood"`
	Message   string    `json:"message"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	IsPublic  bool      `json:"is_public"`
	// PublicNoteID пуст, если заметка приватная.
	PublicNoteID string `json:"public_note_id,omitempty"`
}

// PublicNote анонимная копия заметки в общей ленте.
type PublicNote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Mood      Mood      `json:"mood"`
	Message   string    `json:"message"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	LikeCount int       `json:"like_count"`
	LikedBy   []string  `json:"-"`
}

// LikedByUser сообщает, ставил ли userID лайк.
func (n *PublicNote) LikedByUser(userID string) bool {
	return slices.Contains(n.LikedBy, userID)
}

// Day возвращает календарную дату момента t в зоне loc.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// DayBounds возвращает полуинтервал [начало, конец) суток date в зоне loc.
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, date)
	}
	return start, start.AddDate(0, 0, 1), nil
}

// NormalizeMessage обрезает пробелы и проверяет длину.
func NormalizeMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: %s", ErrValidation, MsgMessageRequired)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "", fmt.Errorf("%w: %s", ErrValidation, MsgMessageTooLong)
	}
	return message, nil
}

// NewPublicNote копирует содержимое черновика в публичную заметку.
func NewPublicNote(d *Draft) *PublicNote {
	return &PublicNote{
		UserID:    d.UserID,
		Mood:      d.Mood,
		Message:   d.Message,
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
		LikedBy:   []string{},
	}
}

// PublicCopy строит публичную копию существующей приватной заметки.
func (n *PrivateNote) PublicCopy() *PublicNote {
	return &PublicNote{
		UserID:    n.UserID,
		Mood:      n.Mood,
		Message:   n.Message,
		Date:      n.Date,
		CreatedAt: n.CreatedAt,
		LikedBy:   []string{},
	}
}

// ValidatePrivateNote проверяет форму записи перед сохранением.
func ValidatePrivateNote(n *PrivateNote) error {
	if n == nil {
		return fmt.Errorf("%w: nil note", ErrValidation)
	}
	if strings.TrimSpace(n.UserID) == "" {
		return fmt.Errorf("%w: %s", ErrValidation, MsgUserRequired)
	}
	if err := validateContent(n.Mood, n.Message, n.Date); err != nil {
		return err
	}
	if n.IsPublic != (n.PublicNoteID != "") {
		return fmt.Errorf("%w: public flag and public note id disagree", ErrValidation)
	}
	return nil
}

// ValidatePublicNote проверяет форму публичной заметки перед сохранением.
func ValidatePublicNote(n *PublicNote) error {
	if n == nil {
		return fmt.Errorf("%w: nil note", ErrValidation)
	}
	if strings.TrimSpace(n.UserID) == "" {
		return fmt.Errorf("%w: %s", ErrValidation, MsgUserRequired)
	}
	if err := validateContent(n.Mood, n.Message, n.Date); err != nil {
		return err
	}
	if n.LikeCount < 0 || n.LikeCount != len(n.LikedBy) {
		return fmt.Errorf("%w: like count does not match likers", ErrValidation)
	}
	seen := make(map[string]struct{}, len(n.LikedBy))
	for _, id := range n.LikedBy {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate liker", ErrValidation)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validateContent(mood Mood, message, date string) error {
	if !mood.Valid() {
		return fmt.Errorf("%w: %s", ErrValidation, MsgMoodRequired)
	}
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: %s", ErrValidation, MsgMessageRequired)
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: invalid date %q", ErrValidation, date)
	}
	return nil
}
