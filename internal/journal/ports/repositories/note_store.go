// Package repositories defines storage ports of the journal service.
package repositories

import (
	"context"
	"time"

	"moodnote/internal/journal/domain/entities"
)

// NoteStore хранит приватные и публичные заметки. Каждый метод атомарен на уровне
// одной строки; многошаговые последовательности собирает вызывающая сторона.
//
// Ошибки: entities.ErrNotFound, entities.ErrAlreadyLiked,
// entities.ErrDailyLimitConflict, entities.ErrValidation, остальные оборачивают
// entities.ErrPersistence.
type NoteStore interface {
	// CreatePrivateNote сохраняет запись; ID назначается, если пуст.
	CreatePrivateNote(ctx context.Context, note *entities.PrivateNote) (*entities.PrivateNote, error)
	// GetPrivateNote возвращает запись владельца userID.
	GetPrivateNote(ctx context.Context, userID, noteID string) (*entities.PrivateNote, error)
	// ListPrivateNotes возвращает историю, новые сверху. Запись, ссылающаяся на
	// отсутствующую публичную заметку, возвращается приватной.
	ListPrivateNotes(ctx context.Context, userID string) ([]*entities.PrivateNote, error)
	// SetPublicStatus меняет флаг публичности и ссылку.
	SetPublicStatus(ctx context.Context, noteID string, isPublic bool, publicNoteID string) error
	// FindPublicNoteForUserOnDate ищет публичную запись дня, исключая excludeNoteID.
	// Возвращает nil, nil если такой нет.
	FindPublicNoteForUserOnDate(ctx context.Context, userID, date, excludeNoteID string) (*entities.PrivateNote, error)

	// CreatePublicNote сохраняет публичную копию; ID назначается, если пуст.
	CreatePublicNote(ctx context.Context, note *entities.PublicNote) (*entities.PublicNote, error)
	GetPublicNote(ctx context.Context, publicNoteID string) (*entities.PublicNote, error)
	// DeletePublicNote идемпотентен: отсутствие заметки не ошибка.
	DeletePublicNote(ctx context.Context, publicNoteID string) error
	// ListPublicNotesSince возвращает заметки с created_at >= since, новые сверху.
	ListPublicNotesSince(ctx context.Context, since time.Time) ([]*entities.PublicNote, error)
	// ListPublicNotesBetween возвращает заметки с from <= created_at < to, новые сверху.
	ListPublicNotesBetween(ctx context.Context, from, to time.Time) ([]*entities.PublicNote, error)
	// AddLike одним изменением увеличивает счетчик и добавляет userID в множество.
	AddLike(ctx context.Context, publicNoteID, userID string) (*entities.PublicNote, error)

	// DeleteOrphanedPublicNotes удаляет публичные заметки без владельца, опубликованные до before.
	DeleteOrphanedPublicNotes(ctx context.Context, before time.Time) ([]*entities.PublicNote, error)
	// ClearDanglingPublicFlags снимает флаг с записей, чья публичная заметка исчезла.
	ClearDanglingPublicFlags(ctx context.Context) ([]*entities.PrivateNote, error)
}
