// Package postgres provides the PostgreSQL implementation of the note store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/repositories"
	"moodnote/pkg/logger"
)

// PgxPoolInterface подмножество pgxpool.Pool, которое нужно хранилищу.
type PgxPoolInterface interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
}

const uniqueViolation = "23505"

const (
	privateColumns = `id, user_id, mood, message, date, created_at, is_public, COALESCE(public_note_id, '')`
	publicColumns  = `id, user_id, mood, message, date, created_at, like_count, liked_by`

	// Запись, ссылающаяся на исчезнувшую публичную заметку, читается приватной.
	privateJoinedSelect = `
        SELECT p.id, p.user_id, p.mood, p.message, p.date, p.created_at,
               (p.is_public AND pub.id IS NOT NULL), COALESCE(pub.id, '')
        FROM private_notes p
        LEFT JOIN public_notes pub ON pub.id = p.public_note_id`
)

// NoteStore реализует repositories.NoteStore поверх Postgres.
type NoteStore struct {
	pool PgxPoolInterface
}

// NewNoteStore создает хранилище заметок.
func NewNoteStore(pool PgxPoolInterface) repositories.NoteStore {
	return &NoteStore{pool: pool}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPrivate(row scanner) (*entities.PrivateNote, error) {
	var (
		note entities.PrivateNote
		mood string
	)
	if err := row.Scan(&note.ID, &note.UserID, &mood, &note.Message, &note.Date,
		&note.CreatedAt, &note.IsPublic, &note.PublicNoteID); err != nil {
		return nil, err
	}
	note.Mood = entities.Mood(mood)
	return &note, nil
}

func scanPublic(row scanner) (*entities.PublicNote, error) {
	var (
		note entities.PublicNote
		mood string
	)
	if err := row.Scan(&note.ID, &note.UserID, &mood, &note.Message, &note.Date,
		&note.CreatedAt, &note.LikeCount, &note.LikedBy); err != nil {
		return nil, err
	}
	note.Mood = entities.Mood(mood)
	if note.LikedBy == nil {
		note.LikedBy = []string{}
	}
	return &note, nil
}

// storeError приводит ошибку драйвера к доменной.
func storeError(action string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("failed to %s: %w", action, entities.ErrDailyLimitConflict)
	}
	return fmt.Errorf("failed to %s: %w: %w", action, entities.ErrPersistence, err)
}

func nullable(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

// CreatePrivateNote сохраняет запись дневника.
func (s *NoteStore) CreatePrivateNote(ctx context.Context, note *entities.PrivateNote) (*entities.PrivateNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.CreatePrivateNote"))

	if err := entities.ValidatePrivateNote(note); err != nil {
		return nil, err
	}

	created := *note
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO private_notes (id, user_id, mood, message, date, created_at, is_public, public_note_id)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		created.ID, created.UserID, string(created.Mood), created.Message, created.Date,
		created.CreatedAt, created.IsPublic, nullable(created.PublicNoteID),
	)
	if err != nil {
		log.Error(ctx, "failed to create private note", zap.Error(err))
		return nil, storeError("create private note", err)
	}

	log.Debug(ctx, "private note created", zap.String("noteID", created.ID), zap.Bool("public", created.IsPublic))
	return &created, nil
}

// GetPrivateNote возвращает запись владельца.
func (s *NoteStore) GetPrivateNote(ctx context.Context, userID, noteID string) (*entities.PrivateNote, error) {
	note, err := scanPrivate(s.pool.QueryRow(ctx,
		privateJoinedSelect+` WHERE p.id = $1 AND p.user_id = $2`, noteID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("private note %s: %w", noteID, entities.ErrNotFound)
		}
		logger.Log(ctx).Error(ctx, "failed to get private note", zap.String("noteID", noteID), zap.Error(err))
		return nil, storeError("get private note", err)
	}
	return note, nil
}

// ListPrivateNotes возвращает историю пользователя.
func (s *NoteStore) ListPrivateNotes(ctx context.Context, userID string) ([]*entities.PrivateNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.ListPrivateNotes"))

	rows, err := s.pool.Query(ctx,
		privateJoinedSelect+` WHERE p.user_id = $1 ORDER BY p.created_at DESC, p.id`, userID)
	if err != nil {
		log.Error(ctx, "failed to list private notes", zap.Error(err))
		return nil, storeError("list private notes", err)
	}
	defer rows.Close()

	notes := make([]*entities.PrivateNote, 0)
	for rows.Next() {
		note, err := scanPrivate(rows)
		if err != nil {
			log.Error(ctx, "failed to scan private note", zap.Error(err))
			return nil, storeError("scan private note", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		log.Error(ctx, "error iterating rows", zap.Error(err))
		return nil, storeError("iterate private notes", err)
	}
	return notes, nil
}

// SetPublicStatus меняет флаг публичности записи.
func (s *NoteStore) SetPublicStatus(ctx context.Context, noteID string, isPublic bool, publicNoteID string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.SetPublicStatus"))

	if isPublic != (publicNoteID != "") {
		return fmt.Errorf("%w: public flag and public note id disagree", entities.ErrValidation)
	}

	result, err := s.pool.Exec(ctx,
		`UPDATE private_notes SET is_public = $2, public_note_id = $3 WHERE id = $1`,
		noteID, isPublic, nullable(publicNoteID),
	)
	if err != nil {
		log.Error(ctx, "failed to set public status", zap.String("noteID", noteID), zap.Error(err))
		return storeError("set public status", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("private note %s: %w", noteID, entities.ErrNotFound)
	}
	return nil
}

// FindPublicNoteForUserOnDate ищет запись дня, уже занимающую публичный слот.
func (s *NoteStore) FindPublicNoteForUserOnDate(ctx context.Context, userID, date, excludeNoteID string) (*entities.PrivateNote, error) {
	note, err := scanPrivate(s.pool.QueryRow(ctx,
		`SELECT `+privateColumns+` FROM private_notes
         WHERE user_id = $1 AND date = $2 AND is_public AND id <> $3
         LIMIT 1`,
		userID, date, excludeNoteID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		logger.Log(ctx).Error(ctx, "failed to find public note for date", zap.String("date", date), zap.Error(err))
		return nil, storeError("find public note for date", err)
	}
	return note, nil
}

// CreatePublicNote сохраняет публичную копию.
func (s *NoteStore) CreatePublicNote(ctx context.Context, note *entities.PublicNote) (*entities.PublicNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.CreatePublicNote"))

	if err := entities.ValidatePublicNote(note); err != nil {
		return nil, err
	}

	created := *note
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.LikedBy = append([]string{}, note.LikedBy...)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO public_notes (id, user_id, mood, message, date, created_at, like_count, liked_by)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		created.ID, created.UserID, string(created.Mood), created.Message, created.Date,
		created.CreatedAt, created.LikeCount, created.LikedBy,
	)
	if err != nil {
		log.Error(ctx, "failed to create public note", zap.Error(err))
		return nil, storeError("create public note", err)
	}

	log.Debug(ctx, "public note created", zap.String("publicNoteID", created.ID))
	return &created, nil
}

// GetPublicNote возвращает публичную заметку.
func (s *NoteStore) GetPublicNote(ctx context.Context, publicNoteID string) (*entities.PublicNote, error) {
	note, err := scanPublic(s.pool.QueryRow(ctx,
		`SELECT `+publicColumns+` FROM public_notes WHERE id = $1`, publicNoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("public note %s: %w", publicNoteID, entities.ErrNotFound)
		}
		logger.Log(ctx).Error(ctx, "failed to get public note", zap.String("publicNoteID", publicNoteID), zap.Error(err))
		return nil, storeError("get public note", err)
	}
	return note, nil
}

// DeletePublicNote удаляет публичную заметку, если она есть.
func (s *NoteStore) DeletePublicNote(ctx context.Context, publicNoteID string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM public_notes WHERE id = $1`, publicNoteID)
	if err != nil {
		logger.Log(ctx).Error(ctx, "failed to delete public note", zap.String("publicNoteID", publicNoteID), zap.Error(err))
		return storeError("delete public note", err)
	}
	if result.RowsAffected() == 0 {
		logger.Log(ctx).Debug(ctx, "public note already gone", zap.String("publicNoteID", publicNoteID))
	}
	return nil
}

// ListPublicNotesSince возвращает публичные заметки начиная с since.
func (s *NoteStore) ListPublicNotesSince(ctx context.Context, since time.Time) ([]*entities.PublicNote, error) {
	return s.listPublic(ctx, "list public notes since",
		`SELECT `+publicColumns+` FROM public_notes
         WHERE created_at >= $1
         ORDER BY created_at DESC, id`, since)
}

// ListPublicNotesBetween возвращает публичные заметки из [from, to).
func (s *NoteStore) ListPublicNotesBetween(ctx context.Context, from, to time.Time) ([]*entities.PublicNote, error) {
	return s.listPublic(ctx, "list public notes between",
		`SELECT `+publicColumns+` FROM public_notes
         WHERE created_at >= $1 AND created_at < $2
         ORDER BY created_at DESC, id`, from, to)
}

func (s *NoteStore) listPublic(ctx context.Context, action, query string, args ...interface{}) ([]*entities.PublicNote, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Log(ctx).Error(ctx, "failed to query public notes", zap.String("action", action), zap.Error(err))
		return nil, storeError(action, err)
	}
	return collectPublic(rows, action)
}

func collectPublic(rows pgx.Rows, action string) ([]*entities.PublicNote, error) {
	defer rows.Close()

	notes := make([]*entities.PublicNote, 0)
	for rows.Next() {
		note, err := scanPublic(rows)
		if err != nil {
			return nil, storeError(action, err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(action, err)
	}
	return notes, nil
}

// AddLike atomically increments the counter and records the liker in one
// UPDATE; the guard in WHERE makes a repeated like a no-op.
func (s *NoteStore) AddLike(ctx context.Context, publicNoteID, userID string) (*entities.PublicNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.AddLike"))

	note, err := scanPublic(s.pool.QueryRow(ctx,
		`UPDATE public_notes
         SET like_count = like_count + 1, liked_by = array_append(liked_by, $2)
         WHERE id = $1 AND NOT ($2 = ANY(liked_by))
         RETURNING `+publicColumns,
		publicNoteID, userID,
	))
	if err == nil {
		return note, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		log.Error(ctx, "failed to add like", zap.String("publicNoteID", publicNoteID), zap.Error(err))
		return nil, storeError("add like", err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM public_notes WHERE id = $1)`, publicNoteID,
	).Scan(&exists); err != nil {
		log.Error(ctx, "failed to check public note", zap.String("publicNoteID", publicNoteID), zap.Error(err))
		return nil, storeError("check public note", err)
	}
	if !exists {
		return nil, fmt.Errorf("public note %s: %w", publicNoteID, entities.ErrNotFound)
	}
	return nil, entities.ErrAlreadyLiked
}

// DeleteOrphanedPublicNotes удаляет публичные заметки, на которые не ссылается ни одна запись.
func (s *NoteStore) DeleteOrphanedPublicNotes(ctx context.Context, before time.Time) ([]*entities.PublicNote, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM public_notes pub
         WHERE pub.published_at < $1
           AND NOT EXISTS (SELECT 1 FROM private_notes p WHERE p.public_note_id = pub.id)
         RETURNING `+publicColumns,
		before,
	)
	if err != nil {
		logger.Log(ctx).Error(ctx, "failed to delete orphaned public notes", zap.Error(err))
		return nil, storeError("delete orphaned public notes", err)
	}
	return collectPublic(rows, "delete orphaned public notes")
}

// ClearDanglingPublicFlags снимает флаг с записей без публичной заметки.
func (s *NoteStore) ClearDanglingPublicFlags(ctx context.Context) ([]*entities.PrivateNote, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteStore.ClearDanglingPublicFlags"))

	rows, err := s.pool.Query(ctx,
		`UPDATE private_notes p
         SET is_public = FALSE, public_note_id = NULL
         WHERE p.is_public
           AND NOT EXISTS (SELECT 1 FROM public_notes pub WHERE pub.id = p.public_note_id)
         RETURNING `+privateColumns,
	)
	if err != nil {
		log.Error(ctx, "failed to clear dangling flags", zap.Error(err))
		return nil, storeError("clear dangling public flags", err)
	}
	defer rows.Close()

	notes := make([]*entities.PrivateNote, 0)
	for rows.Next() {
		note, err := scanPrivate(rows)
		if err != nil {
			return nil, storeError("scan private note", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("clear dangling public flags", err)
	}
	return notes, nil
}
