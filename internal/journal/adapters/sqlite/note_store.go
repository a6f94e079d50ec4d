package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/repositories"
	"moodnote/pkg/logger"
)

const (
	privateColumns = `id, user_id, mood, message, date, created_at, is_public, COALESCE(public_note_id, '')`
	publicColumns  = `id, user_id, mood, message, date, created_at, like_count, liked_by`

	privateJoinedSelect = `
		SELECT p.id, p.user_id, p.mood, p.message, p.date, p.created_at,
		       (p.is_public = 1 AND pub.id IS NOT NULL), COALESCE(pub.id, '')
		FROM private_notes p
		LEFT JOIN public_notes pub ON pub.id = p.public_note_id`
)

// NoteStore реализует repositories.NoteStore поверх SQLite.
// Время хранится в микросекундах Unix, множество лайкнувших как JSON-массив.
type NoteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewNoteStore создает хранилище; now задает время публикации (nil означает time.Now).
func NewNoteStore(db *sql.DB, now func() time.Time) repositories.NoteStore {
	if now == nil {
		now = time.Now
	}
	return &NoteStore{db: db, now: now}
}

type scanner interface {
	Scan(dest ...any) error
}

func micros(t time.Time) int64 { return t.UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

func scanPrivate(row scanner) (*entities.PrivateNote, error) {
	var (
		note    entities.PrivateNote
		mood    string
		created int64
	)
	if err := row.Scan(&note.ID, &note.UserID, &mood, &note.Message, &note.Date,
		&created, &note.IsPublic, &note.PublicNoteID); err != nil {
		return nil, err
	}
	note.Mood = entities.Mood(mood)
	note.CreatedAt = fromMicros(created)
	return &note, nil
}

func scanPublic(row scanner) (*entities.PublicNote, error) {
	var (
		note    entities.PublicNote
		mood    string
		created int64
		likedBy string
	)
	if err := row.Scan(&note.ID, &note.UserID, &mood, &note.Message, &note.Date,
		&created, &note.LikeCount, &likedBy); err != nil {
		return nil, err
	}
	note.Mood = entities.Mood(mood)
	note.CreatedAt = fromMicros(created)
	note.LikedBy = []string{}
	if err := json.Unmarshal([]byte(likedBy), &note.LikedBy); err != nil {
		return nil, fmt.Errorf("failed to decode likers of %s: %w", note.ID, err)
	}
	return &note, nil
}

func storeError(action string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("failed to %s: %w", action, entities.ErrDailyLimitConflict)
	}
	return fmt.Errorf("failed to %s: %w: %w", action, entities.ErrPersistence, err)
}

func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// CreatePrivateNote сохраняет запись дневника.
func (s *NoteStore) CreatePrivateNote(ctx context.Context, note *entities.PrivateNote) (*entities.PrivateNote, error) {
	if err := entities.ValidatePrivateNote(note); err != nil {
		return nil, err
	}

	created := *note
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO private_notes (id, user_id, mood, message, date, created_at, is_public, public_note_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.UserID, string(created.Mood), created.Message, created.Date,
		micros(created.CreatedAt), created.IsPublic, nullable(created.PublicNoteID),
	)
	if err != nil {
		logger.Log(ctx).Debug(ctx, "failed to create private note", zap.Error(err))
		return nil, storeError("create private note", err)
	}
	return &created, nil
}

// GetPrivateNote возвращает запись владельца.
func (s *NoteStore) GetPrivateNote(ctx context.Context, userID, noteID string) (*entities.PrivateNote, error) {
	note, err := scanPrivate(s.db.QueryRowContext(ctx,
		privateJoinedSelect+` WHERE p.id = ? AND p.user_id = ?`, noteID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("private note %s: %w", noteID, entities.ErrNotFound)
		}
		return nil, storeError("get private note", err)
	}
	return note, nil
}

// ListPrivateNotes возвращает историю пользователя, новые сверху.
func (s *NoteStore) ListPrivateNotes(ctx context.Context, userID string) ([]*entities.PrivateNote, error) {
	rows, err := s.db.QueryContext(ctx,
		privateJoinedSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id`, userID)
	if err != nil {
		return nil, storeError("list private notes", err)
	}
	return collectPrivate(rows, "list private notes")
}

func collectPrivate(rows *sql.Rows, action string) ([]*entities.PrivateNote, error) {
	defer rows.Close()

	notes := make([]*entities.PrivateNote, 0)
	for rows.Next() {
		note, err := scanPrivate(rows)
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

// SetPublicStatus меняет флаг публичности записи.
func (s *NoteStore) SetPublicStatus(ctx context.Context, noteID string, isPublic bool, publicNoteID string) error {
	if isPublic != (publicNoteID != "") {
		return fmt.Errorf("%w: public flag and public note id disagree", entities.ErrValidation)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE private_notes SET is_public = ?, public_note_id = ? WHERE id = ?`,
		isPublic, nullable(publicNoteID), noteID,
	)
	if err != nil {
		return storeError("set public status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeError("set public status", err)
	}
	if n == 0 {
		return fmt.Errorf("private note %s: %w", noteID, entities.ErrNotFound)
	}
	return nil
}

// FindPublicNoteForUserOnDate ищет запись дня, занимающую публичный слот.
func (s *NoteStore) FindPublicNoteForUserOnDate(ctx context.Context, userID, date, excludeNoteID string) (*entities.PrivateNote, error) {
	note, err := scanPrivate(s.db.QueryRowContext(ctx,
		`SELECT `+privateColumns+` FROM private_notes
		 WHERE user_id = ? AND date = ? AND is_public = 1 AND id <> ?
		 LIMIT 1`,
		userID, date, excludeNoteID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("find public note for date", err)
	}
	return note, nil
}

// CreatePublicNote сохраняет публичную копию.
func (s *NoteStore) CreatePublicNote(ctx context.Context, note *entities.PublicNote) (*entities.PublicNote, error) {
	if err := entities.ValidatePublicNote(note); err != nil {
		return nil, err
	}

	created := *note
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.LikedBy = append([]string{}, note.LikedBy...)

	likedBy, err := json.Marshal(created.LikedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to encode likers: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO public_notes (id, user_id, mood, message, date, created_at, like_count, liked_by, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.UserID, string(created.Mood), created.Message, created.Date,
		micros(created.CreatedAt), created.LikeCount, string(likedBy), micros(s.now()),
	)
	if err != nil {
		return nil, storeError("create public note", err)
	}
	return &created, nil
}

// GetPublicNote возвращает публичную заметку.
func (s *NoteStore) GetPublicNote(ctx context.Context, publicNoteID string) (*entities.PublicNote, error) {
	note, err := scanPublic(s.db.QueryRowContext(ctx,
		`SELECT `+publicColumns+` FROM public_notes WHERE id = ?`, publicNoteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("public note %s: %w", publicNoteID, entities.ErrNotFound)
		}
		return nil, storeError("get public note", err)
	}
	return note, nil
}

// DeletePublicNote удаляет публичную заметку, если она есть.
func (s *NoteStore) DeletePublicNote(ctx context.Context, publicNoteID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM public_notes WHERE id = ?`, publicNoteID); err != nil {
		return storeError("delete public note", err)
	}
	return nil
}

// ListPublicNotesSince возвращает публичные заметки начиная с since.
func (s *NoteStore) ListPublicNotesSince(ctx context.Context, since time.Time) ([]*entities.PublicNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publicColumns+` FROM public_notes
		 WHERE created_at >= ?
		 ORDER BY created_at DESC, id`, micros(since))
	if err != nil {
		return nil, storeError("list public notes since", err)
	}
	return collectPublic(rows, "list public notes since")
}

// ListPublicNotesBetween возвращает публичные заметки из [from, to).
func (s *NoteStore) ListPublicNotesBetween(ctx context.Context, from, to time.Time) ([]*entities.PublicNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publicColumns+` FROM public_notes
		 WHERE created_at >= ? AND created_at < ?
		 ORDER BY created_at DESC, id`, micros(from), micros(to))
	if err != nil {
		return nil, storeError("list public notes between", err)
	}
	return collectPublic(rows, "list public notes between")
}

func collectPublic(rows *sql.Rows, action string) ([]*entities.PublicNote, error) {
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

// AddLike увеличивает счетчик и дописывает userID одним UPDATE;
// условие в WHERE не дает засчитать повторный лайк.
func (s *NoteStore) AddLike(ctx context.Context, publicNoteID, userID string) (*entities.PublicNote, error) {
	note, err := scanPublic(s.db.QueryRowContext(ctx,
		`UPDATE public_notes
		 SET like_count = like_count + 1, liked_by = json_insert(liked_by, '$[#]', ?2)
		 WHERE id = ?1
		   AND NOT EXISTS (SELECT 1 FROM json_each(public_notes.liked_by) WHERE value = ?2)
		 RETURNING `+publicColumns,
		publicNoteID, userID,
	))
	if err == nil {
		return note, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError("add like", err)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM public_notes WHERE id = ?)`, publicNoteID,
	).Scan(&exists); err != nil {
		return nil, storeError("check public note", err)
	}
	if !exists {
		return nil, fmt.Errorf("public note %s: %w", publicNoteID, entities.ErrNotFound)
	}
	return nil, entities.ErrAlreadyLiked
}

// DeleteOrphanedPublicNotes удаляет публичные заметки без ссылающейся записи.
func (s *NoteStore) DeleteOrphanedPublicNotes(ctx context.Context, before time.Time) ([]*entities.PublicNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`DELETE FROM public_notes
		 WHERE published_at < ?
		   AND NOT EXISTS (SELECT 1 FROM private_notes p WHERE p.public_note_id = public_notes.id)
		 RETURNING `+publicColumns,
		micros(before),
	)
	if err != nil {
		return nil, storeError("delete orphaned public notes", err)
	}
	return collectPublic(rows, "delete orphaned public notes")
}

// ClearDanglingPublicFlags снимает флаг с записей без публичной заметки.
func (s *NoteStore) ClearDanglingPublicFlags(ctx context.Context) ([]*entities.PrivateNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE private_notes
		 SET is_public = 0, public_note_id = NULL
		 WHERE is_public = 1
		   AND NOT EXISTS (SELECT 1 FROM public_notes pub WHERE pub.id = private_notes.public_note_id)
		 RETURNING `+privateColumns,
	)
	if err != nil {
		return nil, storeError("clear dangling public flags", err)
	}
	return collectPrivate(rows, "clear dangling public flags")
}
