package app_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"moodnote/internal/journal/domain/entities"
)

type mockNoteStore struct {
	mock.Mock
}

func (m *mockNoteStore) CreatePrivateNote(ctx context.Context, note *entities.PrivateNote) (*entities.PrivateNote, error) {
	args := m.Called(ctx, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PrivateNote), args.Error(1)
}

func (m *mockNoteStore) GetPrivateNote(ctx context.Context, userID, noteID string) (*entities.PrivateNote, error) {
	args := m.Called(ctx, userID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PrivateNote), args.Error(1)
}

func (m *mockNoteStore) ListPrivateNotes(ctx context.Context, userID string) ([]*entities.PrivateNote, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PrivateNote), args.Error(1)
}

func (m *mockNoteStore) SetPublicStatus(ctx context.Context, noteID string, isPublic bool, publicNoteID string) error {
	return m.Called(ctx, noteID, isPublic, publicNoteID).Error(0)
}

func (m *mockNoteStore) FindPublicNoteForUserOnDate(ctx context.Context, userID, date, excludeNoteID string) (*entities.PrivateNote, error) {
	args := m.Called(ctx, userID, date, excludeNoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PrivateNote), args.Error(1)
}

func (m *mockNoteStore) CreatePublicNote(ctx context.Context, note *entities.PublicNote) (*entities.PublicNote, error) {
	args := m.Called(ctx, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PublicNote), args.Error(1)
}

func (m *mockNoteStore) GetPublicNote(ctx context.Context, publicNoteID string) (*entities.PublicNote, error) {
	args := m.Called(ctx, publicNoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PublicNote), args.Error(1)
}

func (m *mockNoteStore) DeletePublicNote(ctx context.Context, publicNoteID string) error {
	return m.Called(ctx, publicNoteID).Error(0)
}

func (m *mockNoteStore) ListPublicNotesSince(ctx context.Context, since time.Time) ([]*entities.PublicNote, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PublicNote), args.Error(1)
}

func (m *mockNoteStore) ListPublicNotesBetween(ctx context.Context, from, to time.Time) ([]*entities.PublicNote, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PublicNote), args.Error(1)
}

func (m *mockNoteStore) AddLike(ctx context.Context, publicNoteID, userID string) (*entities.PublicNote, error) {
	args := m.Called(ctx, publicNoteID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PublicNote), args.Error(1)
}

func (m *mockNoteStore) DeleteOrphanedPublicNotes(ctx context.Context, before time.Time) ([]*entities.PublicNote, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PublicNote), args.Error(1)
}

func (m *mockNoteStore) ClearDanglingPublicFlags(ctx context.Context) ([]*entities.PrivateNote, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PrivateNote), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event entities.ChangeEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type mockTokens struct {
	mock.Mock
}

func (m *mockTokens) Issue(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockTokens) Validate(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type recordingMetrics struct {
	publications []entities.State
	likes        []string
	suggestions  []string
	reconciled   map[string]int
}

func (r *recordingMetrics) PublicationOutcome(_ string, state entities.State) {
	r.publications = append(r.publications, state)
}
func (r *recordingMetrics) LikeResult(result string)       { r.likes = append(r.likes, result) }
func (r *recordingMetrics) SuggestionResult(result string) { r.suggestions = append(r.suggestions, result) }
func (r *recordingMetrics) Reconciled(kind string, n int) {
	if r.reconciled == nil {
		r.reconciled = map[string]int{}
	}
	r.reconciled[kind] += n
}
