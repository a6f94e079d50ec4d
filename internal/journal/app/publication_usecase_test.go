package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"moodnote/internal/journal/app"
	"moodnote/internal/journal/domain/entities"
)

var (
	ErrDatabaseOperation = errors.New("database error")
	fixedNow             = time.Date(2025, 4, 12, 9, 30, 0, 0, time.UTC)
)

const (
	testUser = "user-1"
	testDate = "2025-04-12"
)

func newDraft(t *testing.T) *entities.Draft {
	t.Helper()
	d, err := entities.NewDraft(testUser, "Sunny", "a bright day", fixedNow, time.UTC)
	require.NoError(t, err)
	return d
}

func fixedClock() app.Option {
	return app.WithClock(func() time.Time { return fixedNow })
}

func existingPublic() *entities.PrivateNote {
	return &entities.PrivateNote{
		ID: "old-note", UserID: testUser, Mood: entities.MoodRainy, Message: "earlier",
		Date: testDate, CreatedAt: fixedNow.Add(-time.Hour), IsPublic: true, PublicNoteID: "old-pub",
	}
}

func newPublisher() *mockPublisher {
	p := new(mockPublisher)
	p.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return p
}

func linkedTo(publicID string) interface{} {
	return mock.MatchedBy(func(n *entities.PrivateNote) bool {
		return n.IsPublic && n.PublicNoteID == publicID
	})
}

func privateDraft() interface{} {
	return mock.MatchedBy(func(n *entities.PrivateNote) bool {
		return !n.IsPublic && n.PublicNoteID == ""
	})
}

func TestPublicationUseCase_Save(t *testing.T) {
	tests := []struct {
		name       string
		intent     entities.ShareIntent
		setupMocks func(store *mockNoteStore)
		wantState  entities.State
		wantErr    error
		check      func(t *testing.T, out *entities.Outcome, store *mockNoteStore)
	}{
		{
			name:   "keep private",
			intent: entities.ShareKeepPrivate,
			setupMocks: func(store *mockNoteStore) {
				store.On("CreatePrivateNote", mock.Anything, privateDraft()).
					Return(&entities.PrivateNote{ID: "n1", UserID: testUser, Date: testDate}, nil)
			},
			wantState: entities.StateKeptPrivate,
			check: func(t *testing.T, out *entities.Outcome, store *mockNoteStore) {
				assert.Equal(t, "n1", out.Note.ID)
				store.AssertNotCalled(t, "FindPublicNoteForUserOnDate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:   "publish with free day",
			intent: entities.SharePublish,
			setupMocks: func(store *mockNoteStore) {
				store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(nil, nil)
				store.On("CreatePublicNote", mock.Anything, mock.MatchedBy(func(n *entities.PublicNote) bool {
					return n.LikeCount == 0 && len(n.LikedBy) == 0 && n.Date == testDate
				})).Return(&entities.PublicNote{ID: "pub-1", UserID: testUser}, nil)
				store.On("CreatePrivateNote", mock.Anything, linkedTo("pub-1")).
					Return(&entities.PrivateNote{ID: "n1", UserID: testUser, IsPublic: true, PublicNoteID: "pub-1"}, nil)
			},
			wantState: entities.StatePublished,
			check: func(t *testing.T, out *entities.Outcome, _ *mockNoteStore) {
				assert.Equal(t, "pub-1", out.Note.PublicNoteID)
			},
		},
		{
			name:   "publish when day is taken waits for a decision",
			intent: entities.SharePublish,
			setupMocks: func(store *mockNoteStore) {
				store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(existingPublic(), nil)
			},
			wantState: entities.StateAwaitingSwapDecision,
			check: func(t *testing.T, out *entities.Outcome, store *mockNoteStore) {
				require.NotNil(t, out.Conflict)
				assert.Equal(t, "old-note", out.Conflict.ID)
				require.NotNil(t, out.Draft)
				assert.Nil(t, out.Note)
				store.AssertNotCalled(t, "CreatePublicNote", mock.Anything, mock.Anything)
				store.AssertNotCalled(t, "CreatePrivateNote", mock.Anything, mock.Anything)
			},
		},
		{
			name:   "limit check failure",
			intent: entities.SharePublish,
			setupMocks: func(store *mockNoteStore) {
				store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(nil, ErrDatabaseOperation)
			},
			wantErr: entities.ErrPersistence,
		},
		{
			name:   "private write after public write fails and is rolled back",
			intent: entities.SharePublish,
			setupMocks: func(store *mockNoteStore) {
				store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(nil, nil)
				store.On("CreatePublicNote", mock.Anything, mock.Anything).Return(&entities.PublicNote{ID: "pub-1"}, nil)
				store.On("CreatePrivateNote", mock.Anything, linkedTo("pub-1")).Return(nil, ErrDatabaseOperation)
				store.On("DeletePublicNote", mock.Anything, "pub-1").Return(nil)
			},
			wantErr: entities.ErrPersistence,
			check: func(t *testing.T, _ *entities.Outcome, store *mockNoteStore) {
				store.AssertCalled(t, "DeletePublicNote", mock.Anything, "pub-1")
			},
		},
		{
			name:   "concurrent publish wins the day",
			intent: entities.SharePublish,
			setupMocks: func(store *mockNoteStore) {
				store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(nil, nil).Once()
				store.On("CreatePublicNote", mock.Anything, mock.Anything).Return(&entities.PublicNote{ID: "pub-1"}, nil)
				store.On("CreatePrivateNote", mock.Anything, linkedTo("pub-1")).Return(nil, entities.ErrDailyLimitConflict)
				store.On("DeletePublicNote", mock.Anything, "pub-1").Return(nil)
				store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(existingPublic(), nil).Once()
			},
			wantState: entities.StateAwaitingSwapDecision,
			check: func(t *testing.T, out *entities.Outcome, _ *mockNoteStore) {
				assert.Equal(t, "old-note", out.Conflict.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockNoteStore)
			tt.setupMocks(store)
			metrics := &recordingMetrics{}

			uc := app.NewPublicationUseCase(store,
				app.WithPublisher(newPublisher()),
				app.WithMetrics(metrics),
				app.WithClock(func() time.Time { return fixedNow }))

			out, err := uc.Save(context.Background(), newDraft(t), tt.intent)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, out)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantState, out.State)
				assert.Equal(t, []entities.State{tt.wantState}, metrics.publications)
			}
			if tt.check != nil {
				tt.check(t, out, store)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestPublicationUseCase_SaveRejectsInvalidDraft(t *testing.T) {
	store := new(mockNoteStore)
	uc := app.NewPublicationUseCase(store)

	draft := newDraft(t)
	draft.Message = "   "

	_, err := uc.Save(context.Background(), draft, entities.SharePublish)

	require.ErrorIs(t, err, entities.ErrValidation)
	store.AssertExpectations(t)
}

func TestPublicationUseCase_ResolveSwap(t *testing.T) {
	t.Run("swap demotes before promoting", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(existingPublic(), nil)
		del := store.On("DeletePublicNote", mock.Anything, "old-pub").Return(nil)
		clearFlag := store.On("SetPublicStatus", mock.Anything, "old-note", false, "").Return(nil).NotBefore(del)
		create := store.On("CreatePublicNote", mock.Anything, mock.Anything).
			Return(&entities.PublicNote{ID: "pub-2", UserID: testUser}, nil).NotBefore(clearFlag)
		store.On("CreatePrivateNote", mock.Anything, linkedTo("pub-2")).
			Return(&entities.PrivateNote{ID: "new-note", UserID: testUser, IsPublic: true, PublicNoteID: "pub-2"}, nil).
			NotBefore(create)

		uc := app.NewPublicationUseCase(store, fixedClock(), app.WithPublisher(newPublisher()))

		out, err := uc.ResolveSwap(context.Background(), newDraft(t), entities.SwapReplace, time.UTC)

		require.NoError(t, err)
		assert.Equal(t, entities.StatePublished, out.State)
		assert.Equal(t, "new-note", out.Note.ID)
		store.AssertExpectations(t)
	})

	t.Run("decline keeps the new entry private", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("CreatePrivateNote", mock.Anything, privateDraft()).
			Return(&entities.PrivateNote{ID: "new-note", UserID: testUser}, nil)

		uc := app.NewPublicationUseCase(store, fixedClock())

		out, err := uc.ResolveSwap(context.Background(), newDraft(t), entities.SwapDecline, time.UTC)

		require.NoError(t, err)
		assert.Equal(t, entities.StateKeptPrivate, out.State)
		store.AssertNotCalled(t, "DeletePublicNote", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("failure after demote reports committed demote", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(existingPublic(), nil)
		store.On("DeletePublicNote", mock.Anything, "old-pub").Return(nil)
		store.On("SetPublicStatus", mock.Anything, "old-note", false, "").Return(nil)
		store.On("CreatePublicNote", mock.Anything, mock.Anything).Return(nil, ErrDatabaseOperation)

		uc := app.NewPublicationUseCase(store, fixedClock())

		_, err := uc.ResolveSwap(context.Background(), newDraft(t), entities.SwapReplace, time.UTC)

		var stepErr *entities.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, entities.StepCreatePublic, stepErr.Step)
		assert.True(t, stepErr.DemoteCommitted())
		require.ErrorIs(t, err, entities.ErrPersistence)
		require.ErrorIs(t, err, ErrDatabaseOperation)
	})

	t.Run("failure while demoting reports nothing committed", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(existingPublic(), nil)
		store.On("DeletePublicNote", mock.Anything, "old-pub").Return(ErrDatabaseOperation)

		uc := app.NewPublicationUseCase(store, fixedClock())

		_, err := uc.ResolveSwap(context.Background(), newDraft(t), entities.SwapReplace, time.UTC)

		var stepErr *entities.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, entities.StepDemoteDeletePublic, stepErr.Step)
		assert.False(t, stepErr.DemoteCommitted())
		store.AssertNotCalled(t, "CreatePublicNote", mock.Anything, mock.Anything)
	})

	t.Run("conflict gone by the time of the decision", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(nil, nil)
		store.On("CreatePublicNote", mock.Anything, mock.Anything).Return(&entities.PublicNote{ID: "pub-2"}, nil)
		store.On("CreatePrivateNote", mock.Anything, linkedTo("pub-2")).
			Return(&entities.PrivateNote{ID: "new-note", IsPublic: true, PublicNoteID: "pub-2"}, nil)

		uc := app.NewPublicationUseCase(store, fixedClock())

		out, err := uc.ResolveSwap(context.Background(), newDraft(t), entities.SwapReplace, time.UTC)

		require.NoError(t, err)
		assert.Equal(t, entities.StatePublished, out.State)
		store.AssertNotCalled(t, "SetPublicStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPublicationUseCase_ResolveSwapRejectsTamperedDraft(t *testing.T) {
	honolulu, err := time.LoadLocation("Pacific/Honolulu")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(d *entities.Draft)
		loc     *time.Location
		now     time.Time
		wantMsg string
	}{
		{
			name:    "date from another day",
			mutate:  func(d *entities.Draft) { d.Date = "2001-01-01" },
			loc:     time.UTC,
			now:     fixedNow,
			wantMsg: entities.MsgDraftDateMismatch,
		},
		{
			name:    "date computed in another zone",
			mutate:  func(*entities.Draft) {},
			loc:     honolulu,
			now:     fixedNow,
			wantMsg: entities.MsgDraftDateMismatch,
		},
		{
			name: "creation time in the future",
			mutate: func(d *entities.Draft) {
				d.CreatedAt = fixedNow.AddDate(100, 0, 0)
				d.Date = entities.Day(d.CreatedAt, time.UTC)
			},
			loc:     time.UTC,
			now:     fixedNow,
			wantMsg: entities.MsgDraftInFuture,
		},
		{
			name:    "stale draft",
			mutate:  func(*entities.Draft) {},
			loc:     time.UTC,
			now:     fixedNow.Add(entities.DraftMaxAge + time.Minute),
			wantMsg: entities.MsgDraftExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockNoteStore)
			now := tt.now
			uc := app.NewPublicationUseCase(store, app.WithClock(func() time.Time { return now }))

			draft := newDraft(t)
			tt.mutate(draft)

			for _, decision := range []entities.SwapDecision{entities.SwapReplace, entities.SwapDecline} {
				_, err := uc.ResolveSwap(context.Background(), draft, decision, tt.loc)
				require.ErrorIs(t, err, entities.ErrValidation)
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			store.AssertNotCalled(t, "FindPublicNoteForUserOnDate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "CreatePublicNote", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "CreatePrivateNote", mock.Anything, mock.Anything)
		})
	}

	t.Run("draft a few minutes old is accepted", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "").Return(nil, nil)
		store.On("CreatePublicNote", mock.Anything, mock.Anything).Return(&entities.PublicNote{ID: "pub-2"}, nil)
		store.On("CreatePrivateNote", mock.Anything, linkedTo("pub-2")).
			Return(&entities.PrivateNote{ID: "new-note", IsPublic: true, PublicNoteID: "pub-2"}, nil)

		uc := app.NewPublicationUseCase(store, app.WithClock(func() time.Time { return fixedNow.Add(5 * time.Minute) }))

		out, err := uc.ResolveSwap(context.Background(), newDraft(t), entities.SwapReplace, time.UTC)

		require.NoError(t, err)
		assert.Equal(t, entities.StatePublished, out.State)
	})
}

func TestPublicationUseCase_SetVisibility(t *testing.T) {
	privateNote := func() *entities.PrivateNote {
		return &entities.PrivateNote{
			ID: "note-1", UserID: testUser, Mood: entities.MoodClear, Message: "m",
			Date: "2025-04-10", CreatedAt: fixedNow.AddDate(0, 0, -2),
		}
	}

	t.Run("private to public uses the note date", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(privateNote(), nil)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, "2025-04-10", "note-1").Return(nil, nil)
		store.On("CreatePublicNote", mock.Anything, mock.MatchedBy(func(n *entities.PublicNote) bool {
			return n.Date == "2025-04-10" && n.Message == "m"
		})).Return(&entities.PublicNote{ID: "pub-1"}, nil)
		store.On("SetPublicStatus", mock.Anything, "note-1", true, "pub-1").Return(nil)

		uc := app.NewPublicationUseCase(store, app.WithClock(func() time.Time { return fixedNow }))

		out, err := uc.SetVisibility(context.Background(), testUser, "note-1", true)

		require.NoError(t, err)
		assert.Equal(t, entities.StatePublished, out.State)
		assert.True(t, out.Note.IsPublic)
		assert.Equal(t, "pub-1", out.Note.PublicNoteID)
		store.AssertExpectations(t)
	})

	t.Run("private to public with a taken day", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(privateNote(), nil)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, "2025-04-10", "note-1").Return(existingPublic(), nil)

		uc := app.NewPublicationUseCase(store)

		out, err := uc.SetVisibility(context.Background(), testUser, "note-1", true)

		require.NoError(t, err)
		assert.Equal(t, entities.StateAwaitingSwapDecision, out.State)
		assert.Equal(t, "note-1", out.Note.ID)
		assert.Equal(t, "old-note", out.Conflict.ID)
		store.AssertNotCalled(t, "CreatePublicNote", mock.Anything, mock.Anything)
	})

	t.Run("public to private deletes the public copy", func(t *testing.T) {
		note := privateNote()
		note.IsPublic = true
		note.PublicNoteID = "pub-1"

		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(note, nil)
		del := store.On("DeletePublicNote", mock.Anything, "pub-1").Return(nil)
		store.On("SetPublicStatus", mock.Anything, "note-1", false, "").Return(nil).NotBefore(del)

		uc := app.NewPublicationUseCase(store, app.WithPublisher(newPublisher()))

		out, err := uc.SetVisibility(context.Background(), testUser, "note-1", false)

		require.NoError(t, err)
		assert.Equal(t, entities.StateKeptPrivate, out.State)
		assert.False(t, out.Note.IsPublic)
		assert.Empty(t, out.Note.PublicNoteID)
		store.AssertExpectations(t)
	})

	t.Run("already private clears a stale stored flag", func(t *testing.T) {
		// копия удалена, а is_public в хранилище остался: запись читается приватной
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(privateNote(), nil)
		store.On("SetPublicStatus", mock.Anything, "note-1", false, "").Return(nil).Once()

		uc := app.NewPublicationUseCase(store)

		out, err := uc.SetVisibility(context.Background(), testUser, "note-1", false)

		require.NoError(t, err)
		assert.Equal(t, entities.StateKeptPrivate, out.State)
		assert.False(t, out.Note.IsPublic)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "DeletePublicNote", mock.Anything, mock.Anything)
	})

	t.Run("clearing a stale flag fails", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(privateNote(), nil)
		store.On("SetPublicStatus", mock.Anything, "note-1", false, "").Return(ErrDatabaseOperation)

		uc := app.NewPublicationUseCase(store)

		_, err := uc.SetVisibility(context.Background(), testUser, "note-1", false)

		var stepErr *entities.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, entities.StepDemoteClearFlag, stepErr.Step)
	})

	t.Run("unknown note", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "missing").Return(nil, entities.ErrNotFound)

		uc := app.NewPublicationUseCase(store)

		_, err := uc.SetVisibility(context.Background(), testUser, "missing", true)

		require.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("flag write fails and public copy is rolled back", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(privateNote(), nil)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, "2025-04-10", "note-1").Return(nil, nil)
		store.On("CreatePublicNote", mock.Anything, mock.Anything).Return(&entities.PublicNote{ID: "pub-1"}, nil)
		store.On("SetPublicStatus", mock.Anything, "note-1", true, "pub-1").Return(ErrDatabaseOperation)
		store.On("DeletePublicNote", mock.Anything, "pub-1").Return(nil)

		uc := app.NewPublicationUseCase(store)

		_, err := uc.SetVisibility(context.Background(), testUser, "note-1", true)

		var stepErr *entities.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, entities.StepSetPublic, stepErr.Step)
		store.AssertExpectations(t)
	})
}

func TestPublicationUseCase_ResolveToggleSwap(t *testing.T) {
	note := &entities.PrivateNote{
		ID: "note-1", UserID: testUser, Mood: entities.MoodClear, Message: "m",
		Date: testDate, CreatedAt: fixedNow,
	}

	t.Run("swap", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(note, nil)
		store.On("FindPublicNoteForUserOnDate", mock.Anything, testUser, testDate, "note-1").Return(existingPublic(), nil)
		del := store.On("DeletePublicNote", mock.Anything, "old-pub").Return(nil)
		clearFlag := store.On("SetPublicStatus", mock.Anything, "old-note", false, "").Return(nil).NotBefore(del)
		create := store.On("CreatePublicNote", mock.Anything, mock.Anything).
			Return(&entities.PublicNote{ID: "pub-9"}, nil).NotBefore(clearFlag)
		store.On("SetPublicStatus", mock.Anything, "note-1", true, "pub-9").Return(nil).NotBefore(create)

		uc := app.NewPublicationUseCase(store)

		out, err := uc.ResolveToggleSwap(context.Background(), testUser, "note-1", entities.SwapReplace)

		require.NoError(t, err)
		assert.Equal(t, entities.StatePublished, out.State)
		store.AssertExpectations(t)
	})

	t.Run("decline writes nothing", func(t *testing.T) {
		store := new(mockNoteStore)
		store.On("GetPrivateNote", mock.Anything, testUser, "note-1").Return(note, nil)

		uc := app.NewPublicationUseCase(store)

		out, err := uc.ResolveToggleSwap(context.Background(), testUser, "note-1", entities.SwapDecline)

		require.NoError(t, err)
		assert.Equal(t, entities.StateKeptPrivate, out.State)
		store.AssertExpectations(t)
	})
}

func TestPublicationUseCase_PublisherFailureDoesNotFailSave(t *testing.T) {
	store := new(mockNoteStore)
	store.On("CreatePrivateNote", mock.Anything, mock.Anything).Return(&entities.PrivateNote{ID: "n1", UserID: testUser}, nil)

	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(ev entities.ChangeEvent) bool {
		return ev.Kind == entities.ChangePrivateNote && ev.UserID == testUser
	})).Return(errors.New("bus down"))

	uc := app.NewPublicationUseCase(store, app.WithPublisher(publisher))

	out, err := uc.Save(context.Background(), newDraft(t), entities.ShareKeepPrivate)

	require.NoError(t, err)
	assert.Equal(t, entities.StateKeptPrivate, out.State)
	publisher.AssertExpectations(t)
}
