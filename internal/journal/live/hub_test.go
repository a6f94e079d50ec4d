package live_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/live"
)

type fakeJournal struct {
	mu      sync.Mutex
	history []*entities.PrivateNote
	public  []*entities.PublicNote
	err     error
}

func (f *fakeJournal) History(_ context.Context, userID string) ([]*entities.PrivateNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*entities.PrivateNote
	for _, n := range f.history {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeJournal) Feed(context.Context, *time.Location) ([]*entities.PublicNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return clonePublic(f.public), nil
}

func (f *fakeJournal) Rank(_ context.Context, _ entities.Window, topN int) ([]*entities.PublicNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return entities.Rank(clonePublic(f.public), time.Time{}, topN), nil
}

func (f *fakeJournal) update(fn func(f *fakeJournal)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func clonePublic(in []*entities.PublicNote) []*entities.PublicNote {
	out := make([]*entities.PublicNote, 0, len(in))
	for _, n := range in {
		cp := *n
		cp.LikedBy = append([]string{}, n.LikedBy...)
		out = append(out, &cp)
	}
	return out
}

type countingObserver struct {
	mu     sync.Mutex
	opened map[string]int
	closed map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{opened: map[string]int{}, closed: map[string]int{}}
}

func (o *countingObserver) SubscriptionOpened(view string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened[view]++
}

func (o *countingObserver) SubscriptionClosed(view string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed[view]++
}

func (o *countingObserver) closedCount(view string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed[view]
}

func receive(t *testing.T, sub *live.Subscription) live.Update {
	t.Helper()
	select {
	case u, ok := <-sub.Updates():
		require.True(t, ok, "updates channel closed")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
		return live.Update{}
	}
}

func assertQuiet(t *testing.T, sub *live.Subscription) {
	t.Helper()
	select {
	case u := <-sub.Updates():
		t.Fatalf("unexpected update: %+v", u)
	case <-time.After(100 * time.Millisecond):
	}
}

func publicNote(id, userID string, likes int) *entities.PublicNote {
	n := &entities.PublicNote{
		ID:        id,
		UserID:    userID,
		Mood:      entities.MoodSunny,
		Message:   "hello " + id,
		Date:      "2025-04-12",
		CreatedAt: time.Date(2025, 4, 12, 9, 0, 0, 0, time.UTC),
	}
	for i := 0; i < likes; i++ {
		n.LikedBy = append(n.LikedBy, "liker-"+string(rune('a'+i)))
	}
	n.LikeCount = likes
	return n
}

func TestHub_HistorySnapshotThenDiff(t *testing.T) {
	journal := &fakeJournal{history: []*entities.PrivateNote{
		{ID: "n1", UserID: "u1", Mood: entities.MoodSunny, Message: "first", Date: "2025-04-12"},
		{ID: "n2", UserID: "u2", Mood: entities.MoodRainy, Message: "other", Date: "2025-04-12"},
	}}
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := hub.Subscribe(ctx, live.HistoryView(journal, "u1"))
	require.NoError(t, err)
	defer sub.Close()

	snapshot := receive(t, sub)
	assert.Equal(t, live.UpdateSnapshot, snapshot.Type)
	require.Len(t, snapshot.Rows, 1)
	assert.Equal(t, "n1", snapshot.Rows[0].Key)

	journal.update(func(f *fakeJournal) {
		f.history = append([]*entities.PrivateNote{
			{ID: "n3", UserID: "u1", Mood: entities.MoodCloudy, Message: "second", Date: "2025-04-13"},
		}, f.history...)
	})

	t.Run("other user's change is ignored", func(t *testing.T) {
		hub.Notify(entities.ChangeEvent{Kind: entities.ChangePrivateNote, UserID: "u2", NoteID: "n2"})
		assertQuiet(t, sub)
	})

	t.Run("own change produces a diff", func(t *testing.T) {
		hub.Notify(entities.ChangeEvent{Kind: entities.ChangePrivateNote, UserID: "u1", NoteID: "n3"})
		u := receive(t, sub)
		assert.Equal(t, live.UpdateDiff, u.Type)
		require.Len(t, u.Added, 1)
		assert.Equal(t, "n3", u.Added[0].Key)
		assert.Equal(t, []string{"n3", "n1"}, u.Order)
	})

	t.Run("likes never touch history", func(t *testing.T) {
		hub.Notify(entities.ChangeEvent{Kind: entities.ChangeLike, UserID: "u1", NoteID: "p1"})
		assertQuiet(t, sub)
	})
}

func TestHub_FeedLikedByMe(t *testing.T) {
	journal := &fakeJournal{public: []*entities.PublicNote{publicNote("p1", "author", 0)}}
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := hub.Subscribe(ctx, live.FeedView(journal, time.UTC, "viewer"))
	require.NoError(t, err)
	defer sub.Close()

	snapshot := receive(t, sub)
	require.Len(t, snapshot.Rows, 1)
	item, ok := snapshot.Rows[0].Value.(live.PublicItem)
	require.True(t, ok)
	assert.False(t, item.LikedByMe)

	journal.update(func(f *fakeJournal) {
		f.public[0].LikedBy = []string{"viewer"}
		f.public[0].LikeCount = 1
	})
	require.NoError(t, hub.Publish(ctx, entities.ChangeEvent{Kind: entities.ChangeLike, UserID: "viewer", NoteID: "p1"}))

	u := receive(t, sub)
	require.Len(t, u.Modified, 1)
	item, ok = u.Modified[0].Value.(live.PublicItem)
	require.True(t, ok)
	assert.True(t, item.LikedByMe)
	assert.Equal(t, 1, item.LikeCount)
}

func TestHub_LeaderboardReorders(t *testing.T) {
	journal := &fakeJournal{public: []*entities.PublicNote{
		publicNote("p1", "a", 2),
		publicNote("p2", "b", 1),
	}}
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := hub.Subscribe(ctx, live.LeaderboardView(journal, entities.WindowLast7Days, 10, ""))
	require.NoError(t, err)
	defer sub.Close()

	snapshot := receive(t, sub)
	require.Len(t, snapshot.Rows, 2)
	assert.Equal(t, "p1", snapshot.Rows[0].Key)

	journal.update(func(f *fakeJournal) {
		f.public[1] = publicNote("p2", "b", 3)
	})
	hub.Notify(entities.ChangeEvent{Kind: entities.ChangeLike, NoteID: "p2"})

	u := receive(t, sub)
	assert.Equal(t, []string{"p2", "p1"}, u.Order)
	require.Len(t, u.Modified, 1)
	assert.Equal(t, "p2", u.Modified[0].Key)
}

func TestHub_PeriodicRefresh(t *testing.T) {
	journal := &fakeJournal{}
	hub := live.NewHub(live.WithRefreshInterval(20 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := hub.Subscribe(ctx, live.FeedView(journal, time.UTC, ""))
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, receive(t, sub).Rows)

	journal.update(func(f *fakeJournal) {
		f.public = []*entities.PublicNote{publicNote("p1", "a", 0)}
	})

	u := receive(t, sub)
	require.Len(t, u.Added, 1)
	assert.Equal(t, "p1", u.Added[0].Key)
}

func TestHub_RefreshFailureKeepsSubscription(t *testing.T) {
	journal := &fakeJournal{}
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := hub.Subscribe(ctx, live.FeedView(journal, time.UTC, ""))
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub)

	journal.update(func(f *fakeJournal) { f.err = errors.New("db down") })
	hub.Notify(entities.ChangeEvent{Kind: entities.ChangePublicNote})
	assertQuiet(t, sub)

	journal.update(func(f *fakeJournal) {
		f.err = nil
		f.public = []*entities.PublicNote{publicNote("p1", "a", 0)}
	})
	hub.Notify(entities.ChangeEvent{Kind: entities.ChangePublicNote})

	u := receive(t, sub)
	require.Len(t, u.Added, 1)
}

// gatedView отдает первое чтение только после release, имитируя медленный запрос.
type gatedView struct {
	live.View
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedView(view live.View) *gatedView {
	return &gatedView{View: view, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedView) Load(ctx context.Context) ([]live.Row, error) {
	rows, err := g.View.Load(ctx)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return rows, err
}

func TestHub_ChangeDuringSnapshotLoadIsDelivered(t *testing.T) {
	journal := &fakeJournal{}
	hub := live.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := newGatedView(live.FeedView(journal, time.UTC, ""))
	type result struct {
		sub *live.Subscription
		err error
	}
	done := make(chan result, 1)
	go func() {
		sub, err := hub.Subscribe(ctx, view)
		done <- result{sub: sub, err: err}
	}()

	select {
	case <-view.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot load never started")
	}

	// снимок уже прочитан, а изменение и событие приходят до его отправки
	journal.update(func(f *fakeJournal) {
		f.public = []*entities.PublicNote{publicNote("p1", "a", 0)}
	})
	hub.Notify(entities.ChangeEvent{Kind: entities.ChangePublicNote, UserID: "a", NoteID: "p1"})
	close(view.release)

	res := <-done
	require.NoError(t, res.err)
	sub := res.sub
	defer sub.Close()

	snapshot := receive(t, sub)
	assert.Equal(t, live.UpdateSnapshot, snapshot.Type)
	assert.Empty(t, snapshot.Rows)

	u := receive(t, sub)
	assert.Equal(t, live.UpdateDiff, u.Type)
	require.Len(t, u.Added, 1)
	assert.Equal(t, "p1", u.Added[0].Key)
}

func TestHub_SubscribeLoadError(t *testing.T) {
	journal := &fakeJournal{err: errors.New("db down")}
	hub := live.NewHub()

	_, err := hub.Subscribe(context.Background(), live.HistoryView(journal, "u1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), live.ErrLoadSnapshot)
	assert.Zero(t, hub.Subscribers())
}

func TestHub_Lifecycle(t *testing.T) {
	journal := &fakeJournal{}
	observer := newCountingObserver()
	hub := live.NewHub(live.WithObserver(observer))

	t.Run("context cancel ends subscription", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		sub, err := hub.Subscribe(ctx, live.FeedView(journal, time.UTC, ""))
		require.NoError(t, err)
		receive(t, sub)

		cancel()
		assert.Eventually(t, func() bool {
			_, ok := <-sub.Updates()
			return !ok
		}, time.Second, 10*time.Millisecond)
		assert.Eventually(t, func() bool { return observer.closedCount("feed") == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		sub, err := hub.Subscribe(context.Background(), live.HistoryView(journal, "u1"))
		require.NoError(t, err)
		receive(t, sub)

		sub.Close()
		sub.Close()
		assert.Eventually(t, func() bool { return observer.closedCount("history") == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("hub close ends all and rejects new", func(t *testing.T) {
		sub, err := hub.Subscribe(context.Background(), live.LeaderboardView(journal, entities.WindowLast30Days, 5, ""))
		require.NoError(t, err)
		receive(t, sub)

		require.NoError(t, hub.Close(context.Background()))
		assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

		_, err = hub.Subscribe(context.Background(), live.FeedView(journal, time.UTC, ""))
		require.ErrorIs(t, err, live.ErrHubClosed)
	})
}
