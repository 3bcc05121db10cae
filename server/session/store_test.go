package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore("memory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetOrCreate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	params := CreateParams{
		Platform:     PlatformSkillsKit,
		CallerKey:    "amzn1.ask.session.abc",
		UserID:       "amzn1.ask.account.xyz",
		Language:     "vi",
		Capabilities: []string{"voice_output"},
	}

	sess, created, err := store.GetOrCreate(ctx, params)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, sess.ID)
	require.Equal(t, "skills-kit:amzn1.ask.session.abc", sess.Key)
	require.Empty(t, sess.History)
	require.NotNil(t, sess.Context)

	again, created, err := store.GetOrCreate(ctx, params)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, sess.ID, again.ID)
}

func TestGetOrCreateScopedByPlatform(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Same caller key on two platforms must never share a session.
	a, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformGeneric, CallerKey: "user-1", Language: "vi"})
	require.NoError(t, err)
	b, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformBotFramework, CallerKey: "user-1", Language: "vi"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	params := CreateParams{Platform: PlatformGeneric, CallerKey: "racer", Language: "vi"}

	const callers = 32
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, _, err := store.GetOrCreate(ctx, params)
			require.NoError(t, err)
			ids[i] = sess.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id, "simultaneous first utterances must yield one session")
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAppendTurnOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "u", Language: "vi"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		turn := ConversationTurn{
			ID:        string(rune('a' + i)),
			Timestamp: time.Now(),
			UserInput: "turn",
			Platform:  PlatformWeb,
		}
		require.NoError(t, store.AppendTurn(ctx, sess.ID, turn))
	}

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 5)
	require.Equal(t, "e", got.History[4].ID, "newest turn must be last")
}

func TestSessionsAreSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "u", Language: "vi"})
	require.NoError(t, err)
	require.NoError(t, store.AppendTurn(ctx, sess.ID, ConversationTurn{ID: "t1"}))

	// Mutating a returned session must not leak into the store.
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	got.History = append(got.History, ConversationTurn{ID: "rogue"})
	got.Context["rogue"] = true
	got.Language = "en"

	fresh, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, fresh.History, 1)
	require.NotContains(t, fresh.Context, "rogue")
	require.Equal(t, "vi", fresh.Language)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	listed[0].Context["rogue"] = true
	fresh, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotContains(t, fresh.Context, "rogue")
}

func TestUpdatePersistsLanguageAndContext(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "u", Language: "vi"})
	require.NoError(t, err)

	sess.Language = "en"
	sess.Context["theme"] = "dark"
	require.NoError(t, store.Update(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "en", got.Language)
	require.Equal(t, "dark", got.Context["theme"])

	require.ErrorIs(t, store.Update(ctx, &Session{ID: "no-such"}), ErrNotFound)
}

func TestReadersRunConcurrentlyWithWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "u", Language: "vi"})
	require.NoError(t, err)

	const turns = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < turns; i++ {
			_ = store.AppendTurn(ctx, sess.ID, ConversationTurn{ID: "t", Timestamp: time.Now()})
			_ = store.Touch(ctx, sess.ID, time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < turns; i++ {
			sessions, err := store.List(ctx)
			if err != nil {
				continue
			}
			for _, s := range sessions {
				// Field reads must be safe against in-flight turn writes.
				_ = len(s.History)
				_ = s.LastActivity
				_ = s.Duration()
			}
		}
	}()
	wg.Wait()

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.History, turns)
}

func TestGetOrCreateSeedsContext(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	params := CreateParams{
		Platform:  PlatformWeb,
		CallerKey: "u",
		Language:  "vi",
		Context:   map[string]any{"theme": "dark"},
	}
	sess, created, err := store.GetOrCreate(ctx, params)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "dark", sess.Context["theme"])

	// An existing session keeps its own context.
	params.Context = map[string]any{"theme": "light"}
	again, created, err := store.GetOrCreate(ctx, params)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "dark", again.Context["theme"])
}

func TestAppendTurnNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.AppendTurn(context.Background(), "no-such-session", ConversationTurn{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTouch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "u", Language: "vi"})
	require.NoError(t, err)

	later := sess.LastActivity.Add(time.Minute)
	require.NoError(t, store.Touch(ctx, sess.ID, later))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, later, got.LastActivity)

	// Touch never moves last activity backwards.
	require.NoError(t, store.Touch(ctx, sess.ID, later.Add(-time.Hour)))
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, later, got.LastActivity)
}

func TestExpireIdle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "stale", Language: "vi"})
	require.NoError(t, err)
	fresh, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "fresh", Language: "vi"})
	require.NoError(t, err)

	now := time.Now().Add(31 * time.Minute)
	require.NoError(t, store.Touch(ctx, fresh.ID, now))

	removed, err := store.ExpireIdle(ctx, now, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = store.Get(ctx, stale.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)

	// A new utterance for the expired caller key creates a brand-new session.
	reborn, created, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "stale", Language: "vi"})
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, stale.ID, reborn.ID)
	require.Empty(t, reborn.History)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _, err := store.GetOrCreate(ctx, CreateParams{Platform: PlatformWeb, CallerKey: "u", Language: "vi"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.Delete(ctx, sess.ID), ErrNotFound)
}

func TestNewStoreInvalidDriver(t *testing.T) {
	_, err := NewStore("postgres")
	require.ErrorIs(t, err, ErrInvalidDriver)

	// The redis driver requires a client.
	_, err = NewStore("redis")
	require.ErrorIs(t, err, ErrInvalidConfig)
}
