package assistant

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thachpham/thachai/server/nlu"
	"github.com/thachpham/thachai/server/session"
)

// uniformTable maps every intent to the same handler.
func uniformTable(h HandlerFunc) map[nlu.Intent]HandlerFunc {
	table := make(map[nlu.Intent]HandlerFunc, len(nlu.AllIntents()))
	for _, intent := range nlu.AllIntents() {
		table[intent] = h
	}
	return table
}

func okHandler(_ context.Context, req *Request) (*HandlerResult, error) {
	return &HandlerResult{Success: true, Message: "ok: " + req.Utterance.RawText}, nil
}

func newTestEngine(t *testing.T, table map[nlu.Intent]HandlerFunc, budget time.Duration) (*Engine, session.Store) {
	t.Helper()

	store, err := session.NewStore("memory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := NewEngine(Config{
		Store:      store,
		Classifier: nlu.NewClassifier(),
		Dispatcher: NewDispatcher(table, budget),
		Synth:      NewSynthesizer(),
		SessionTTL: 30 * time.Minute,
	})
	return engine, store
}

func utterance(callerKey, text string) *Utterance {
	return &Utterance{
		Platform:  session.PlatformGeneric,
		CallerKey: callerKey,
		UserID:    callerKey,
		RawText:   text,
		Language:  "vi",
	}
}

func TestProcessTurnAppendsHistoryInOrder(t *testing.T) {
	engine, store := newTestEngine(t, uniformTable(okHandler), time.Second)
	ctx := context.Background()

	first := engine.ProcessTurn(ctx, utterance("caller", "xin chào"))
	second := engine.ProcessTurn(ctx, utterance("caller", "tạo nội dung về AI"))
	require.Equal(t, first.SessionID, second.SessionID)
	require.NotEqual(t, first.TurnID, second.TurnID)

	sess, err := store.Get(ctx, first.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	require.Equal(t, "xin chào", sess.History[0].UserInput)
	require.Equal(t, "tạo nội dung về AI", sess.History[1].UserInput)
	require.Equal(t, string(nlu.IntentContentCreation), sess.History[1].Intent)
}

func TestHandlerTimeoutStillCompletesTurn(t *testing.T) {
	slow := func(ctx context.Context, _ *Request) (*HandlerResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	engine, store := newTestEngine(t, uniformTable(slow), 30*time.Millisecond)
	ctx := context.Background()

	before := time.Now()
	result := engine.ProcessTurn(ctx, utterance("caller", "xin chào"))
	require.False(t, result.Success)
	require.Contains(t, result.Text, "Xin lỗi")
	require.Equal(t, nlu.IntentError, result.Intent)

	// The degraded turn still lands in history and advances activity.
	sess, err := store.Get(ctx, result.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.History, 1)
	require.Equal(t, string(nlu.IntentError), sess.History[0].Intent)
	require.False(t, sess.LastActivity.Before(before))
}

func TestTurnsForSameSessionAreSerialized(t *testing.T) {
	var inFlight, maxInFlight int64
	var mu sync.Mutex
	tracked := func(_ context.Context, _ *Request) (*HandlerResult, error) {
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > maxInFlight {
			maxInFlight = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return &HandlerResult{Success: true, Message: "ok"}, nil
	}

	engine, store := newTestEngine(t, uniformTable(tracked), time.Second)
	ctx := context.Background()

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.ProcessTurn(ctx, utterance("same-caller", "xin chào"))
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int64(1), maxInFlight)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].History, turns)
}

func TestDifferentSessionsRunConcurrently(t *testing.T) {
	started := make(chan struct{}, 2)
	block := make(chan struct{})
	gated := func(_ context.Context, _ *Request) (*HandlerResult, error) {
		started <- struct{}{}
		<-block
		return &HandlerResult{Success: true, Message: "ok"}, nil
	}

	engine, _ := newTestEngine(t, uniformTable(gated), time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, caller := range []string{"caller-a", "caller-b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			engine.ProcessTurn(ctx, utterance(key, "xin chào"))
		}(caller)
	}

	// Both handlers enter before either is released.
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("handlers did not run concurrently")
		}
	}
	close(block)
	wg.Wait()
}

func TestSweepSkipsInFlightSession(t *testing.T) {
	engine, store := newTestEngine(t, uniformTable(okHandler), time.Second)
	ctx := context.Background()

	result := engine.ProcessTurn(ctx, utterance("caller", "xin chào"))
	sess, err := store.Get(ctx, result.SessionID)
	require.NoError(t, err)

	// Far enough in the future that the session is idle past the TTL.
	future := time.Now().Add(engine.sessionTTL + time.Hour)

	release := engine.locks.acquire(sess.Key)
	require.Zero(t, engine.sweep(ctx, future))
	release()

	require.Equal(t, 1, engine.sweep(ctx, future))
	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestLanguageSwitchPersistsAcrossTurns(t *testing.T) {
	switcher := func(_ context.Context, req *Request) (*HandlerResult, error) {
		req.Session.Language = "en"
		return &HandlerResult{Success: true, Message: "Switched to English."}, nil
	}
	engine, store := newTestEngine(t, uniformTable(switcher), time.Second)
	ctx := context.Background()

	result := engine.ProcessTurn(ctx, utterance("caller", "chuyển sang tiếng anh"))
	sess, err := store.Get(ctx, result.SessionID)
	require.NoError(t, err)
	require.Equal(t, "en", sess.Language)

	// The next turn classifies against the new language's tables.
	second := engine.ProcessTurn(ctx, utterance("caller", "create content about cooking"))
	require.Equal(t, nlu.IntentContentCreation, second.Intent)
}

func TestClearSession(t *testing.T) {
	engine, store := newTestEngine(t, uniformTable(okHandler), time.Second)
	ctx := context.Background()

	result := engine.ProcessTurn(ctx, utterance("caller", "xin chào"))
	require.NoError(t, engine.ClearSession(ctx, session.PlatformGeneric, "caller"))

	_, err := store.Get(ctx, result.SessionID)
	require.ErrorIs(t, err, session.ErrNotFound)
	require.ErrorIs(t, engine.ClearSession(ctx, session.PlatformGeneric, "caller"), session.ErrNotFound)
}
