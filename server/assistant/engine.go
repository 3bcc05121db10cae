package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/thachpham/thachai/server/internal/errors"
	"github.com/thachpham/thachai/server/internal/observability"
	"github.com/thachpham/thachai/server/nlu"
	"github.com/thachpham/thachai/server/session"
)

// TurnRecorder consumes completed turns. Recording must never block the
// reply path; implementations drop under load rather than stall.
type TurnRecorder interface {
	Record(turn session.ConversationTurn)
}

// Engine is the session and intent-routing core. One engine serves all
// platforms; protocol differences stop at the adapters.
type Engine struct {
	store      session.Store
	classifier *nlu.Classifier
	dispatcher *Dispatcher
	synth      *Synthesizer
	recorder   TurnRecorder
	logger     *slog.Logger

	sessionTTL time.Duration
	locks      *keyedLocks
}

// Config assembles an Engine.
type Config struct {
	Store      session.Store
	Classifier *nlu.Classifier
	Dispatcher *Dispatcher
	Synth      *Synthesizer
	Recorder   TurnRecorder
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// NewEngine creates the routing engine.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      cfg.Store,
		classifier: cfg.Classifier,
		dispatcher: cfg.Dispatcher,
		synth:      cfg.Synth,
		recorder:   cfg.Recorder,
		sessionTTL: cfg.SessionTTL,
		logger:     logger,
		locks:      newKeyedLocks(),
	}
}

// ProcessTurn runs one complete turn: get-or-create session, classify,
// dispatch, synthesize, append history. It is total: every path returns
// a usable TurnResult, including store failures.
//
// Turns for the same session key are serialized in receipt order; turns
// for different sessions run in parallel. The handler time budget bounds
// how long the key lock can be held by a stalled handler.
func (e *Engine) ProcessTurn(ctx context.Context, utt *Utterance) *TurnResult {
	tc := observability.NewTurnContext(e.logger, string(utt.Platform))

	key := session.Key(utt.Platform, utt.CallerKey)
	release := e.locks.acquire(key)
	defer release()

	sess, created, err := e.store.GetOrCreate(ctx, session.CreateParams{
		Platform:     utt.Platform,
		CallerKey:    utt.CallerKey,
		UserID:       utt.UserID,
		Language:     utt.Language,
		Capabilities: utt.Capabilities,
		Context:      utt.SeedContext,
	})
	if err != nil {
		tc.Logger.Error("session get-or-create failed", "error", err)
		return e.failureResult(utt.Language)
	}
	if created {
		tc.Logger.Info("session created",
			observability.LogFieldSessionID, sess.ID,
			"language", sess.Language)
	}

	cls := e.classifier.Classify(utt.RawText, sess.Language)
	// Adapter-provided slots fill entity keys extraction did not produce.
	for k, v := range utt.RawEntities {
		if _, ok := cls.Entities[k]; !ok && v != "" {
			cls.Entities[k] = v
		}
	}

	req := &Request{
		Utterance: utt,
		Entities:  cls.Entities,
		Language:  sess.Language,
		Session:   sess,
	}
	hr := e.dispatcher.Dispatch(ctx, cls.Intent, req)

	// Persist context/language mutations made by the handler.
	if err := e.store.Update(ctx, sess); err != nil {
		tc.Logger.Error("session update failed",
			observability.LogFieldSessionID, sess.ID,
			observability.LogFieldErrorCode, string(errors.ErrCodeSessionNotFound),
			"error", err)
	}

	result := e.synth.Synthesize(hr, cls, sess.Language)
	result.SessionID = sess.ID
	result.TurnID = shortuuid.New()

	turnIntent := cls.Intent
	if !hr.Success {
		turnIntent = nlu.IntentError
	}
	turn := session.ConversationTurn{
		ID:                result.TurnID,
		Timestamp:         time.Now(),
		UserInput:         utt.RawText,
		AssistantResponse: result.Text,
		Intent:            string(turnIntent),
		Entities:          cls.Entities,
		Confidence:        cls.Confidence,
		Platform:          utt.Platform,
		ExecutedActions:   hr.SideEffects,
	}

	// The turn completes even when the handler failed: history is
	// appended and last activity advances either way.
	if err := e.store.AppendTurn(ctx, sess.ID, turn); err != nil {
		// Invariant violation: we hold the key lock, the session cannot
		// have been swept mid-turn.
		tc.Logger.Error("append turn failed",
			observability.LogFieldSessionID, sess.ID,
			observability.LogFieldErrorCode, string(errors.ErrCodeSessionNotFound),
			"error", err)
	}
	if err := e.store.Touch(ctx, sess.ID, turn.Timestamp); err != nil {
		tc.Logger.Error("touch failed",
			observability.LogFieldSessionID, sess.ID,
			"error", err)
	}

	if e.recorder != nil {
		e.recorder.Record(turn)
	}

	tc.Logger.Info("turn completed",
		observability.LogFieldSessionID, sess.ID,
		observability.LogFieldIntent, string(turnIntent),
		observability.LogFieldConfidence, cls.Confidence,
		observability.LogFieldDuration, tc.DurationMs(),
		"success", hr.Success)

	return result
}

// failureResult is the total-failure reply: apology text, empty side
// effects, intent tagged error.
func (e *Engine) failureResult(language string) *TurnResult {
	return &TurnResult{
		Text: msg(language,
			"Xin lỗi, có lỗi xảy ra. Vui lòng thử lại.",
			"Sorry, something went wrong. Please try again."),
		Intent:     nlu.IntentError,
		Confidence: 0,
		Success:    false,
		Language:   language,
	}
}

// ClearSession explicitly terminates a conversation.
func (e *Engine) ClearSession(ctx context.Context, platform session.Platform, callerKey string) error {
	key := session.Key(platform, callerKey)
	release := e.locks.acquire(key)
	defer release()

	sessions, err := e.store.List(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.Key == key {
			return e.store.Delete(ctx, sess.ID)
		}
	}
	return session.ErrNotFound
}

// StartSweeper runs the idle-expiry sweep until ctx is done.
func (e *Engine) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := e.sweep(ctx, time.Now())
				if removed > 0 {
					e.logger.Info("expired idle sessions", "count", removed)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// sweep removes sessions idle past the TTL. A session whose key lock is
// held has a turn in flight; its expiry is deferred to a later round,
// never forced.
func (e *Engine) sweep(ctx context.Context, now time.Time) int {
	sessions, err := e.store.List(ctx)
	if err != nil {
		e.logger.Error("sweep list failed", "error", err)
		return 0
	}

	removed := 0
	for _, sess := range sessions {
		if sess.IdleSince(now) <= e.sessionTTL {
			continue
		}
		release, ok := e.locks.tryAcquire(sess.Key)
		if !ok {
			continue // mid-turn, defer
		}
		// Re-read under the lock: a turn may have completed between the
		// list and the lock acquisition.
		current, err := e.store.Get(ctx, sess.ID)
		if err == nil && current.IdleSince(now) > e.sessionTTL {
			if err := e.store.Delete(ctx, sess.ID); err == nil {
				removed++
			}
		}
		release()
	}
	return removed
}
