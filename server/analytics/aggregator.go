// Package analytics keeps rolling counters over routing outcomes. It is
// a lightweight local alternative to an external metrics stack: counters
// live in memory and reset with the process.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thachpham/thachai/server/session"
)

// Report is a point-in-time snapshot of the aggregator.
type Report struct {
	TotalTurns     int64                       `json:"total_turns"`
	PerPlatform    map[session.Platform]int64  `json:"per_platform"`
	PerIntent      map[string]int64            `json:"per_intent"`
	MeanConfidence float64                     `json:"mean_confidence"`
	ActiveSessions int                         `json:"active_sessions"`
	// SessionDurations buckets live sessions by conversation length,
	// derived from lastActivity-createdAt at snapshot time.
	SessionDurations map[string]int `json:"session_durations"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Aggregator consumes completed turns off a buffered channel. Record is
// fire-and-forget: it never blocks the reply path, and under extreme
// load records are dropped rather than queued unboundedly.
type Aggregator struct {
	mu            sync.RWMutex
	totalTurns    int64
	perPlatform   map[session.Platform]int64
	perIntent     map[string]int64
	confidenceSum float64

	store  session.Store
	ch     chan session.ConversationTurn
	done   chan struct{}
	logger *slog.Logger

	dropped int64
}

// NewAggregator creates an aggregator with the given record buffer depth.
// The store is consulted only at snapshot time for session durations.
func NewAggregator(store session.Store, buffer int) *Aggregator {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Aggregator{
		perPlatform: make(map[session.Platform]int64),
		perIntent:   make(map[string]int64),
		store:       store,
		ch:          make(chan session.ConversationTurn, buffer),
		done:        make(chan struct{}),
		logger:      slog.Default(),
	}
}

// Start begins draining records until ctx is done.
func (a *Aggregator) Start(ctx context.Context) {
	go func() {
		defer close(a.done)
		for {
			select {
			case turn := <-a.ch:
				a.apply(turn)
			case <-ctx.Done():
				// Drain whatever is already buffered before stopping.
				for {
					select {
					case turn := <-a.ch:
						a.apply(turn)
					default:
						return
					}
				}
			}
		}
	}()
}

// Record enqueues a completed turn. Best effort: a full buffer drops the
// record instead of blocking.
func (a *Aggregator) Record(turn session.ConversationTurn) {
	select {
	case a.ch <- turn:
	default:
		a.mu.Lock()
		a.dropped++
		dropped := a.dropped
		a.mu.Unlock()
		if dropped%100 == 1 {
			a.logger.Warn("analytics records dropped", "total_dropped", dropped)
		}
	}
}

func (a *Aggregator) apply(turn session.ConversationTurn) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalTurns++
	a.perPlatform[turn.Platform]++
	a.perIntent[turn.Intent]++
	a.confidenceSum += turn.Confidence
}

// Snapshot returns a point-in-time report. It takes only the read lock,
// so it never blocks Record's drain goroutine for long.
func (a *Aggregator) Snapshot(ctx context.Context) (*Report, error) {
	a.mu.RLock()
	report := &Report{
		TotalTurns:  a.totalTurns,
		PerPlatform: make(map[session.Platform]int64, len(a.perPlatform)),
		PerIntent:   make(map[string]int64, len(a.perIntent)),
		GeneratedAt: time.Now(),
	}
	for platform, count := range a.perPlatform {
		report.PerPlatform[platform] = count
	}
	for intent, count := range a.perIntent {
		report.PerIntent[intent] = count
	}
	if a.totalTurns > 0 {
		report.MeanConfidence = a.confidenceSum / float64(a.totalTurns)
	}
	a.mu.RUnlock()

	sessions, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	report.ActiveSessions = len(sessions)
	report.SessionDurations = bucketDurations(sessions)

	return report, nil
}

func bucketDurations(sessions []*session.Session) map[string]int {
	buckets := map[string]int{
		"under_1m":  0,
		"under_5m":  0,
		"under_30m": 0,
		"over_30m":  0,
	}
	for _, sess := range sessions {
		d := sess.Duration()
		switch {
		case d < time.Minute:
			buckets["under_1m"]++
		case d < 5*time.Minute:
			buckets["under_5m"]++
		case d < 30*time.Minute:
			buckets["under_30m"]++
		default:
			buckets["over_30m"]++
		}
	}
	return buckets
}

// Wait blocks until the drain goroutine has exited after Start's context
// was cancelled. Used by tests and orderly shutdown.
func (a *Aggregator) Wait() {
	<-a.done
}
