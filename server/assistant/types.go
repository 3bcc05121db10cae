// Package assistant is the session and intent-routing engine. It turns a
// canonical utterance into a classified, dispatched, synthesized turn
// while owning per-session ordering and the handler time budget.
package assistant

import (
	"context"

	"github.com/thachpham/thachai/server/nlu"
	"github.com/thachpham/thachai/server/session"
)

// Utterance is the canonical request produced by a protocol adapter.
// It is transient and never persisted.
type Utterance struct {
	Platform  session.Platform
	CallerKey string
	UserID    string
	RawText   string
	// Language is the adapter's hint; the session language wins once the
	// session exists.
	Language string
	// RawEntities are adapter-provided slots (e.g. skills-kit slot values).
	// They fill entity keys the extractors did not produce.
	RawEntities  map[string]string
	Capabilities []string
	// SeedContext pre-fills the session's slot-filling state when this
	// utterance creates the session; existing sessions keep their own.
	SeedContext map[string]any
}

// TurnResult is the protocol-agnostic outcome of one turn. Adapters
// render it into their native reply shape.
type TurnResult struct {
	SessionID          string
	TurnID             string
	Text               string
	Intent             nlu.Intent
	Confidence         float64
	SuggestedFollowUps []string
	SideEffects        []string
	ActionData         map[string]any
	Success            bool
	Language           string
}

// HandlerResult is what a feature handler returns. A handler signals
// failure with Success=false and a localized message; it must never
// panic past the dispatch boundary (the dispatcher recovers anyway).
type HandlerResult struct {
	Success     bool
	Message     string
	SideEffects []string
	ActionData  map[string]any
}

// Request is the normalized context a feature handler receives. Handlers
// may read and write Session.Context to carry slot-filling state across
// turns; the engine serializes turns per session, so no extra locking is
// needed inside a handler.
type Request struct {
	Utterance *Utterance
	Entities  map[string]string
	Language  string
	Session   *session.Session
}

// HandlerFunc is the uniform feature-handler interface. Returned errors
// are converted by the dispatcher into a degraded HandlerResult.
type HandlerFunc func(ctx context.Context, req *Request) (*HandlerResult, error)

// Stable side-effect vocabulary. Adapters use these tags to decide on
// protocol-specific affordances; the engine itself never interprets them.
const (
	EffectContentCreated     = "content_created"
	EffectProductFound       = "product_found"
	EffectAnalyticsRetrieved = "analytics_retrieved"
	EffectVoiceStatus        = "voice_status_retrieved"
	EffectLanguageSwitched   = "language_switched"
	EffectThemeToggled       = "theme_toggled"
	EffectSearchPerformed    = "search_performed"
	EffectNoteSaved          = "note_saved"
	EffectReminderSet        = "reminder_set"
)
