// Package session owns per-conversation state for the assistant gateway.
// One Session exists per ongoing conversation, keyed by the caller's
// platform plus a platform-specific caller key.
package session

import (
	"time"
)

// Platform identifies the wire protocol family a conversation arrived on.
type Platform string

const (
	PlatformVoiceAssistant Platform = "voice-assistant"
	PlatformSkillsKit      Platform = "skills-kit"
	PlatformBotFramework   Platform = "bot-framework"
	PlatformGeneric        Platform = "generic"
	PlatformWeb            Platform = "web"
)

// Key derives the store key for a (platform, callerKey) pair.
// Scoping the key by platform keeps colliding caller-supplied ids on
// different platforms in distinct sessions.
func Key(platform Platform, callerKey string) string {
	return string(platform) + ":" + callerKey
}

// ConversationTurn is an immutable record of one request/response cycle.
type ConversationTurn struct {
	ID                string            `json:"id"`
	Timestamp         time.Time         `json:"timestamp"`
	UserInput         string            `json:"user_input"`
	AssistantResponse string            `json:"assistant_response"`
	Intent            string            `json:"intent"`
	Entities          map[string]string `json:"entities,omitempty"`
	Confidence        float64           `json:"confidence"`
	Platform          Platform          `json:"platform"`
	ExecutedActions   []string          `json:"executed_actions,omitempty"`
}

// Session is the state of one ongoing conversation.
type Session struct {
	// ID is an opaque unique id, generated at creation, stable for the
	// conversation's lifetime.
	ID string `json:"id"`
	// Key is the derived store key (platform:callerKey).
	Key      string   `json:"key"`
	Platform Platform `json:"platform"`
	UserID   string   `json:"user_id"`
	// Language is an ISO-like code ({vi, en}); set at creation, mutated
	// only by the language-switch intent.
	Language string `json:"language"`
	// Context carries slot-filling state between turns for feature handlers.
	Context map[string]any `json:"context"`
	// Capabilities is the feature-flag set granted to the caller's platform.
	Capabilities []string  `json:"capabilities,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	// History is append-only, chronological.
	History []ConversationTurn `json:"history"`
}

// Clone returns a copy safe to hand out of the store: the Context map
// and the History and Capabilities slices are not shared with the
// original. Turns are immutable records, so their header copy suffices.
func (s *Session) Clone() *Session {
	out := *s
	out.Context = cloneContext(s.Context)
	if s.Capabilities != nil {
		out.Capabilities = append([]string(nil), s.Capabilities...)
	}
	if s.History != nil {
		out.History = make([]ConversationTurn, len(s.History))
		copy(out.History, s.History)
	}
	return &out
}

func cloneContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}

// Duration returns how long the conversation has been alive.
func (s *Session) Duration() time.Duration {
	return s.LastActivity.Sub(s.CreatedAt)
}

// IdleSince returns how long the session has been without a completed turn.
func (s *Session) IdleSince(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}
