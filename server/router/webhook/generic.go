package webhook

import (
	"encoding/json"
	"time"

	"github.com/thachpham/thachai/server/assistant"
	gwerrors "github.com/thachpham/thachai/server/internal/errors"
	"github.com/thachpham/thachai/server/nlu"
	"github.com/thachpham/thachai/server/session"
)

// genericRequest is the first-party web client request shape.
type genericRequest struct {
	Platform     string         `json:"platform"`
	UserID       string         `json:"userId"`
	Input        string         `json:"input"`
	InputType    string         `json:"inputType"`
	Language     string         `json:"language"`
	Capabilities []string       `json:"capabilities"`
	Context      map[string]any `json:"context"`
}

// genericReply is the structured JSON reply for first-party clients.
type genericReply struct {
	SessionID   string         `json:"sessionId"`
	Response    string         `json:"response"`
	Intent      nlu.Intent     `json:"intent"`
	Confidence  float64        `json:"confidence"`
	Suggestions []string       `json:"suggestions"`
	Actions     []string       `json:"actions"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// GenericAdapter handles the bespoke JSON format of first-party clients.
type GenericAdapter struct{}

func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

func (a *GenericAdapter) Platform() session.Platform {
	return session.PlatformGeneric
}

func (a *GenericAdapter) Capabilities() []string {
	return []string{"text_processing", "data_analysis", "messaging"}
}

// ToUtterance implements Adapter. The web client reports its own
// platform field; "web" keeps its identity, everything else lands on
// the generic platform. A launch input type synthesizes a greeting.
func (a *GenericAdapter) ToUtterance(body []byte) (*assistant.Utterance, error) {
	var req genericRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrCodeAdapterParse, "malformed generic payload", err)
	}
	if req.UserID == "" {
		return nil, gwerrors.New(gwerrors.ErrCodeAdapterParse, "generic payload missing userId")
	}

	platform := session.PlatformGeneric
	if req.Platform == "web" {
		platform = session.PlatformWeb
	}

	language := normalizeLanguage(req.Language)
	text := req.Input
	if text == "" || req.InputType == "launch" {
		text = greetingText(language)
	}

	capabilities := req.Capabilities
	if len(capabilities) == 0 {
		capabilities = a.Capabilities()
	}

	return &assistant.Utterance{
		Platform:     platform,
		CallerKey:    req.UserID,
		UserID:       req.UserID,
		RawText:      text,
		Language:     language,
		RawEntities:  stringParameters(req.Context),
		Capabilities: capabilities,
		SeedContext:  req.Context,
	}, nil
}

// ToReply implements Adapter.
func (a *GenericAdapter) ToReply(result *assistant.TurnResult) any {
	text := result.Text
	if text == "" {
		text = apologyText(result.Language)
	}
	suggestions := result.SuggestedFollowUps
	if suggestions == nil {
		suggestions = []string{}
	}
	actions := result.SideEffects
	if actions == nil {
		actions = []string{}
	}
	return genericReply{
		SessionID:   result.SessionID,
		Response:    text,
		Intent:      result.Intent,
		Confidence:  result.Confidence,
		Suggestions: suggestions,
		Actions:     actions,
		Data:        result.ActionData,
		Timestamp:   time.Now(),
	}
}

// FallbackReply implements Adapter.
func (a *GenericAdapter) FallbackReply(language string) any {
	return genericReply{
		Response:    apologyText(language),
		Intent:      nlu.IntentError,
		Suggestions: []string{},
		Actions:     []string{},
		Timestamp:   time.Now(),
	}
}
