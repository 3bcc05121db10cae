package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thachpham/thachai/server/assistant"
	gwerrors "github.com/thachpham/thachai/server/internal/errors"
	"github.com/thachpham/thachai/server/session"
)

const voiceAssistantSource = "ThachAI-Gateway"

// voiceAssistantRequest is the Dialogflow-style fulfillment webhook payload.
type voiceAssistantRequest struct {
	Session     string `json:"session"`
	QueryResult struct {
		QueryText    string         `json:"queryText"`
		LanguageCode string         `json:"languageCode"`
		Parameters   map[string]any `json:"parameters"`
		Intent       struct {
			DisplayName string `json:"displayName"`
		} `json:"intent"`
	} `json:"queryResult"`
}

// voiceAssistantReply is the fulfillment response envelope.
type voiceAssistantReply struct {
	FulfillmentText     string                  `json:"fulfillmentText"`
	FulfillmentMessages []voiceAssistantMessage `json:"fulfillmentMessages"`
	Source              string                  `json:"source"`
}

type voiceAssistantMessage struct {
	Text voiceAssistantMessageText `json:"text"`
}

type voiceAssistantMessageText struct {
	Text []string `json:"text"`
}

// VoiceAssistantAdapter handles the voice-assistant webhook format.
type VoiceAssistantAdapter struct{}

func NewVoiceAssistantAdapter() *VoiceAssistantAdapter {
	return &VoiceAssistantAdapter{}
}

func (a *VoiceAssistantAdapter) Platform() session.Platform {
	return session.PlatformVoiceAssistant
}

func (a *VoiceAssistantAdapter) Capabilities() []string {
	return []string{"text_processing", "voice_recognition"}
}

// ToUtterance implements Adapter. When the platform resolved an intent
// but sent no query text, a natural-language-equivalent string is
// synthesized deterministically from the intent name and parameters so
// the classifier always operates on text.
func (a *VoiceAssistantAdapter) ToUtterance(body []byte) (*assistant.Utterance, error) {
	var req voiceAssistantRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrCodeAdapterParse, "malformed voice-assistant payload", err)
	}
	if req.Session == "" {
		return nil, gwerrors.New(gwerrors.ErrCodeAdapterParse, "voice-assistant payload missing session")
	}

	language := normalizeLanguage(req.QueryResult.LanguageCode)

	text := req.QueryResult.QueryText
	if text == "" {
		if name := req.QueryResult.Intent.DisplayName; name != "" {
			text = synthesizeFromIntentName(name, stringParameters(req.QueryResult.Parameters), language)
		} else {
			// Session-start event with no user text.
			text = greetingText(language)
		}
	}

	return &assistant.Utterance{
		Platform:     a.Platform(),
		CallerKey:    req.Session,
		UserID:       req.Session,
		RawText:      text,
		Language:     language,
		RawEntities:  stringParameters(req.QueryResult.Parameters),
		Capabilities: a.Capabilities(),
	}, nil
}

// ToReply implements Adapter.
func (a *VoiceAssistantAdapter) ToReply(result *assistant.TurnResult) any {
	text := result.Text
	if text == "" {
		text = apologyText(result.Language)
	}
	return voiceAssistantReply{
		FulfillmentText: text,
		FulfillmentMessages: []voiceAssistantMessage{
			{Text: voiceAssistantMessageText{Text: []string{text}}},
		},
		Source: voiceAssistantSource,
	}
}

// FallbackReply implements Adapter.
func (a *VoiceAssistantAdapter) FallbackReply(language string) any {
	text := apologyText(language)
	return voiceAssistantReply{
		FulfillmentText: text,
		FulfillmentMessages: []voiceAssistantMessage{
			{Text: voiceAssistantMessageText{Text: []string{text}}},
		},
		Source: voiceAssistantSource,
	}
}

// stringParameters keeps only string-valued parameters, lowercasing keys
// so they line up with the extractor entity keys.
func stringParameters(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, value := range params {
		if s, ok := value.(string); ok && s != "" {
			out[strings.ToLower(key)] = s
		}
	}
	return out
}

// synthesizeFromIntentName builds a deterministic text equivalent for a
// platform-resolved intent, in registration order of the parameter keys.
func synthesizeFromIntentName(name string, params map[string]string, language string) string {
	phrase := humanizeIntentName(name)
	compact := strings.ToLower(name)

	switch {
	case strings.Contains(compact, "tiktok") || strings.Contains(compact, "content") || strings.Contains(compact, "video"):
		topic := params["topic"]
		if topic == "" {
			topic = phrase
		}
		if language == "en" {
			return fmt.Sprintf("create content about %s", topic)
		}
		return fmt.Sprintf("tạo nội dung về %s", topic)

	case strings.Contains(compact, "shopee") || strings.Contains(compact, "price"):
		product := params["product"]
		if language == "en" {
			return strings.TrimSpace("check price of " + product)
		}
		return strings.TrimSpace("kiểm tra giá " + product)

	case strings.Contains(compact, "analytics") || strings.Contains(compact, "report"):
		if language == "en" {
			return "show me my analytics"
		}
		return "xem thống kê"

	default:
		return phrase
	}
}

// humanizeIntentName turns "CreateTikTokIntent" into "create tik tok".
func humanizeIntentName(name string) string {
	name = strings.TrimPrefix(name, "AMAZON.")
	name = strings.TrimSuffix(name, "Intent")

	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.TrimSpace(b.String()))
}
