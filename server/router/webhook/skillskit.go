package webhook

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/thachpham/thachai/server/assistant"
	gwerrors "github.com/thachpham/thachai/server/internal/errors"
	"github.com/thachpham/thachai/server/session"
)

// ErrSessionEnded signals a SessionEndedRequest: the platform is closing
// the conversation, no turn should run.
var ErrSessionEnded = errors.New("skills-kit session ended")

// skillsKitRequest is the Alexa-style skills-kit request envelope.
type skillsKitRequest struct {
	Session struct {
		SessionID string `json:"sessionId"`
		User      struct {
			UserID string `json:"userId"`
		} `json:"user"`
	} `json:"session"`
	Request struct {
		Type   string `json:"type"`
		Locale string `json:"locale"`
		Intent struct {
			Name  string                   `json:"name"`
			Slots map[string]skillsKitSlot `json:"slots"`
		} `json:"intent"`
	} `json:"request"`
}

type skillsKitSlot struct {
	Value string `json:"value"`
}

// skillsKitReply is the skills-kit response envelope.
type skillsKitReply struct {
	Version  string            `json:"version"`
	Response skillsKitResponse `json:"response"`
}

type skillsKitResponse struct {
	OutputSpeech     skillsKitSpeech    `json:"outputSpeech"`
	Card             *skillsKitCard     `json:"card,omitempty"`
	Reprompt         *skillsKitReprompt `json:"reprompt,omitempty"`
	ShouldEndSession bool               `json:"shouldEndSession"`
}

type skillsKitSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type skillsKitCard struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type skillsKitReprompt struct {
	OutputSpeech skillsKitSpeech `json:"outputSpeech"`
}

// SkillsKitAdapter handles the skills-kit request format.
type SkillsKitAdapter struct{}

func NewSkillsKitAdapter() *SkillsKitAdapter {
	return &SkillsKitAdapter{}
}

func (a *SkillsKitAdapter) Platform() session.Platform {
	return session.PlatformSkillsKit
}

func (a *SkillsKitAdapter) Capabilities() []string {
	return []string{"voice_output", "cards"}
}

// ToUtterance implements Adapter. The protocol encodes intents rather
// than free text, so IntentRequest is rendered into a deterministic
// natural-language-equivalent string; LaunchRequest synthesizes a
// greeting rather than being treated as empty input.
func (a *SkillsKitAdapter) ToUtterance(body []byte) (*assistant.Utterance, error) {
	var req skillsKitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrCodeAdapterParse, "malformed skills-kit payload", err)
	}
	if req.Session.SessionID == "" {
		return nil, gwerrors.New(gwerrors.ErrCodeAdapterParse, "skills-kit payload missing session id")
	}

	language := normalizeLanguage(req.Request.Locale)

	var text string
	switch req.Request.Type {
	case "LaunchRequest":
		text = greetingText(language)
	case "IntentRequest":
		text = a.synthesizeIntentText(req, language)
	case "SessionEndedRequest":
		return nil, ErrSessionEnded
	default:
		return nil, gwerrors.Newf(gwerrors.ErrCodeAdapterParse, "unknown skills-kit request type %q", req.Request.Type)
	}

	return &assistant.Utterance{
		Platform:     a.Platform(),
		CallerKey:    req.Session.SessionID,
		UserID:       req.Session.User.UserID,
		RawText:      text,
		Language:     language,
		RawEntities:  slotEntities(req.Request.Intent.Slots),
		Capabilities: a.Capabilities(),
	}, nil
}

func (a *SkillsKitAdapter) synthesizeIntentText(req skillsKitRequest, language string) string {
	slots := req.Request.Intent.Slots
	switch req.Request.Intent.Name {
	case "CreateTikTokIntent":
		topic := slots["Topic"].Value
		if topic == "" {
			topic = pickDefaultTopic(language)
		}
		if language == "en" {
			return "create content about " + topic
		}
		return "tạo nội dung về " + topic

	case "CheckShopeeIntent":
		product := slots["Product"].Value
		if language == "en" {
			return strings.TrimSpace("check price of " + product)
		}
		return strings.TrimSpace("kiểm tra giá " + product)

	case "GetAnalyticsIntent":
		if language == "en" {
			return "show me my analytics"
		}
		return "xem thống kê"

	case "VoiceStatusIntent":
		if language == "en" {
			return "voice status"
		}
		return "trạng thái giọng nói"

	default:
		// Unknown intent: humanized name plus slot values in stable order.
		phrase := humanizeIntentName(req.Request.Intent.Name)
		keys := make([]string, 0, len(slots))
		for key := range slots {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if v := slots[key].Value; v != "" {
				phrase += " " + v
			}
		}
		return phrase
	}
}

func pickDefaultTopic(language string) string {
	if language == "en" {
		return "current trends"
	}
	return "xu hướng hiện tại"
}

// ToReply implements Adapter. shouldEndSession stays false so the
// conversation continues; the platform closes sessions on its side.
func (a *SkillsKitAdapter) ToReply(result *assistant.TurnResult) any {
	text := result.Text
	if text == "" {
		text = apologyText(result.Language)
	}

	response := skillsKitResponse{
		OutputSpeech:     skillsKitSpeech{Type: "PlainText", Text: text},
		ShouldEndSession: false,
	}
	if len(result.SideEffects) > 0 {
		response.Card = &skillsKitCard{
			Type:    "Simple",
			Title:   "Thạch AI Assistant",
			Content: text,
		}
	}
	if len(result.SuggestedFollowUps) > 0 {
		response.Reprompt = &skillsKitReprompt{
			OutputSpeech: skillsKitSpeech{Type: "PlainText", Text: result.SuggestedFollowUps[0]},
		}
	}

	return skillsKitReply{Version: "1.0", Response: response}
}

// FallbackReply implements Adapter.
func (a *SkillsKitAdapter) FallbackReply(language string) any {
	return skillsKitReply{
		Version: "1.0",
		Response: skillsKitResponse{
			OutputSpeech:     skillsKitSpeech{Type: "PlainText", Text: apologyText(language)},
			ShouldEndSession: false,
		},
	}
}

// Goodbye is the SessionEndedRequest acknowledgement.
func (a *SkillsKitAdapter) Goodbye(language string) any {
	text := "Tạm biệt! Hẹn gặp lại bạn."
	if language == "en" {
		text = "Goodbye! See you soon."
	}
	return skillsKitReply{
		Version: "1.0",
		Response: skillsKitResponse{
			OutputSpeech:     skillsKitSpeech{Type: "PlainText", Text: text},
			ShouldEndSession: true,
		},
	}
}

func slotEntities(slots map[string]skillsKitSlot) map[string]string {
	if len(slots) == 0 {
		return nil
	}
	out := make(map[string]string, len(slots))
	for name, slot := range slots {
		if slot.Value != "" {
			out[strings.ToLower(name)] = slot.Value
		}
	}
	return out
}
