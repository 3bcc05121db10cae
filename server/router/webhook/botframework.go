package webhook

import (
	"encoding/json"

	"github.com/thachpham/thachai/server/assistant"
	gwerrors "github.com/thachpham/thachai/server/internal/errors"
	"github.com/thachpham/thachai/server/session"
)

// botFrameworkActivity is the bot-framework message activity shape.
type botFrameworkActivity struct {
	Type         string `json:"type"`
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
	From struct {
		ID string `json:"id"`
	} `json:"from"`
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

// botFrameworkReply is the outgoing message activity.
type botFrameworkReply struct {
	Type             string               `json:"type"`
	Text             string               `json:"text"`
	SuggestedActions *botFrameworkActions `json:"suggestedActions,omitempty"`
}

type botFrameworkActions struct {
	Actions []botFrameworkAction `json:"actions"`
}

type botFrameworkAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// BotFrameworkAdapter handles the bot-framework activity format.
type BotFrameworkAdapter struct{}

func NewBotFrameworkAdapter() *BotFrameworkAdapter {
	return &BotFrameworkAdapter{}
}

func (a *BotFrameworkAdapter) Platform() session.Platform {
	return session.PlatformBotFramework
}

func (a *BotFrameworkAdapter) Capabilities() []string {
	return []string{"text_processing", "suggested_actions"}
}

// ToUtterance implements Adapter. A conversationUpdate (or any activity
// without text) starts the conversation with a synthesized greeting.
func (a *BotFrameworkAdapter) ToUtterance(body []byte) (*assistant.Utterance, error) {
	var activity botFrameworkActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrCodeAdapterParse, "malformed bot-framework activity", err)
	}
	if activity.Conversation.ID == "" {
		return nil, gwerrors.New(gwerrors.ErrCodeAdapterParse, "bot-framework activity missing conversation id")
	}

	language := normalizeLanguage(activity.Locale)
	text := activity.Text
	if text == "" {
		text = greetingText(language)
	}

	return &assistant.Utterance{
		Platform:     a.Platform(),
		CallerKey:    activity.Conversation.ID,
		UserID:       activity.From.ID,
		RawText:      text,
		Language:     language,
		Capabilities: a.Capabilities(),
	}, nil
}

// ToReply implements Adapter. Suggested follow-ups become quick-reply
// actions; the platform renders them as buttons.
func (a *BotFrameworkAdapter) ToReply(result *assistant.TurnResult) any {
	text := result.Text
	if text == "" {
		text = apologyText(result.Language)
	}

	reply := botFrameworkReply{Type: "message", Text: text}
	if len(result.SuggestedFollowUps) > 0 {
		actions := make([]botFrameworkAction, 0, len(result.SuggestedFollowUps))
		for _, followUp := range result.SuggestedFollowUps {
			actions = append(actions, botFrameworkAction{
				Type:  "imBack",
				Title: followUp,
				Value: followUp,
			})
		}
		reply.SuggestedActions = &botFrameworkActions{Actions: actions}
	}
	return reply
}

// FallbackReply implements Adapter.
func (a *BotFrameworkAdapter) FallbackReply(language string) any {
	return botFrameworkReply{Type: "message", Text: apologyText(language)}
}
