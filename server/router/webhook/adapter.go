// Package webhook translates each supported platform's wire format to
// and from the canonical conversational model, and exposes the HTTP
// endpoints the platforms call.
package webhook

import (
	"regexp"
	"strings"

	"github.com/thachpham/thachai/server/assistant"
	"github.com/thachpham/thachai/server/session"
)

// Adapter translates one platform's wire shape. ToUtterance and ToReply
// are pure; adapters hold no per-conversation state.
type Adapter interface {
	Platform() session.Platform

	// Capabilities is the static feature-flag set granted to sessions
	// created from this platform.
	Capabilities() []string

	// ToUtterance parses a raw request body into a canonical utterance.
	ToUtterance(body []byte) (*assistant.Utterance, error)

	// ToReply renders a turn result into the platform's reply shape.
	// It must produce a protocol-valid payload even for an empty text.
	ToReply(result *assistant.TurnResult) any

	// FallbackReply is the protocol-valid apology used when the request
	// could not be parsed at all.
	FallbackReply(language string) any
}

// normalizeLanguage reduces a locale hint ("vi-VN", "en-US") to a
// supported language code, defaulting to vi.
func normalizeLanguage(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if len(hint) >= 2 {
		switch hint[:2] {
		case "en":
			return "en"
		case "vi":
			return "vi"
		}
	}
	return "vi"
}

var localeHintRe = regexp.MustCompile(`"(?:locale|languageCode|language)"\s*:\s*"([A-Za-z-]{2,})"`)

// sniffLanguage pulls a locale hint out of a payload that failed to
// parse, so the fallback apology is still localized when the hint is
// readable. Unrecognized hints fall back to the configured default.
func sniffLanguage(body []byte, fallback string) string {
	if m := localeHintRe.FindSubmatch(body); m != nil {
		hint := strings.ToLower(string(m[1]))
		switch hint[:2] {
		case "en":
			return "en"
		case "vi":
			return "vi"
		}
	}
	return normalizeLanguage(fallback)
}

// greetingText is the synthesized utterance for launch/session-start
// events that carry no user text. It must classify as a greeting.
func greetingText(language string) string {
	if language == "en" {
		return "get started"
	}
	return "bắt đầu"
}

// apologyText is the localized parse-failure reply body.
func apologyText(language string) string {
	if language == "en" {
		return "Sorry, I could not understand that request. Please try again."
	}
	return "Xin lỗi, tôi không hiểu yêu cầu này. Vui lòng thử lại."
}
