package assistant

import (
	"math/rand"
	"sync"
	"time"

	"github.com/thachpham/thachai/server/nlu"
)

// clarifiers are appended to low-confidence replies. The pick is random
// so repeated identical low-confidence inputs get varying follow-ups;
// the variation is the contract, not any particular string.
var clarifiers = map[string][]string{
	"vi": {
		"Bạn có thể nói rõ hơn được không?",
		"Ý bạn là tạo nội dung, kiểm tra giá, hay xem thống kê?",
		"Bạn cần tôi giúp gì cụ thể hơn?",
	},
	"en": {
		"Could you be more specific?",
		"Do you want to create content, check prices, or see analytics?",
		"What exactly can I help you with?",
	},
}

// greetingSuggestions are offered after a greeting so callers on
// button-capable platforms have somewhere to go.
var greetingSuggestions = map[string][]string{
	"vi": {"Tạo video TikTok", "Kiểm tra giá Shopee", "Xem thống kê"},
	"en": {"Create a TikTok video", "Check Shopee prices", "Show analytics"},
}

// Synthesizer turns a handler result into a protocol-agnostic TurnResult.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthesizer creates a synthesizer with a time-seeded source.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Synthesize builds the TurnResult from the handler outcome and the
// classification. Side effects pass through unchanged. A confidence
// below the low-water mark appends one clarifying follow-up; low
// confidence is a policy signal, never an error.
func (s *Synthesizer) Synthesize(hr *HandlerResult, cls nlu.Result, language string) *TurnResult {
	result := &TurnResult{
		Text:        hr.Message,
		Intent:      cls.Intent,
		Confidence:  cls.Confidence,
		SideEffects: hr.SideEffects,
		ActionData:  hr.ActionData,
		Success:     hr.Success,
		Language:    language,
	}

	if cls.Intent == nlu.IntentGreeting && hr.Success {
		result.SuggestedFollowUps = append(result.SuggestedFollowUps, pick(greetingSuggestions, language)...)
	}

	if cls.IsLowConfidence() {
		options := pick(clarifiers, language)
		s.mu.Lock()
		choice := options[s.rng.Intn(len(options))]
		s.mu.Unlock()
		result.SuggestedFollowUps = append(result.SuggestedFollowUps, choice)
	}

	return result
}

func pick(m map[string][]string, language string) []string {
	if options, ok := m[language]; ok {
		return options
	}
	return m["vi"]
}
