package nlu

import (
	"strings"
)

const (
	// MatchConfidence is assigned when a pattern matches.
	MatchConfidence = 0.9
	// FallbackConfidence is assigned to the general-chat fallback.
	FallbackConfidence = 0.6
	// LowConfidenceMark is the policy threshold below which the response
	// synthesizer adds a clarifying follow-up. Low confidence is not an
	// error, it is a signal.
	LowConfidenceMark = 0.7
)

// Result is the outcome of classifying one utterance.
type Result struct {
	Intent     Intent
	Entities   map[string]string
	Confidence float64
}

// IsLowConfidence reports whether the result should trigger clarification.
func (r Result) IsLowConfidence() bool {
	return r.Confidence < LowConfidenceMark
}

// pattern maps a trigger phrase to an intent. Tables are ordered;
// earlier-registered patterns take priority, so more specific phrases
// must be registered ahead of generic ones. A shorter trigger that is a
// substring of a longer, differently-intended phrase can mis-classify;
// that tie-break is documented behavior, not an artifact.
type pattern struct {
	trigger string
	intent  Intent
}

// Classifier maps raw text plus language to an intent and entities.
type Classifier struct {
	patterns   map[string][]pattern
	extractors map[string][]extractor
}

// NewClassifier builds the classifier with the built-in vi/en tables.
func NewClassifier() *Classifier {
	return &Classifier{
		patterns: map[string][]pattern{
			"vi": vietnamesePatterns(),
			"en": englishPatterns(),
		},
		extractors: map[string][]extractor{
			"vi": vietnameseExtractors(),
			"en": englishExtractors(),
		},
	}
}

// Classify maps text to an intent with extracted entities. Entity
// extraction runs independently of the intent match and never fails; it
// only contributes zero or more key/value pairs.
func (c *Classifier) Classify(text, language string) Result {
	table, ok := c.patterns[language]
	if !ok {
		table = c.patterns["vi"]
	}

	result := Result{
		Intent:     IntentGeneralChat,
		Confidence: FallbackConfidence,
		Entities:   c.extract(text, language),
	}

	lowered := strings.ToLower(text)
	for _, p := range table {
		if strings.Contains(lowered, p.trigger) {
			result.Intent = p.intent
			result.Confidence = MatchConfidence
			break
		}
	}
	return result
}

func (c *Classifier) extract(text, language string) map[string]string {
	extractors, ok := c.extractors[language]
	if !ok {
		extractors = c.extractors["vi"]
	}

	entities := make(map[string]string)
	for _, ex := range extractors {
		if value := ex.extract(text); value != "" {
			entities[ex.key] = value
		}
	}
	return entities
}
