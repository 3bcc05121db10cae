package nlu

import (
	"regexp"
	"strings"
)

// Entity keys contributed by the slot extractors.
const (
	EntityTopic     = "topic"
	EntityProduct   = "product"
	EntityPlatform  = "platform"
	EntityTimeOfDay = "time_of_day"
	EntityLanguage  = "language"
)

// extractor pulls one named slot out of raw text. Extraction never
// fails; a non-matching extractor simply contributes nothing.
type extractor struct {
	key string
	re  *regexp.Regexp
	// normalize optionally maps the raw capture to a canonical value.
	normalize func(string) string
}

func (e extractor) extract(text string) string {
	m := e.re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	value := strings.TrimSpace(m[len(m)-1])
	value = strings.TrimRight(value, ".,!?")
	if e.normalize != nil {
		value = e.normalize(value)
	}
	return value
}

// platformNames is shared by both languages; platform names are not translated.
var platformNames = `(?i)(tiktok|youtube|facebook|shopee|tiki|lazada|zalo|telegram)`

func vietnameseExtractors() []extractor {
	return []extractor{
		{key: EntityTopic, re: regexp.MustCompile(`(?i)(?:về|chủ đề)\s+(.+)$`)},
		{key: EntityProduct, re: regexp.MustCompile(`(?i)giá\s+(?:của\s+)?(.+)$`)},
		{key: EntityPlatform, re: regexp.MustCompile(platformNames), normalize: strings.ToLower},
		{key: EntityTimeOfDay, re: regexp.MustCompile(`(?i)(?:^|\s)(sáng|trưa|chiều|tối)(?:\s|$|[.,!?])`)},
		{key: EntityLanguage, re: regexp.MustCompile(`(?i)(tiếng anh|tiếng việt)`), normalize: languageCode},
	}
}

func englishExtractors() []extractor {
	return []extractor{
		{key: EntityTopic, re: regexp.MustCompile(`(?i)about\s+(.+)$`)},
		{key: EntityProduct, re: regexp.MustCompile(`(?i)price (?:of|for)\s+(.+)$`)},
		{key: EntityPlatform, re: regexp.MustCompile(platformNames), normalize: strings.ToLower},
		{key: EntityTimeOfDay, re: regexp.MustCompile(`(?i)\b(morning|noon|afternoon|evening|night)\b`)},
		{key: EntityLanguage, re: regexp.MustCompile(`(?i)(english|vietnamese)`), normalize: languageCode},
	}
}

// languageCode maps a spoken language name to its session language code.
func languageCode(raw string) string {
	switch strings.ToLower(raw) {
	case "tiếng anh", "english":
		return "en"
	case "tiếng việt", "vietnamese":
		return "vi"
	}
	return raw
}
