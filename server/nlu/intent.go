// Package nlu classifies free-text utterances into a bounded set of
// intents with extracted entities. Classification is ordered pattern
// matching: case-insensitive substring containment tested in table
// order, first match wins. There is no statistical model by design;
// the fallback intent keeps the pipeline total.
package nlu

// Intent is one of a closed enumeration of things a caller can ask for.
type Intent string

const (
	IntentContentCreation Intent = "content_creation"
	IntentPriceInquiry    Intent = "price_inquiry"
	IntentAnalyticsQuery  Intent = "analytics_query"
	IntentVoiceStatus     Intent = "voice_status"
	IntentGreeting        Intent = "greeting"
	IntentLanguageSwitch  Intent = "language_switch"
	IntentThemeToggle     Intent = "theme_toggle"
	IntentSearch          Intent = "search"
	IntentNote            Intent = "note"
	IntentReminder        Intent = "reminder"
	// IntentGeneralChat is the universal fallback.
	IntentGeneralChat Intent = "general_chat"
	// IntentError tags turns that failed past the handler boundary.
	IntentError Intent = "error"
)

// AllIntents returns every routable intent. The dispatch table must be
// total over this list.
func AllIntents() []Intent {
	return []Intent{
		IntentContentCreation,
		IntentPriceInquiry,
		IntentAnalyticsQuery,
		IntentVoiceStatus,
		IntentGreeting,
		IntentLanguageSwitch,
		IntentThemeToggle,
		IntentSearch,
		IntentNote,
		IntentReminder,
		IntentGeneralChat,
		IntentError,
	}
}
