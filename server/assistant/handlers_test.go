package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thachpham/thachai/server/nlu"
	"github.com/thachpham/thachai/server/session"
)

func handlerRequest(language string, entities map[string]string) *Request {
	if entities == nil {
		entities = map[string]string{}
	}
	return &Request{
		Utterance: utterance("caller", "nhắc tôi họp"),
		Entities:  entities,
		Language:  language,
		Session: &session.Session{
			Language: language,
			Context:  map[string]any{},
		},
	}
}

func TestHandleContentCreation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/tiktok/generate-content", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "nấu ăn", payload["topic"])

		_ = json.NewEncoder(w).Encode(ContentResult{
			Script:         "mở đầu, nội dung, kết thúc",
			ViralScore:     87,
			EstimatedViews: "50K-100K",
		})
	}))
	defer srv.Close()

	registry := NewRegistry(NewCapabilityClient(srv.URL, 2*time.Second))
	req := handlerRequest("vi", map[string]string{nlu.EntityTopic: "nấu ăn"})

	hr, err := registry.handleContentCreation(context.Background(), req)
	require.NoError(t, err)
	require.True(t, hr.Success)
	require.Contains(t, hr.Message, "nấu ăn")
	require.Contains(t, hr.Message, "87")
	require.Equal(t, []string{EffectContentCreated}, hr.SideEffects)
	require.Equal(t, "nấu ăn", req.Session.Context["last_topic"])
}

func TestHandleContentCreationUpstreamDown(t *testing.T) {
	registry := NewRegistry(NewCapabilityClient("http://127.0.0.1:1", 200*time.Millisecond))
	req := handlerRequest("en", nil)

	hr, err := registry.handleContentCreation(context.Background(), req)
	require.NoError(t, err)
	require.False(t, hr.Success)
	require.Contains(t, hr.Message, "unavailable")
	require.Empty(t, hr.SideEffects)
}

func TestHandlePriceInquiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/shopee/monitored-products", r.URL.Path)
		_ = json.NewEncoder(w).Encode(ProductsResult{
			Products:     []MonitoredProduct{{Name: "Tai nghe", Price: 250000}},
			ActiveAlerts: 2,
		})
	}))
	defer srv.Close()

	registry := NewRegistry(NewCapabilityClient(srv.URL, 2*time.Second))
	hr, err := registry.handlePriceInquiry(context.Background(), handlerRequest("vi", nil))
	require.NoError(t, err)
	require.True(t, hr.Success)
	require.Contains(t, hr.Message, "Tai nghe")
	require.Equal(t, []string{EffectProductFound}, hr.SideEffects)
	require.Equal(t, 1, hr.ActionData["product_count"])
}

func TestHandleLanguageSwitchToggle(t *testing.T) {
	registry := NewRegistry(nil)
	req := handlerRequest("vi", nil)

	hr, err := registry.handleLanguageSwitch(context.Background(), req)
	require.NoError(t, err)
	require.True(t, hr.Success)
	require.Equal(t, "en", req.Session.Language)
	// Confirmation speaks the language just switched to.
	require.Equal(t, "Switched to English.", hr.Message)

	hr, err = registry.handleLanguageSwitch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "vi", req.Session.Language)
	require.Equal(t, "Đã chuyển sang tiếng Việt.", hr.Message)
}

func TestHandleLanguageSwitchExplicitTarget(t *testing.T) {
	registry := NewRegistry(nil)
	req := handlerRequest("en", map[string]string{nlu.EntityLanguage: "en"})

	hr, err := registry.handleLanguageSwitch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "en", req.Session.Language)
	require.Equal(t, []string{EffectLanguageSwitched}, hr.SideEffects)
}

func TestHandleThemeToggle(t *testing.T) {
	registry := NewRegistry(nil)
	req := handlerRequest("vi", nil)

	hr, err := registry.handleThemeToggle(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "dark", req.Session.Context["theme"])
	require.Contains(t, hr.Message, "tối")

	hr, err = registry.handleThemeToggle(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "light", req.Session.Context["theme"])
	require.Contains(t, hr.Message, "sáng")
}

func TestHandleNoteAccumulates(t *testing.T) {
	registry := NewRegistry(nil)
	req := handlerRequest("vi", nil)

	for i := 1; i <= 3; i++ {
		hr, err := registry.handleNote(context.Background(), req)
		require.NoError(t, err)
		require.True(t, hr.Success)
		require.Equal(t, i, hr.ActionData["note_count"])
	}
	notes, ok := req.Session.Context["notes"].([]string)
	require.True(t, ok)
	require.Len(t, notes, 3)
}

func TestHandleNoteSurvivesContextRoundTrip(t *testing.T) {
	registry := NewRegistry(nil)
	req := handlerRequest("vi", nil)

	hr, err := registry.handleNote(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, hr.ActionData["note_count"])

	// Stores that serialize context as JSON hand slice values back as
	// []any; the accumulated notes must survive that round-trip.
	raw, err := json.Marshal(req.Session)
	require.NoError(t, err)
	var restored session.Session
	require.NoError(t, json.Unmarshal(raw, &restored))
	req.Session = &restored

	hr, err = registry.handleNote(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, hr.ActionData["note_count"])

	hr, err = registry.handleReminder(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, hr.ActionData["reminder_count"])

	raw, err = json.Marshal(req.Session)
	require.NoError(t, err)
	var again session.Session
	require.NoError(t, json.Unmarshal(raw, &again))
	req.Session = &again

	hr, err = registry.handleReminder(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 2, hr.ActionData["reminder_count"])
}

func TestHandleReminderWithTimeOfDay(t *testing.T) {
	registry := NewRegistry(nil)
	req := handlerRequest("vi", map[string]string{nlu.EntityTimeOfDay: "sáng"})

	hr, err := registry.handleReminder(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, hr.Message, "buổi sáng")
	require.Equal(t, []string{EffectReminderSet}, hr.SideEffects)
}

func TestTableIsTotal(t *testing.T) {
	table := NewRegistry(nil).Table()
	for _, intent := range nlu.AllIntents() {
		require.NotNil(t, table[intent], "missing handler for %s", intent)
	}
}
