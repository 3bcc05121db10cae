package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/thachpham/thachai/server/nlu"
)

// Session context keys written by the built-in handlers.
const (
	ctxKeyTheme      = "theme"
	ctxKeyLastSearch = "last_search"
	ctxKeyNotes      = "notes"
	ctxKeyReminders  = "reminders"
)

// msg picks the localized variant for the session language.
func msg(language, vi, en string) string {
	if language == "en" {
		return en
	}
	return vi
}

// stringSlice reads a string-slice value out of session context. Stores
// that round-trip context through JSON hand slice values back as []any,
// so both shapes must be accepted.
func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Registry holds the built-in feature handlers plus the clients for the
// external capabilities. It produces the dispatch table.
type Registry struct {
	caps *CapabilityClient
}

// NewRegistry creates a handler registry backed by the given capability client.
func NewRegistry(caps *CapabilityClient) *Registry {
	return &Registry{caps: caps}
}

// Table returns the intent-to-handler dispatch table. It is total over
// nlu.AllIntents; NewDispatcher verifies that.
func (r *Registry) Table() map[nlu.Intent]HandlerFunc {
	return map[nlu.Intent]HandlerFunc{
		nlu.IntentContentCreation: r.handleContentCreation,
		nlu.IntentPriceInquiry:    r.handlePriceInquiry,
		nlu.IntentAnalyticsQuery:  r.handleAnalyticsQuery,
		nlu.IntentVoiceStatus:     r.handleVoiceStatus,
		nlu.IntentGreeting:        r.handleGreeting,
		nlu.IntentLanguageSwitch:  r.handleLanguageSwitch,
		nlu.IntentThemeToggle:     r.handleThemeToggle,
		nlu.IntentSearch:          r.handleSearch,
		nlu.IntentNote:            r.handleNote,
		nlu.IntentReminder:        r.handleReminder,
		nlu.IntentGeneralChat:     r.handleGeneralChat,
		nlu.IntentError:           r.handleError,
	}
}

func (r *Registry) handleContentCreation(ctx context.Context, req *Request) (*HandlerResult, error) {
	topic := req.Entities[nlu.EntityTopic]
	if topic == "" {
		topic = msg(req.Language, "xu hướng hiện tại", "current trends")
	}

	content, err := r.caps.GenerateContent(ctx, topic, "viral")
	if err != nil {
		return &HandlerResult{
			Success: false,
			Message: msg(req.Language,
				"Không thể tạo nội dung lúc này. Vui lòng thử lại sau.",
				"Content creation is unavailable right now. Please try again later."),
		}, nil
	}

	req.Session.Context["last_topic"] = topic
	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			fmt.Sprintf("Đã tạo xong kịch bản cho chủ đề '%s'. Điểm viral: %d/100, dự kiến %s lượt xem.",
				topic, content.ViralScore, content.EstimatedViews),
			fmt.Sprintf("Created a script for '%s'. Viral score: %d/100, estimated %s views.",
				topic, content.ViralScore, content.EstimatedViews)),
		SideEffects: []string{EffectContentCreated},
		ActionData: map[string]any{
			"topic":       topic,
			"script":      content.Script,
			"viral_score": content.ViralScore,
		},
	}, nil
}

func (r *Registry) handlePriceInquiry(ctx context.Context, req *Request) (*HandlerResult, error) {
	summary, err := r.caps.MonitoredProducts(ctx)
	if err != nil {
		return &HandlerResult{
			Success: false,
			Message: msg(req.Language,
				"Dịch vụ theo dõi giá tạm thời không khả dụng.",
				"The price monitor is temporarily unavailable."),
		}, nil
	}

	if len(summary.Products) == 0 {
		return &HandlerResult{
			Success: true,
			Message: msg(req.Language,
				"Chưa có sản phẩm nào được theo dõi. Bạn có thể thêm sản phẩm trong ứng dụng.",
				"No products are being tracked yet. You can add one in the app."),
		}, nil
	}

	latest := summary.Products[0]
	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			fmt.Sprintf("Đang theo dõi %d sản phẩm. Mới nhất: %s giá %.0fđ. Có %d cảnh báo giá đang hoạt động.",
				len(summary.Products), latest.Name, latest.Price, summary.ActiveAlerts),
			fmt.Sprintf("Tracking %d products. Latest: %s at %.0f VND. %d price alerts active.",
				len(summary.Products), latest.Name, latest.Price, summary.ActiveAlerts)),
		SideEffects: []string{EffectProductFound},
		ActionData: map[string]any{
			"product_count": len(summary.Products),
			"active_alerts": summary.ActiveAlerts,
		},
	}, nil
}

func (r *Registry) handleAnalyticsQuery(ctx context.Context, req *Request) (*HandlerResult, error) {
	data, err := r.caps.LatestData(ctx)
	if err != nil {
		return &HandlerResult{
			Success: false,
			Message: msg(req.Language,
				"Không thể truy cập dữ liệu phân tích lúc này.",
				"Analytics data is unavailable right now."),
		}, nil
	}

	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			fmt.Sprintf("Dữ liệu mới nhất: %d tin tức, %d mã cổ phiếu, %d bài đăng mạng xã hội.",
				len(data.News), len(data.Stocks), len(data.Social)),
			fmt.Sprintf("Latest data: %d news items, %d stocks, %d social posts.",
				len(data.News), len(data.Stocks), len(data.Social))),
		SideEffects: []string{EffectAnalyticsRetrieved},
		ActionData: map[string]any{
			"news_count":  len(data.News),
			"stock_count": len(data.Stocks),
			"weather":     data.Weather,
		},
	}, nil
}

func (r *Registry) handleVoiceStatus(ctx context.Context, req *Request) (*HandlerResult, error) {
	result, err := r.caps.VoiceCommand(ctx, req.Utterance.RawText, req.Language)
	if err != nil {
		return &HandlerResult{
			Success: false,
			Message: msg(req.Language,
				"Dịch vụ xử lý giọng nói tạm thời không khả dụng.",
				"Voice processing is temporarily unavailable."),
		}, nil
	}

	message := result.Response
	if message == "" {
		message = msg(req.Language,
			"Hệ thống giọng nói đang hoạt động bình thường.",
			"The voice system is up and running.")
	}
	return &HandlerResult{
		Success:     true,
		Message:     message,
		SideEffects: []string{EffectVoiceStatus},
		ActionData:  map[string]any{"voice_intent": result.Intent},
	}, nil
}

func (r *Registry) handleGreeting(_ context.Context, req *Request) (*HandlerResult, error) {
	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			"Chào mừng đến với Thạch AI! Tôi có thể giúp bạn tạo nội dung TikTok viral, theo dõi giá Shopee, xem thống kê, và nhiều việc khác. Bạn cần giúp gì?",
			"Welcome to Thach AI! I can help you create viral TikTok content, track Shopee prices, check analytics, and more. What do you need?"),
	}, nil
}

func (r *Registry) handleLanguageSwitch(_ context.Context, req *Request) (*HandlerResult, error) {
	target := req.Entities[nlu.EntityLanguage]
	if target == "" {
		// No explicit target: toggle between the two supported languages.
		if req.Session.Language == "vi" {
			target = "en"
		} else {
			target = "vi"
		}
	}

	req.Session.Language = target
	return &HandlerResult{
		Success: true,
		// Confirm in the language just switched to.
		Message: msg(target,
			"Đã chuyển sang tiếng Việt.",
			"Switched to English."),
		SideEffects: []string{EffectLanguageSwitched},
		ActionData:  map[string]any{"language": target},
	}, nil
}

func (r *Registry) handleThemeToggle(_ context.Context, req *Request) (*HandlerResult, error) {
	theme := "dark"
	if current, _ := req.Session.Context[ctxKeyTheme].(string); current == "dark" {
		theme = "light"
	}
	req.Session.Context[ctxKeyTheme] = theme

	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			fmt.Sprintf("Đã chuyển sang giao diện %s.", themeNameVI(theme)),
			fmt.Sprintf("Switched to %s mode.", theme)),
		SideEffects: []string{EffectThemeToggled},
		ActionData:  map[string]any{"theme": theme},
	}, nil
}

func themeNameVI(theme string) string {
	if theme == "dark" {
		return "tối"
	}
	return "sáng"
}

func (r *Registry) handleSearch(_ context.Context, req *Request) (*HandlerResult, error) {
	query := req.Entities[nlu.EntityTopic]
	if query == "" {
		query = strings.TrimSpace(req.Utterance.RawText)
	}
	req.Session.Context[ctxKeyLastSearch] = query

	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			fmt.Sprintf("Đang tìm kiếm '%s'. Kết quả chi tiết sẽ hiển thị trong ứng dụng.", query),
			fmt.Sprintf("Searching for '%s'. Detailed results will show in the app.", query)),
		SideEffects: []string{EffectSearchPerformed},
		ActionData:  map[string]any{"query": query},
	}, nil
}

func (r *Registry) handleNote(_ context.Context, req *Request) (*HandlerResult, error) {
	text := strings.TrimSpace(req.Utterance.RawText)
	notes := stringSlice(req.Session.Context[ctxKeyNotes])
	req.Session.Context[ctxKeyNotes] = append(notes, text)

	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			"Đã lưu ghi chú của bạn.",
			"Your note has been saved."),
		SideEffects: []string{EffectNoteSaved},
		ActionData:  map[string]any{"note_count": len(notes) + 1},
	}, nil
}

func (r *Registry) handleReminder(_ context.Context, req *Request) (*HandlerResult, error) {
	text := strings.TrimSpace(req.Utterance.RawText)
	reminders := stringSlice(req.Session.Context[ctxKeyReminders])
	req.Session.Context[ctxKeyReminders] = append(reminders, text)

	when := req.Entities[nlu.EntityTimeOfDay]
	var message string
	if when != "" {
		message = msg(req.Language,
			fmt.Sprintf("Đã đặt nhắc nhở vào buổi %s.", when),
			fmt.Sprintf("Reminder set for the %s.", when))
	} else {
		message = msg(req.Language,
			"Đã đặt nhắc nhở cho bạn.",
			"Your reminder has been set.")
	}

	return &HandlerResult{
		Success:     true,
		Message:     message,
		SideEffects: []string{EffectReminderSet},
		ActionData:  map[string]any{"reminder_count": len(reminders) + 1},
	}, nil
}

func (r *Registry) handleGeneralChat(_ context.Context, req *Request) (*HandlerResult, error) {
	return &HandlerResult{
		Success: true,
		Message: msg(req.Language,
			"Tôi là Thạch AI, trợ lý thông minh của bạn. Tôi có thể giúp tạo nội dung TikTok, theo dõi giá Shopee, xem thống kê và nhiều việc khác.",
			"I'm Thach AI, your smart assistant. I can help with TikTok content, Shopee price tracking, analytics, and more."),
	}, nil
}

func (r *Registry) handleError(_ context.Context, req *Request) (*HandlerResult, error) {
	return &HandlerResult{
		Success: false,
		Message: msg(req.Language,
			"Xin lỗi, có lỗi xảy ra. Vui lòng thử lại.",
			"Sorry, something went wrong. Please try again."),
	}, nil
}
