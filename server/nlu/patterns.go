package nlu

// The tables below are ordered: first match wins. Triggers are stored
// lowercase because matching lowers the input once.

func vietnamesePatterns() []pattern {
	return []pattern{
		// Specific multi-word phrases first.
		{"tạo nội dung", IntentContentCreation},
		{"tạo video", IntentContentCreation},
		{"viết kịch bản", IntentContentCreation},
		{"làm video", IntentContentCreation},
		{"kiểm tra giá", IntentPriceInquiry},
		{"theo dõi giá", IntentPriceInquiry},
		{"phân tích dữ liệu", IntentAnalyticsQuery},
		{"trạng thái giọng nói", IntentVoiceStatus},
		{"chuyển sang tiếng", IntentLanguageSwitch},
		{"đổi ngôn ngữ", IntentLanguageSwitch},
		{"chế độ tối", IntentThemeToggle},
		{"chế độ sáng", IntentThemeToggle},
		{"đổi giao diện", IntentThemeToggle},
		{"chào buổi", IntentGreeting},
		{"bắt đầu", IntentGreeting},
		{"tìm kiếm", IntentSearch},
		{"tra cứu", IntentSearch},
		{"ghi chú", IntentNote},
		{"nhắc nhở", IntentReminder},
		{"nhắc tôi", IntentReminder},
		{"đặt lịch", IntentReminder},
		// Generic single-word triggers last.
		{"phân tích", IntentAnalyticsQuery},
		{"thống kê", IntentAnalyticsQuery},
		{"giọng nói", IntentVoiceStatus},
		{"tiếng anh", IntentLanguageSwitch},
		{"giá", IntentPriceInquiry},
	}
}

func englishPatterns() []pattern {
	return []pattern{
		{"create content", IntentContentCreation},
		{"create a video", IntentContentCreation},
		{"make a video", IntentContentCreation},
		{"write a script", IntentContentCreation},
		{"check price", IntentPriceInquiry},
		{"check the price", IntentPriceInquiry},
		{"track price", IntentPriceInquiry},
		{"price of", IntentPriceInquiry},
		{"voice status", IntentVoiceStatus},
		{"switch language", IntentLanguageSwitch},
		{"switch to vietnamese", IntentLanguageSwitch},
		{"switch to english", IntentLanguageSwitch},
		{"dark mode", IntentThemeToggle},
		{"light mode", IntentThemeToggle},
		{"toggle theme", IntentThemeToggle},
		{"get started", IntentGreeting},
		{"good morning", IntentGreeting},
		{"remind me", IntentReminder},
		{"set a reminder", IntentReminder},
		{"take a note", IntentNote},
		{"analytics", IntentAnalyticsQuery},
		{"statistics", IntentAnalyticsQuery},
		{"analyze", IntentAnalyticsQuery},
		{"microphone", IntentVoiceStatus},
		{"search", IntentSearch},
		{"look up", IntentSearch},
		{"find", IntentSearch},
		{"note", IntentNote},
		{"reminder", IntentReminder},
		{"price", IntentPriceInquiry},
	}
}
