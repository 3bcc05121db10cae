package observability

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldSessionID is the field name for session ID.
	LogFieldSessionID = "session_id"
	// LogFieldPlatform is the field name for caller platform.
	LogFieldPlatform = "platform"
	// LogFieldIntent is the field name for classified intent.
	LogFieldIntent = "intent"
	// LogFieldConfidence is the field name for classification confidence.
	LogFieldConfidence = "confidence"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
)

// TurnContext carries structured logging state for a single conversational turn.
type TurnContext struct {
	RequestID string
	Platform  string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewTurnContext creates a turn context with a generated request ID.
func NewTurnContext(logger *slog.Logger, platform string) *TurnContext {
	if logger == nil {
		logger = slog.Default()
	}
	requestID := uuid.New().String()[:8]
	return &TurnContext{
		RequestID: requestID,
		Platform:  platform,
		StartTime: time.Now(),
		Logger: logger.With(
			slog.String(LogFieldRequestID, requestID),
			slog.String(LogFieldPlatform, platform),
		),
	}
}

// DurationMs returns the elapsed time since the turn started, in milliseconds.
func (tc *TurnContext) DurationMs() int64 {
	return time.Since(tc.StartTime).Milliseconds()
}
