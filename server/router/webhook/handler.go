package webhook

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thachpham/thachai/internal/profile"
	"github.com/thachpham/thachai/server/assistant"
	gwerrors "github.com/thachpham/thachai/server/internal/errors"
	"github.com/thachpham/thachai/server/internal/observability"
	"github.com/thachpham/thachai/server/middleware"
)

const maxBodyBytes = 1 << 20

// WebhookService exposes the platform webhook endpoints. Every endpoint
// answers HTTP 200 with a protocol-valid body, including on parse
// failures; the platforms surface non-200s to end users as hard errors.
type WebhookService struct {
	Profile *profile.Profile
	Engine  *assistant.Engine

	voiceAssistant *VoiceAssistantAdapter
	skillsKit      *SkillsKitAdapter
	botFramework   *BotFrameworkAdapter
	generic        *GenericAdapter

	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

// NewWebhookService creates the webhook service.
func NewWebhookService(prof *profile.Profile, engine *assistant.Engine, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		Profile:        prof,
		Engine:         engine,
		voiceAssistant: NewVoiceAssistantAdapter(),
		skillsKit:      NewSkillsKitAdapter(),
		botFramework:   NewBotFrameworkAdapter(),
		generic:        NewGenericAdapter(),
		limiter:        middleware.NewRateLimiter(prof.RateLimitRPS, prof.RateLimitBurst),
		logger:         logger,
	}
}

// RegisterRoutes mounts the webhook endpoints on the echo group.
func (s *WebhookService) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook/voice-assistant", s.handle(s.voiceAssistant))
	e.POST("/webhook/skills-kit", s.handle(s.skillsKit))
	e.POST("/webhook/bot-framework", s.handle(s.botFramework))
	e.POST("/api/v1/process", s.handle(s.generic), s.limiter.Middleware())
}

// handle builds the endpoint for one adapter: parse, process, reply.
func (s *WebhookService) handle(adapter Adapter) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
		if err != nil {
			s.logger.Warn("webhook body read failed",
				observability.LogFieldPlatform, string(adapter.Platform()),
				"error", err)
			return c.JSON(http.StatusOK, adapter.FallbackReply(s.Profile.DefaultLanguage))
		}

		utt, err := adapter.ToUtterance(body)
		if err != nil {
			language := sniffLanguage(body, s.Profile.DefaultLanguage)
			if errors.Is(err, ErrSessionEnded) {
				return c.JSON(http.StatusOK, s.skillsKit.Goodbye(language))
			}
			s.logger.Warn("webhook parse failed",
				observability.LogFieldPlatform, string(adapter.Platform()),
				observability.LogFieldErrorCode, string(gwerrors.CodeOf(err)),
				"error", err)
			return c.JSON(http.StatusOK, adapter.FallbackReply(language))
		}

		result := s.Engine.ProcessTurn(c.Request().Context(), utt)
		return c.JSON(http.StatusOK, adapter.ToReply(result))
	}
}
