// Package v1 exposes the management endpoints: analytics, session
// inspection, and health. The conversational endpoints live in the
// webhook package.
package v1

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thachpham/thachai/internal/profile"
	"github.com/thachpham/thachai/server/analytics"
	"github.com/thachpham/thachai/server/assistant"
	"github.com/thachpham/thachai/server/session"
)

type APIV1Service struct {
	Profile    *profile.Profile
	Store      session.Store
	Engine     *assistant.Engine
	Aggregator *analytics.Aggregator
}

func NewAPIV1Service(prof *profile.Profile, store session.Store, engine *assistant.Engine, agg *analytics.Aggregator) *APIV1Service {
	return &APIV1Service{
		Profile:    prof,
		Store:      store,
		Engine:     engine,
		Aggregator: agg,
	}
}

// RegisterRoutes mounts the management endpoints.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Health)
	e.GET("/api/v1/analytics/overview", s.GetAnalyticsOverview)
	e.GET("/api/v1/sessions", s.ListSessions)
	e.DELETE("/api/v1/sessions/:platform/:callerKey", s.ClearSession)
}

// Health reports liveness.
// GET /healthz
func (s *APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"mode":    s.Profile.Mode,
		"version": s.Profile.Version,
	})
}

// GetAnalyticsOverview returns the rolling routing counters.
// GET /api/v1/analytics/overview
func (s *APIV1Service) GetAnalyticsOverview(c echo.Context) error {
	report, err := s.Aggregator.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "analytics snapshot failed"})
	}
	return c.JSON(http.StatusOK, report)
}

// SessionSummary is the inspection view of one live session. History
// stays out of it; full transcripts are not a management concern.
type SessionSummary struct {
	ID           string           `json:"id"`
	Platform     session.Platform `json:"platform"`
	UserID       string           `json:"user_id"`
	Language     string           `json:"language"`
	Turns        int              `json:"turns"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActivity time.Time        `json:"last_activity"`
}

// ListSessionsResponse is the session inspection payload.
type ListSessionsResponse struct {
	Count    int              `json:"count"`
	Sessions []SessionSummary `json:"sessions"`
}

// ListSessions returns a count plus per-session summaries, newest first.
// GET /api/v1/sessions
func (s *APIV1Service) ListSessions(c echo.Context) error {
	sessions, err := s.Store.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "session list failed"})
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:           sess.ID,
			Platform:     sess.Platform,
			UserID:       sess.UserID,
			Language:     sess.Language,
			Turns:        len(sess.History),
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})

	return c.JSON(http.StatusOK, ListSessionsResponse{
		Count:    len(summaries),
		Sessions: summaries,
	})
}

// ClearSession explicitly terminates a conversation.
// DELETE /api/v1/sessions/:platform/:callerKey
func (s *APIV1Service) ClearSession(c echo.Context) error {
	platform := session.Platform(c.Param("platform"))
	callerKey := c.Param("callerKey")

	err := s.Engine.ClearSession(c.Request().Context(), platform, callerKey)
	if errors.Is(err, session.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "session clear failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
