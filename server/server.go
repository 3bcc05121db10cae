// Package server assembles the conversational gateway: session store,
// classifier, dispatch, synthesis, analytics, and the HTTP surface.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/thachpham/thachai/internal/profile"
	"github.com/thachpham/thachai/server/analytics"
	"github.com/thachpham/thachai/server/assistant"
	"github.com/thachpham/thachai/server/nlu"
	apiv1 "github.com/thachpham/thachai/server/router/api/v1"
	"github.com/thachpham/thachai/server/router/webhook"
	"github.com/thachpham/thachai/server/session"
)

// Server is the gateway process.
type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	store      session.Store
	engine     *assistant.Engine
	aggregator *analytics.Aggregator
	logger     *slog.Logger
}

// NewServer wires the gateway from a validated profile.
func NewServer(ctx context.Context, prof *profile.Profile) (*Server, error) {
	logger := slog.Default()

	store, err := newSessionStore(ctx, prof)
	if err != nil {
		return nil, errors.Wrap(err, "create session store")
	}

	caps := assistant.NewCapabilityClient(prof.UpstreamURL, prof.HandlerBudget)
	aggregator := analytics.NewAggregator(store, prof.AnalyticsBuffer)

	engine := assistant.NewEngine(assistant.Config{
		Store:      store,
		Classifier: nlu.NewClassifier(),
		Dispatcher: assistant.NewDispatcher(assistant.NewRegistry(caps).Table(), prof.HandlerBudget),
		Synth:      assistant.NewSynthesizer(),
		Recorder:   aggregator,
		SessionTTL: prof.SessionTTL,
		Logger:     logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	webhook.NewWebhookService(prof, engine, logger).RegisterRoutes(e)
	apiv1.NewAPIV1Service(prof, store, engine, aggregator).RegisterRoutes(e)

	return &Server{
		Profile:    prof,
		echoServer: e,
		store:      store,
		engine:     engine,
		aggregator: aggregator,
		logger:     logger,
	}, nil
}

// newSessionStore builds the configured store driver.
func newSessionStore(ctx context.Context, prof *profile.Profile) (session.Store, error) {
	switch prof.SessionDriver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     prof.RedisAddr,
			Password: prof.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrapf(err, "ping redis at %s", prof.RedisAddr)
		}
		// Hard key TTL is a safety net over the idle sweep.
		return session.NewStore("redis",
			session.WithRedisClient(client),
			session.WithRedisTTL(4*prof.SessionTTL))

	default:
		return session.NewStore(prof.SessionDriver)
	}
}

// Start launches the background loops and begins serving. It blocks
// until the listener fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.aggregator.Start(ctx)
	s.engine.StartSweeper(ctx, s.Profile.SweepInterval)

	s.logger.Info("gateway started",
		"addr", s.Profile.ListenAddr(),
		"mode", s.Profile.Mode,
		"session_driver", s.Profile.SessionDriver)

	if err := s.echoServer.Start(s.Profile.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, waits for the analytics drain, and
// releases the store. The caller cancels the Start context first.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", "error", err)
	}
	s.aggregator.Wait()
	if err := s.store.Close(); err != nil {
		s.logger.Error("store close failed", "error", err)
	}
	s.logger.Info("gateway stopped")
}

// requestLogger logs every request through slog, skipping health probes.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"duration_ms", v.Latency.Milliseconds())
			return nil
		},
	})
}
