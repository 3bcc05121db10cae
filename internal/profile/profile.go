package profile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the gateway server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string

	// DefaultLanguage is used when a caller supplies no usable language hint.
	DefaultLanguage string

	// SessionTTL is the idle lifetime of a conversation session.
	SessionTTL time.Duration // THACHAI_SESSION_TTL (default: 30m)
	// SweepInterval is how often the idle-session sweeper runs.
	SweepInterval time.Duration // THACHAI_SWEEP_INTERVAL (default: 1m)
	// HandlerBudget bounds a single feature-handler invocation.
	HandlerBudget time.Duration // THACHAI_HANDLER_BUDGET (default: 10s)

	// UpstreamURL is the base URL of the ThachAI feature API.
	UpstreamURL string // THACHAI_UPSTREAM_URL (default: http://localhost:5000)

	// SessionDriver is the session store driver ("memory" or "redis").
	SessionDriver string // THACHAI_SESSION_DRIVER (default: memory)
	// RedisAddr is the Redis address used when SessionDriver is "redis".
	RedisAddr string // THACHAI_REDIS_ADDR (default: localhost:6379)
	// RedisPassword is the Redis password, empty for none.
	RedisPassword string // THACHAI_REDIS_PASSWORD

	// RateLimitRPS is the per-caller request rate on webhook endpoints.
	RateLimitRPS float64 // THACHAI_RATE_LIMIT_RPS (default: 10)
	// RateLimitBurst is the per-caller burst allowance.
	RateLimitBurst int // THACHAI_RATE_LIMIT_BURST (default: 20)

	// AnalyticsBuffer is the record channel depth; records beyond it are dropped.
	AnalyticsBuffer int // THACHAI_ANALYTICS_BUFFER (default: 1024)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// ListenAddr returns the host:port the server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from THACHAI_* environment variables.
// Values already set on the profile (e.g. from flags) win over the environment.
func (p *Profile) FromEnv() {
	if p.Mode == "" {
		p.Mode = getEnvOrDefault("THACHAI_MODE", "dev")
	}
	if p.Addr == "" {
		p.Addr = os.Getenv("THACHAI_ADDR")
	}
	if p.Port == 0 {
		p.Port = getIntEnv("THACHAI_PORT", 8230)
	}
	if p.DefaultLanguage == "" {
		p.DefaultLanguage = getEnvOrDefault("THACHAI_DEFAULT_LANGUAGE", "vi")
	}
	if p.SessionTTL == 0 {
		p.SessionTTL = getDurationEnv("THACHAI_SESSION_TTL", 30*time.Minute)
	}
	if p.SweepInterval == 0 {
		p.SweepInterval = getDurationEnv("THACHAI_SWEEP_INTERVAL", time.Minute)
	}
	if p.HandlerBudget == 0 {
		p.HandlerBudget = getDurationEnv("THACHAI_HANDLER_BUDGET", 10*time.Second)
	}
	if p.UpstreamURL == "" {
		p.UpstreamURL = getEnvOrDefault("THACHAI_UPSTREAM_URL", "http://localhost:5000")
	}
	if p.SessionDriver == "" {
		p.SessionDriver = getEnvOrDefault("THACHAI_SESSION_DRIVER", "memory")
	}
	if p.RedisAddr == "" {
		p.RedisAddr = getEnvOrDefault("THACHAI_REDIS_ADDR", "localhost:6379")
	}
	if p.RedisPassword == "" {
		p.RedisPassword = os.Getenv("THACHAI_REDIS_PASSWORD")
	}
	if p.RateLimitRPS == 0 {
		p.RateLimitRPS = getFloatEnv("THACHAI_RATE_LIMIT_RPS", 10)
	}
	if p.RateLimitBurst == 0 {
		p.RateLimitBurst = getIntEnv("THACHAI_RATE_LIMIT_BURST", 20)
	}
	if p.AnalyticsBuffer == 0 {
		p.AnalyticsBuffer = getIntEnv("THACHAI_ANALYTICS_BUFFER", 1024)
	}
}

// Validate checks the profile for values the server cannot start with.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" && p.Mode != "demo" {
		return errors.Errorf("invalid mode %q (valid: prod, dev, demo)", p.Mode)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.SessionDriver != "memory" && p.SessionDriver != "redis" {
		return errors.Errorf("invalid session driver %q (valid: memory, redis)", p.SessionDriver)
	}
	if p.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if p.HandlerBudget <= 0 {
		return errors.New("handler budget must be positive")
	}
	if !strings.HasPrefix(p.UpstreamURL, "http://") && !strings.HasPrefix(p.UpstreamURL, "https://") {
		return errors.Errorf("invalid upstream URL %q", p.UpstreamURL)
	}
	return nil
}
