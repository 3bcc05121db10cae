package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidConfig is returned when a driver is missing required configuration.
	ErrInvalidConfig = errors.New("invalid store configuration")
	// ErrInvalidDriver is returned for unknown driver names.
	ErrInvalidDriver = errors.New("invalid store driver")
)

// CreateParams carries the caller-derived fields for a new session.
type CreateParams struct {
	Platform     Platform
	CallerKey    string
	UserID       string
	Language     string
	Capabilities []string
	// Context seeds the new session's slot-filling state. Ignored when
	// the session already exists.
	Context map[string]any
}

// Store is the keyed session store.
//
// GetOrCreate must be atomic with respect to (platform, callerKey): two
// near-simultaneous first utterances from the same caller yield one session.
//
// Sessions returned by GetOrCreate, Get, and List are snapshots owned by
// the caller; they are never mutated by later store writes. Mutations
// are persisted through Update, AppendTurn, and Touch.
type Store interface {
	// GetOrCreate returns the live session for the params' (platform,
	// callerKey) pair, creating one with empty history and context if
	// absent. The second return reports whether a session was created.
	GetOrCreate(ctx context.Context, params CreateParams) (*Session, bool, error)

	// Get retrieves a session by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Touch updates the session's last-activity timestamp.
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// AppendTurn appends a completed turn to the session's history.
	// Returns ErrNotFound if the session is absent; callers must only
	// append to a session they just got-or-created.
	AppendTurn(ctx context.Context, sessionID string, turn ConversationTurn) error

	// Update persists mutable session fields (language, context).
	Update(ctx context.Context, sess *Session) error

	// Delete removes a session by id.
	Delete(ctx context.Context, sessionID string) error

	// ExpireIdle removes sessions idle longer than ttl and returns the
	// count removed.
	ExpireIdle(ctx context.Context, now time.Time, ttl time.Duration) (int, error)

	// List returns all live sessions, unordered.
	List(ctx context.Context) ([]*Session, error)

	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}

// storeConfig holds driver options applied by StoreOption.
type storeConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration
}

// StoreOption configures a store driver.
type StoreOption func(*storeConfig)

// WithRedisClient supplies the Redis client for the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the hard Redis key TTL (safety net over the idle sweep).
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// NewStore creates a session store for the given driver ("memory" or "redis").
func NewStore(driver string, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch driver {
	case "memory":
		return newMemoryStore(), nil

	case "redis":
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := config.redisTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return &redisStore{
			client: config.redisClient,
			ttl:    ttl,
		}, nil

	default:
		return nil, ErrInvalidDriver
	}
}
