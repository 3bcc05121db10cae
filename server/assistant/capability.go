package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const (
	productsCacheKey = "shopee:monitored-products"
	latestCacheKey   = "data:latest"

	productsCacheTTL = 30 * time.Second
	latestCacheTTL   = time.Minute

	// maxUpstreamCalls caps concurrent in-flight upstream requests.
	maxUpstreamCalls = 8
)

// CapabilityClient reaches the external feature collaborators (content
// creation, price lookup, business analytics, voice processing) over the
// ThachAI feature API. Delivery is at-most-once with a single retry on
// transport errors; callers degrade to localized fallback messages.
type CapabilityClient struct {
	baseURL string
	client  *http.Client
	sem     *semaphore.Weighted
	cache   *ttlCache
	logger  *slog.Logger
}

// NewCapabilityClient creates a client for the feature API at baseURL.
// budget bounds a single request including the retry.
func NewCapabilityClient(baseURL string, budget time.Duration) *CapabilityClient {
	return &CapabilityClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: budget},
		sem:     semaphore.NewWeighted(maxUpstreamCalls),
		cache:   newTTLCache(),
		logger:  slog.Default(),
	}
}

// ContentResult is the upstream reply to a content-generation request.
type ContentResult struct {
	Script         string `json:"script"`
	ViralScore     int    `json:"viral_score"`
	EstimatedViews string `json:"estimated_views"`
}

// MonitoredProduct is one price-tracked product.
type MonitoredProduct struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ProductsResult is the upstream price-monitoring summary.
type ProductsResult struct {
	Products     []MonitoredProduct `json:"products"`
	ActiveAlerts int                `json:"active_alerts"`
}

// LatestData is the upstream business-data snapshot.
type LatestData struct {
	Weather map[string]any   `json:"weather"`
	News    []map[string]any `json:"news"`
	Stocks  []map[string]any `json:"stocks"`
	Social  []map[string]any `json:"social"`
}

// VoiceResult is the upstream voice-command processing reply.
type VoiceResult struct {
	Intent   string   `json:"intent"`
	Response string   `json:"response"`
	Actions  []string `json:"actions"`
}

// GenerateContent asks the content-creation capability for a script.
func (c *CapabilityClient) GenerateContent(ctx context.Context, topic, style string) (*ContentResult, error) {
	payload := map[string]any{
		"topic":    topic,
		"category": "general",
		"duration": 30,
		"audience": "gen-z",
		"style":    style,
	}
	var result ContentResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/tiktok/generate-content", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MonitoredProducts fetches the price-monitoring summary, cached briefly.
func (c *CapabilityClient) MonitoredProducts(ctx context.Context) (*ProductsResult, error) {
	if cached, ok := c.cache.get(productsCacheKey); ok {
		return cached.(*ProductsResult), nil
	}
	var result ProductsResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/shopee/monitored-products", nil, &result); err != nil {
		return nil, err
	}
	c.cache.set(productsCacheKey, &result, productsCacheTTL)
	return &result, nil
}

// LatestData fetches the business-data snapshot, cached briefly.
func (c *CapabilityClient) LatestData(ctx context.Context) (*LatestData, error) {
	if cached, ok := c.cache.get(latestCacheKey); ok {
		return cached.(*LatestData), nil
	}
	var result LatestData
	if err := c.doJSON(ctx, http.MethodGet, "/api/data/latest", nil, &result); err != nil {
		return nil, err
	}
	c.cache.set(latestCacheKey, &result, latestCacheTTL)
	return &result, nil
}

// VoiceCommand forwards a transcript to the voice-status capability.
func (c *CapabilityClient) VoiceCommand(ctx context.Context, transcript, language string) (*VoiceResult, error) {
	payload := map[string]any{
		"transcript": transcript,
		"confidence": 0.9,
		"language":   language,
	}
	var result VoiceResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/voice-command", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doJSON performs one request with a single retry on transport errors.
func (c *CapabilityClient) doJSON(ctx context.Context, method, path string, payload, out any) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "acquire upstream slot")
	}
	defer c.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying upstream request", "method", method, "path", path)
		}
		if err := c.doOnce(ctx, method, path, payload, out); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return nil
	}
	return lastErr
}

func (c *CapabilityClient) doOnce(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "call %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("upstream %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
