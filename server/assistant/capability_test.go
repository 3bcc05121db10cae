package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitoredProductsCached(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
		_ = json.NewEncoder(w).Encode(ProductsResult{ActiveAlerts: 1})
	}))
	defer srv.Close()

	client := NewCapabilityClient(srv.URL, 2*time.Second)
	ctx := context.Background()

	first, err := client.MonitoredProducts(ctx)
	require.NoError(t, err)
	second, err := client.MonitoredProducts(ctx)
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestDoJSONRetriesOnce(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt64(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(VoiceResult{Intent: "status", Response: "ok"})
	}))
	defer srv.Close()

	client := NewCapabilityClient(srv.URL, 2*time.Second)
	result, err := client.VoiceCommand(context.Background(), "trạng thái", "vi")
	require.NoError(t, err)
	require.Equal(t, "ok", result.Response)
	require.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestDoJSONGivesUpAfterRetry(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewCapabilityClient(srv.URL, 2*time.Second)
	_, err := client.GenerateContent(context.Background(), "AI", "viral")
	require.Error(t, err)
	require.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestDoJSONHonorsContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := NewCapabilityClient(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.LatestData(ctx)
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestTTLCacheExpires(t *testing.T) {
	cache := newTTLCache()
	cache.set("k", "v", 20*time.Millisecond)

	got, ok := cache.get("k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.get("k")
	require.False(t, ok)
}
