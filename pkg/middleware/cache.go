package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/bargom/hldclient/pkg/cache"
	"github.com/bargom/hldclient/pkg/metrics"
	"github.com/bargom/hldclient/pkg/runtime"
)

// CacheHeader is set to HIT on responses served from the cache.
const CacheHeader = "X-Cache"

// cacheKeyPrefix starts every key written by Cache: only GETs are stored and
// keys begin with Descriptor.Key.
const cacheKeyPrefix = "GET "

// CacheConfig configures the Cache middleware.
type CacheConfig struct {
	// TTL bounds how long a response is served from the cache.
	// Default: the store's default TTL
	TTL time.Duration

	// Operations limits caching to the named operations. Empty caches every GET.
	Operations []string

	// KeepOnMutation keeps cached entries when a non-GET call succeeds.
	// By default every cached entry is dropped.
	KeepOnMutation bool
}

// Cache serves successful GET responses from a cache.Store. Keys include the
// full URL and a digest of the credentials, so callers with different tokens
// never share entries.
type Cache struct {
	store  cache.Store
	config CacheConfig
	logger *slog.Logger
}

type cachedResponse struct {
	StatusCode int         `json:"status_code"`
	Status     string      `json:"status"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// NewCache creates a new caching middleware.
func NewCache(store cache.Store, config CacheConfig) *Cache {
	return &Cache{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "hld_cache"),
	}
}

// HandleRequest short-circuits the call on a cache hit.
func (m *Cache) HandleRequest(ctx context.Context, req *runtime.Descriptor) (*runtime.RawResponse, error) {
	if !m.cacheable(req) {
		return nil, nil
	}

	data, err := m.store.Get(ctx, m.key(req))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			m.logger.WarnContext(ctx, "cache lookup failed", "operation", req.Operation, "error", err)
		}
		recordCache(false)
		return nil, nil
	}

	var entry cachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		m.logger.WarnContext(ctx, "discarding corrupt cache entry", "operation", req.Operation, "error", err)
		recordCache(false)
		return nil, nil
	}

	recordCache(true)
	header := entry.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(CacheHeader, "HIT")
	return &runtime.RawResponse{
		StatusCode: entry.StatusCode,
		Status:     entry.Status,
		Header:     header,
		Body:       entry.Body,
	}, nil
}

// HandleResponse stores successful GET responses and invalidates the cache
// after successful mutations.
func (m *Cache) HandleResponse(ctx context.Context, req *runtime.Descriptor, resp *runtime.RawResponse) (*runtime.RawResponse, error) {
	if resp.ShortCircuited || !resp.IsSuccess() {
		return nil, nil
	}

	if req.Method != http.MethodGet {
		if !m.config.KeepOnMutation {
			if err := m.store.DeletePrefix(ctx, cacheKeyPrefix); err != nil {
				m.logger.WarnContext(ctx, "cache invalidation failed", "operation", req.Operation, "error", err)
			}
		}
		return nil, nil
	}
	if !m.cacheable(req) {
		return nil, nil
	}

	data, err := json.Marshal(cachedResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       resp.Body,
	})
	if err != nil {
		return nil, nil
	}
	if err := m.store.Set(ctx, m.key(req), data, m.config.TTL); err != nil {
		m.logger.WarnContext(ctx, "cache store failed", "operation", req.Operation, "error", err)
	}
	return nil, nil
}

func (m *Cache) cacheable(req *runtime.Descriptor) bool {
	if req.Method != http.MethodGet {
		return false
	}
	return len(m.config.Operations) == 0 || slices.Contains(m.config.Operations, req.Operation)
}

func (m *Cache) key(req *runtime.Descriptor) string {
	h := sha256.New()
	for _, name := range []string{"Authorization", "X-Api-Key", "Cookie"} {
		for _, v := range req.Header.Values(name) {
			h.Write([]byte(name))
			h.Write([]byte{0})
			h.Write([]byte(v))
			h.Write([]byte{0})
		}
	}
	return req.Key() + " " + hex.EncodeToString(h.Sum(nil))[:16]
}

func recordCache(hit bool) {
	reg := metrics.Global()
	if reg == nil {
		return
	}
	if hit {
		reg.Client().RecordCacheHit()
	} else {
		reg.Client().RecordCacheMiss()
	}
}
