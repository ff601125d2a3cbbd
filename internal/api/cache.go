package api

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ticketbooth/internal/config"
)

// CacheHeader reports HIT or MISS on responses that went through the cache.
const CacheHeader = "X-Cache"

// CacheTransport is a read-through Redis cache for static GET endpoints
// (event listing, event dates).  Availability responses are never cached:
// the server is authoritative for inventory and a resync must observe it.
type CacheTransport struct {
	next  http.RoundTripper
	rdb   *redis.Client
	cfg   config.CacheConfig
	ttl   time.Duration
	limit int64
}

// NewCacheTransport wraps next.  When caching is disabled or rdb is nil the
// returned transport is next itself.
func NewCacheTransport(cfg config.CacheConfig, rdb *redis.Client, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if !cfg.Enabled || rdb == nil {
		return next
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CacheTransport{next: next, rdb: rdb, cfg: cfg, ttl: ttl, limit: int64(cfg.MaxBodyBytes)}
}

func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cacheable(req) {
		return t.next.RoundTrip(req)
	}
	ctx := req.Context()
	key := cacheKey(t.cfg.Prefix, req)

	if bs, err := t.rdb.Get(ctx, key).Bytes(); err == nil {
		if status, hdr, body, ok := decodePayload(bs); ok {
			hdr.Set(CacheHeader, "HIT")
			return &http.Response{
				Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
				StatusCode:    status,
				Proto:         "HTTP/1.1",
				ProtoMajor:    1,
				ProtoMinor:    1,
				Header:        hdr,
				Body:          io.NopCloser(bytes.NewReader(body)),
				ContentLength: int64(len(body)),
				Request:       req,
			}, nil
		}
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.Header.Set(CacheHeader, "MISS")

	if t.limit <= 0 || int64(len(body)) <= t.limit {
		hdr := resp.Header.Clone()
		hdr.Del(CacheHeader)
		hdr.Del("Content-Length")
		if payload, err := encodePayload(resp.StatusCode, hdr, body); err == nil {
			// Detached so a cancelled caller does not drop the write.
			_ = t.rdb.SetEx(context.WithoutCancel(ctx), key, payload, t.ttl).Err()
		}
	}
	return resp, nil
}

func (t *CacheTransport) cacheable(req *http.Request) bool {
	if req.Method != http.MethodGet || req.Header.Get("Cache-Control") == "no-cache" {
		return false
	}
	path := req.URL.Path
	if strings.HasSuffix(path, "/availability") {
		return false
	}
	for _, p := range t.cfg.Paths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// cacheKey hashes method, path and query under the configured prefix.
func cacheKey(prefix string, req *http.Request) string {
	tail := strings.Join([]string{"method", req.Method, "route", req.URL.Path, "q", req.URL.RawQuery}, ":")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
