package middleware

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/civicatlas/boundary-api/internal/cache"
	"github.com/civicatlas/boundary-api/internal/metrics"
	"github.com/civicatlas/boundary-api/internal/throttle"
)

var allowed = map[string]struct{}{
	"http://localhost:5173":             {},
	"http://localhost:8000":             {},
	"https://boundaries.civicatlas.org": {},
	"https://maps.civicatlas.org":       {},
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it’s on our allow-list
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		w.Header().Set("Access-Control-Expose-Headers", "Server-Timing, Retry-After, Cache-Control")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIdentity extracts the anonymous client identity a request is
// throttled under: the first X-Forwarded-For hop when present (the service
// runs behind a proxy in production), else the bare remote address.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ThrottleMiddleware gates anonymous clients through the per-identity
// limiter. Rejections get a 429 with retry guidance, never a silent drop.
func ThrottleMiddleware(gate *throttle.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Admit(ClientIdentity(r)) {
				metrics.ThrottleRejectsTotal.Inc()
				seconds := int(gate.RetryAfter().Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				http.Error(w, "Rate limit exceeded, retry later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseRecorder buffers a downstream response so it can be both sent
// and cached.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rec *responseRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *responseRecorder) Write(p []byte) (int, error) {
	rec.body.Write(p)
	return rec.ResponseWriter.Write(p)
}

// CacheMiddleware serves GET responses from the read-through response
// cache, keyed by path + query string. Only 200 responses are stored;
// entries age out on the cache's TTL.
func CacheMiddleware(c *cache.ResponseCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil || !c.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := r.URL.Path + "?" + r.URL.RawQuery

			if entry, ok := c.Get(r.Context(), key); ok {
				metrics.CacheHitsTotal.Inc()
				w.Header().Set("Content-Type", entry.ContentType)
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(entry.Body)
				return
			}
			metrics.CacheMissesTotal.Inc()

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status == http.StatusOK {
				c.Set(r.Context(), key, cache.Entry{
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				})
			}
		})
	}
}

// MetricsMiddleware records request counts and latency per route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.RequestsTotal.WithLabelValues(r.URL.Path, fmt.Sprintf("%d", rec.status)).Inc()
		metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	})
}
