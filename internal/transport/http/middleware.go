package transporthttp

import (
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/strategist/internal/auth"
	"example.com/strategist/internal/logger"
)

// BodyLimit limits request bodies to maxBytes.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON ensures Content-Type is application/json for POST endpoints.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if r.Method == http.MethodPost && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			WriteProblem(w, http.StatusUnsupportedMediaType, "unsupported media type", "expected application/json", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser resolves the calling user and stores it in the request context.
func RequireUser(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Identify(r)
			if err != nil || id.UserID == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="strategist"`)
				WriteProblem(w, http.StatusUnauthorized, "unauthorized", "invalid or missing credentials", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// maxBuckets bounds the limiter table; idle full buckets are evicted past it.
const maxBuckets = 10000

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimitPerMinute gives every client its own token bucket of limitPerMin
// requests, refilled continuously. The client is the named user when known,
// else the client address.
func RateLimitPerMinute(limitPerMin int, clock func() time.Time) func(http.Handler) http.Handler {
	if limitPerMin <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	capacity := float64(limitPerMin)
	refillPerSec := float64(limitPerMin) / 60.0

	var mu sync.Mutex
	buckets := make(map[string]*bucket)

	take := func(key string, now time.Time) (ok bool, retryAfter int) {
		mu.Lock()
		defer mu.Unlock()

		b, found := buckets[key]
		if !found {
			if len(buckets) >= maxBuckets {
				for k, old := range buckets {
					if now.Sub(old.lastRefill).Seconds()*refillPerSec+old.tokens >= capacity {
						delete(buckets, k)
					}
				}
			}
			b = &bucket{tokens: capacity, lastRefill: now}
			buckets[key] = b
		}
		b.tokens += now.Sub(b.lastRefill).Seconds() * refillPerSec
		b.lastRefill = now
		if b.tokens > capacity {
			b.tokens = capacity
		}
		if b.tokens < 1.0 {
			return false, int(math.Ceil((1.0 - b.tokens) * 60 / float64(limitPerMin)))
		}
		b.tokens -= 1.0
		return true, 0
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if id := auth.IdentityFrom(r.Context()); id.UserID != "" && !id.Fallback {
				key = "user:" + id.UserID
			}
			if ok, retry := take(key, clock()); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				WriteProblem(w, http.StatusTooManyRequests, "rate limit exceeded", "try again later", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }

// RequestLogger tags each request with an X-Request-ID and logs its outcome.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)
		})
	}
}

// DrainBody fully reads and closes request bodies (handler helper).
func DrainBody(r *http.Request) {
	if r.Body != nil {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	}
}
