package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mona-chen/jean/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// with up to Burst available at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

func (c RateLimitConfig) perSecond() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// RateLimits groups the profiles the broker assigns to its endpoints.
type RateLimits struct {
	// Strict covers the token and consent endpoints.
	Strict RateLimitConfig
	// Moderate covers wallet operations and revocation.
	Moderate RateLimitConfig
	// Lenient covers authorize, introspection and health probes.
	Lenient RateLimitConfig
	// Public covers the JWKS document.
	Public RateLimitConfig
}

// DefaultRateLimits returns the built-in profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10},
		Moderate: RateLimitConfig{RequestsPerWindow: 30, Window: time.Minute, Burst: 30},
		Lenient:  RateLimitConfig{RequestsPerWindow: 120, Window: time.Minute, Burst: 120},
		Public:   RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
}

// RateLimitsFromEnv applies RATELIMIT_<PROFILE>_{REQUESTS,WINDOW_SEC,BURST}
// overrides read through getenv on top of DefaultRateLimits. Non-positive
// or unparseable values are ignored.
func RateLimitsFromEnv(getenv func(string) string) RateLimits {
	l := DefaultRateLimits()
	l.Strict = overrideProfile(getenv, "STRICT", l.Strict)
	l.Moderate = overrideProfile(getenv, "MODERATE", l.Moderate)
	l.Lenient = overrideProfile(getenv, "LENIENT", l.Lenient)
	l.Public = overrideProfile(getenv, "PUBLIC", l.Public)
	return l
}

func overrideProfile(getenv func(string) string, name string, c RateLimitConfig) RateLimitConfig {
	positive := func(key string) (int, bool) {
		n, err := strconv.Atoi(getenv("RATELIMIT_" + name + "_" + key))
		return n, err == nil && n > 0
	}
	if n, ok := positive("REQUESTS"); ok {
		c.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		c.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		c.Burst = n
	}
	return c
}

// KeyExtractor picks the bucket a request is counted against. An empty key
// lets the request through unmetered.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the first X-Forwarded-For hop, then X-Real-IP, then
// the peer address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKeyExtractor uses the subject of the authenticated TEP token.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// FormFieldKeyExtractor uses a query or form parameter such as client_id.
func FormFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return r.FormValue(field)
	}
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// RateLimitOption customises RateLimitMiddleware.
type RateLimitOption func(*rateLimiter)

// OnLimited is called for every rejected request, e.g. to count it.
func OnLimited(fn func(r *http.Request)) RateLimitOption {
	return func(rl *rateLimiter) { rl.onLimited = fn }
}

type rateLimiter struct {
	buckets   sync.Map // key -> *rate.Limiter
	config    RateLimitConfig
	onLimited func(*http.Request)

	mu        sync.Mutex
	lastPrune time.Time
}

func (rl *rateLimiter) bucket(key string) *rate.Limiter {
	if b, ok := rl.buckets.Load(key); ok {
		return b.(*rate.Limiter)
	}
	b, _ := rl.buckets.LoadOrStore(key, rate.NewLimiter(rl.config.perSecond(), rl.config.Burst))
	rl.prune()
	return b.(*rate.Limiter)
}

// prune drops full buckets at most every five minutes; a full bucket has
// been idle long enough to be recreated on demand.
func (rl *rateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastPrune) < 5*time.Minute {
		return
	}
	rl.lastPrune = time.Now()
	rl.buckets.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.config.Burst) {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// RateLimitMiddleware rejects requests over config with 429 and a
// Retry-After header.
func RateLimitMiddleware(config RateLimitConfig, key KeyExtractor, opts ...RateLimitOption) Middleware {
	rl := &rateLimiter{config: config, lastPrune: time.Now()}
	for _, opt := range opts {
		opt(rl)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			b := rl.bucket(k)
			if b.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := b.Reserve()
			retryAfter := max(int(res.Delay().Seconds()), 1)
			res.Cancel()

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", k, "path", r.URL.Path, "retry_after", retryAfter)
			if rl.onLimited != nil {
				rl.onLimited(r)
			}

			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP meters per client address.
func RateLimitByIP(config RateLimitConfig, opts ...RateLimitOption) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor, opts...)
}

// RateLimitByUser meters per TEP subject, falling back to the address.
func RateLimitByUser(config RateLimitConfig, opts ...RateLimitOption) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor), opts...)
}

// RateLimitByIPAndClient meters per address and mini-app, so one noisy
// mini-app cannot starve the others behind a shared proxy.
func RateLimitByIPAndClient(config RateLimitConfig, opts ...RateLimitOption) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":", IPKeyExtractor, FormFieldKeyExtractor("client_id")), opts...)
}
