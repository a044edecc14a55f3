package httpx

import (
	"fmt"
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/backoffice/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines a token bucket per key.
type RateLimitConfig struct {
	// RequestsPerWindow is the sustained number of requests allowed per Window.
	RequestsPerWindow int
	Window            time.Duration
	// Burst is how many requests may arrive at once.
	Burst int
	// ClientIP keys requests by client address. Nil means IPKeyExtractor.
	ClientIP KeyExtractor
}

func (c RateLimitConfig) clientIP() KeyExtractor {
	if c.ClientIP != nil {
		return c.ClientIP
	}
	return IPKeyExtractor
}

var (
	// LoginLimit throttles the login endpoint per client IP. It sits in front
	// of the per-account login throttle and only blunts credential spraying
	// across many accounts.
	LoginLimit = RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	// APILimit applies per admitted user to the gated API.
	APILimit = RateLimitConfig{RequestsPerWindow: 300, Window: time.Minute, Burst: 60}
)

// idleLimiterTTL is how long an unused bucket is kept.
const idleLimiterTTL = 10 * time.Minute

// KeyExtractor groups requests for rate limiting. An empty key skips limiting.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys on the peer address of the connection. Forwarding
// headers are ignored since any client can set them.
func IPKeyExtractor(r *http.Request) string {
	if ip := peerIP(r); ip.IsValid() {
		return ip.String()
	}
	return r.RemoteAddr
}

// ProxyIPKeyExtractor honours X-Forwarded-For and X-Real-IP only when the
// peer is one of the trusted proxies. The client is the right-most
// X-Forwarded-For hop that is not itself a trusted proxy. With no trusted
// proxies it behaves like IPKeyExtractor.
func ProxyIPKeyExtractor(trusted []netip.Prefix) KeyExtractor {
	isTrusted := func(ip netip.Addr) bool {
		for _, p := range trusted {
			if p.Contains(ip) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := peerIP(r)
		if !peer.IsValid() || !isTrusted(peer) {
			return IPKeyExtractor(r)
		}

		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				hop = hop.Unmap()
				if !isTrusted(hop) {
					return hop.String()
				}
			}
		}

		if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return xri.Unmap().String()
		}
		return peer.String()
	}
}

// ParseTrustedProxies reads a comma separated list of CIDRs or bare
// addresses.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		ip, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
		}
		ip = ip.Unmap()
		out = append(out, netip.PrefixFrom(ip, ip.BitLen()))
	}
	return out, nil
}

// peerIP is the connection's remote address. The zero Addr means it could
// not be parsed.
func peerIP(r *http.Request) netip.Addr {
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap()
	}
	ip, _ := netip.ParseAddr(r.RemoteAddr)
	return ip.Unmap()
}

// UserKeyExtractor keys on the user admitted by the Gate.
func UserKeyExtractor(r *http.Request) string {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		return ""
	}
	return "user:" + strconv.FormatInt(id, 10)
}

// CompositeKeyExtractor joins the non-empty keys of several extractors.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	lastSweep time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		lastSweep: time.Now(),
	}
}

// reserve takes a token for key. It returns zero when the request may
// proceed, otherwise how long the caller should wait.
func (rl *rateLimiter) reserve(key string, now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > idleLimiterTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) > idleLimiterTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return 0
	}
	res := b.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return delay
}

// RateLimitMiddleware rejects requests above config with 429 and a
// Retry-After header.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	rl := newRateLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			delay := rl.reserve(key, time.Now())
			if delay == 0 {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(delay.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key,
				"retry_after", retryAfter,
			)
			WriteError(w, http.StatusTooManyRequests, "too many requests")
		})
	}
}

// RateLimitByIP limits by client IP.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, config.clientIP())
}

// RateLimitByUser limits by admitted user, falling back to IP.
func RateLimitByUser(config RateLimitConfig) Middleware {
	clientIP := config.clientIP()
	return RateLimitMiddleware(config, func(r *http.Request) string {
		if key := UserKeyExtractor(r); key != "" {
			return key
		}
		return clientIP(r)
	})
}
