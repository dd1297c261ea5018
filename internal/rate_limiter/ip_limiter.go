package ratelimiter

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	viewAuth "github.com/johndosdos/huddle/components/auth"
)

const tooManyRequests = "Too many requests. Try again later."

// ClientAddr is the address a request is billed to. Behind our proxy the
// last X-Forwarded-For hop is the one the proxy appended, so it is the only
// one a client cannot forge.
func ClientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			return last
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		//nolint:gosec
		slog.Warn("unparseable remote address", slog.String("remote_addr", r.RemoteAddr))
		return r.RemoteAddr
	}
	return host
}

// IPRateLimiter guards the account forms against credential stuffing.
type IPRateLimiter struct {
	*Limiter[string]
}

func NewIPRateLimiter(requests int, window time.Duration, cleanupOpts CleanupOpts) *IPRateLimiter {
	return &IPRateLimiter{Limiter: NewLimiter[string](requests, window, cleanupOpts)}
}

// Middleware answers 429 once a client address runs out of tokens. htmx
// requests get the inline form error so the page keeps its state.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := ClientAddr(r)
		if rl.Allow(addr) {
			next.ServeHTTP(w, r)
			return
		}

		slog.WarnContext(r.Context(), "auth rate limit exceeded",
			slog.String("addr", addr),
			slog.String("path", r.URL.Path))

		if r.Header.Get("HX-Request") != "true" {
			http.Error(w, tooManyRequests, http.StatusTooManyRequests)
			return
		}

		w.Header().Set("HX-Retarget", "#"+viewAuth.ErrorTarget)
		w.Header().Set("HX-Reswap", "innerHTML")
		w.WriteHeader(http.StatusTooManyRequests)
		if err := viewAuth.ErrorMsg(tooManyRequests).Render(r.Context(), w); err != nil {
			slog.ErrorContext(r.Context(), "failed to render error component", "error", err)
		}
	})
}
