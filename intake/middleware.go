package intake

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"refund-intake/intake/domain"
)

const DefaultSessionHeader = "X-Session-Id"

type KeyFunc func(r *http.Request) string

// RateChecker é o que o middleware precisa da Facade.
type RateChecker interface {
	CheckRateLimit(ctx context.Context, id domain.Key) domain.Decision
}

type Options struct {
	Checker             RateChecker
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	AddRateLimitHeaders bool
	Now                 func() time.Time
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func (o *Options) defaults() {
	if o.RejectStatus == 0 {
		o.RejectStatus = http.StatusTooManyRequests
	}
	if o.KeyFn == nil {
		o.KeyFn = DefaultKeyFunc(o.KeyHeader, o.TrustXForwardedFor)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Middleware consulta a Facade a cada requisição. A Facade nunca falha
// fechado, então erros de store não chegam aqui como 429.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Checker == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	opts.defaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			dec := opts.Checker.CheckRateLimit(r.Context(), domain.Key(key))

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
				if reset := dec.ResetMillis(); reset > 0 {
					w.Header().Set("X-RateLimit-Reset", formatInt64(reset))
				}
			}

			if !dec.Allowed {
				w.Header().Set("Retry-After", formatRetryAfter(dec.RetryAfter(opts.Now())))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
