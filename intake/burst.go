package intake

import (
	"net/http"
	"time"

	"refund-intake/intake/domain"
)

// BurstLimiter é um limite local por chave (ex.: infra.BurstGuard).
type BurstLimiter interface {
	Allow(key domain.Key) (bool, time.Duration)
}

type BurstOptions struct {
	Limiter      BurstLimiter
	KeyFn        KeyFunc
	RejectStatus int
}

// BurstMiddleware barra rajadas antes de qualquer acesso ao store.
func BurstMiddleware(opts BurstOptions) func(next http.Handler) http.Handler {
	if opts.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc("", false)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := opts.Limiter.Allow(domain.Key(opts.KeyFn(r)))
			if !ok {
				w.Header().Set("Retry-After", formatRetryAfter(wait))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
