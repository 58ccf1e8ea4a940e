package intake

import (
	"context"
	"net/http"
	"time"

	"refund-intake/intake/domain"
	"refund-intake/intake/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita quantas requisições são processadas ao mesmo tempo.
// Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	pool := infra.NewSlotPool(opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := acquire(r.Context(), pool, opts.AcquireTimeout)
			if !ok {
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}

// acquire espera até timeout (ou indefinidamente se timeout <= 0, até o ctx cancelar).
func acquire(ctx context.Context, pool domain.SlotPool, timeout time.Duration) (func(), bool) {
	if timeout <= 0 {
		return pool.Acquire(ctx)
	}
	acqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.Acquire(acqCtx)
}
