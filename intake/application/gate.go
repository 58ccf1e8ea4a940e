package application

import (
	"context"
	"strconv"
	"time"

	"refund-intake/intake/domain"
)

const (
	DefaultGateThreshold = 2
	DefaultSessionTTL    = 300 * time.Second
)

// ActivityGate decide se vale a pena rodar o limiter.
//
// Cada chamada conta uma presença em active_sessions_count (TTL renovado).
// O gate abre só quando a contagem anterior ao incremento já era >= Threshold.
// Com pouco tráfego o limiter é pulado e nenhuma escrita de janela acontece.
type ActivityGate struct {
	Store      domain.TTLStore
	Threshold  int
	SessionTTL time.Duration
}

func (g ActivityGate) threshold() int {
	if g.Threshold <= 0 {
		return DefaultGateThreshold
	}
	return g.Threshold
}

func (g ActivityGate) ttl() time.Duration {
	if g.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return g.SessionTTL
}

// Open registra a presença e diz se o limiter deve rodar.
// Usa incremento atômico quando o store oferece domain.Counter.
func (g ActivityGate) Open(ctx context.Context) (bool, error) {
	if c, ok := g.Store.(domain.Counter); ok {
		n, err := c.Incr(ctx, domain.ActiveSessionsKey, g.ttl())
		if err != nil {
			return false, err
		}
		return n-1 >= int64(g.threshold()), nil
	}

	raw, ok, err := g.Store.Get(ctx, domain.ActiveSessionsKey)
	if err != nil {
		return false, err
	}
	count := 0
	if ok {
		if n, perr := strconv.Atoi(raw); perr == nil {
			count = n
		}
	}

	if err := g.Store.Set(ctx, domain.ActiveSessionsKey, strconv.Itoa(count+1), g.ttl()); err != nil {
		return false, err
	}
	return count >= g.threshold(), nil
}
