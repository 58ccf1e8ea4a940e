package infra

import (
	"context"
	"sync"
	"time"

	"refund-intake/intake/domain"

	"golang.org/x/time/rate"
)

// BurstGuard é um token bucket local por chave (x/time/rate).
//
// Diferente do limiter de janela deslizante, não depende do store nem do
// gate de atividade: protege o processo contra rajadas mesmo com pouco tráfego.
type BurstGuard struct {
	mu           sync.Mutex
	buckets      map[domain.Key]*bucket
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BurstOption func(*BurstGuard)

func WithIdleTTL(d time.Duration) BurstOption {
	return func(g *BurstGuard) { g.idleTTL = d }
}

func WithBurstCleanupEvery(d time.Duration) BurstOption {
	return func(g *BurstGuard) { g.cleanupEvery = d }
}

func NewBurstGuard(rps float64, burst int, opts ...BurstOption) *BurstGuard {
	g := &BurstGuard{
		buckets:      make(map[domain.Key]*bucket),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *BurstGuard) RPS() float64 { return float64(g.rps) }
func (g *BurstGuard) Burst() int   { return g.burst }

func (g *BurstGuard) limiter(key domain.Key) *rate.Limiter {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.buckets[key]; ok {
		b.lastSeen = now
		return b.lim
	}

	lim := rate.NewLimiter(g.rps, g.burst)
	g.buckets[key] = &bucket{lim: lim, lastSeen: now}
	return lim
}

// Allow consome um token da chave. Retorna também quanto esperar pelo próximo.
func (g *BurstGuard) Allow(key domain.Key) (bool, time.Duration) {
	lim := g.limiter(key)
	now := time.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// Cleanup descarta buckets sem uso há mais de idleTTL.
func (g *BurstGuard) Cleanup() {
	cutoff := time.Now().Add(-g.idleTTL)

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, b := range g.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(g.buckets, k)
		}
	}
}

func (g *BurstGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buckets)
}

// StartJanitor limpa buckets inativos periodicamente. Pare cancelando o contexto.
func (g *BurstGuard) StartJanitor(ctx context.Context) {
	if g.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(g.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.Cleanup()
			}
		}
	}()
}
