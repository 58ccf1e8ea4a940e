package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"refund-intake/intake/domain"

	"go.uber.org/zap"
)

const (
	DefaultBatchMaxSize = 5
	DefaultBatchMaxWait = 30 * time.Second
)

// Batcher acumula eventos de analytics e grava um único registro agregado por
// flush em analytics_batch:<dia>. O flush acontece quando o buffer atinge
// MaxSize ou quando passou mais de MaxWait desde o último flush.
//
// O buffer só é limpo quando o Append no store dá certo; em falha os eventos
// ficam para a próxima tentativa.
type Batcher struct {
	store         domain.TTLStore
	maxSize       int
	maxWait       time.Duration
	ttl           time.Duration
	clientContext string
	now           func() time.Time
	log           *zap.Logger

	mu        sync.Mutex
	buf       []domain.AnalyticsEvent
	lastFlush time.Time
}

type BatcherOption func(*Batcher)

func WithBatchMaxSize(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

func WithBatchMaxWait(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		if d > 0 {
			b.maxWait = d
		}
	}
}

// WithClientContext define o contexto do cliente anexado a cada evento
// (ex.: user agent ou nome da instância).
func WithClientContext(s string) BatcherOption {
	return func(b *Batcher) { b.clientContext = s }
}

func WithBatcherClock(now func() time.Time) BatcherOption {
	return func(b *Batcher) { b.now = now }
}

func WithBatcherLogger(l *zap.Logger) BatcherOption {
	return func(b *Batcher) { b.log = l }
}

// NewBatcher cria o batcher; ttl é aplicado à chave do dia a cada flush.
func NewBatcher(store domain.TTLStore, ttl time.Duration, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		store:         store,
		maxSize:       DefaultBatchMaxSize,
		maxWait:       DefaultBatchMaxWait,
		ttl:           ttl,
		clientContext: "unknown",
		now:           time.Now,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastFlush = b.now()
	return b
}

// Add bufferiza o evento e faz o flush síncrono se algum limite foi atingido.
// O erro retornado é o do flush; o evento em si nunca é descartado.
func (b *Batcher) Add(ctx context.Context, name string, data map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.buf = append(b.buf, domain.AnalyticsEvent{
		Timestamp:     now.UnixMilli(),
		Event:         name,
		Data:          data,
		ClientContext: b.clientContext,
	})

	if len(b.buf) >= b.maxSize || now.Sub(b.lastFlush) > b.maxWait {
		return b.flushLocked(ctx)
	}
	return nil
}

// Flush grava o buffer pendente, se houver.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

// Pending retorna quantos eventos aguardam flush.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *Batcher) flushLocked(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}

	now := b.now()
	raw, err := json.Marshal(domain.AnalyticsBatch{BatchID: now.UnixMilli(), Events: b.buf})
	if err != nil {
		return fmt.Errorf("encode analytics batch: %w", err)
	}

	key := domain.AnalyticsBatchKey(now)
	if _, err := b.store.Append(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("append analytics batch: %w", err)
	}

	// o lote já está gravado; reter o buffer aqui duplicaria os eventos.
	if _, err := b.store.Expire(ctx, key, b.ttl); err != nil {
		b.log.Warn("analytics batch expire failed", zap.String("key", key), zap.Error(err))
	}

	b.log.Info("analytics batch flushed", zap.String("key", key), zap.Int("events", len(b.buf)))
	b.buf = nil
	b.lastFlush = now
	return nil
}
