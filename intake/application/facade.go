package application

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"refund-intake/intake/domain"

	"go.uber.org/zap"
)

// Config é lida uma vez na construção da Facade. Campos zerados usam os defaults.
type Config struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
	FormCacheTTL    time.Duration
	AnalyticsTTL    time.Duration
	BatchMaxSize    int
	BatchMaxWait    time.Duration
	QueueName       string

	GateThreshold int
	SessionTTL    time.Duration
	// InactiveAfter é quanto tempo sem admissões até Cleanup remover a janela.
	InactiveAfter time.Duration
	ClientContext string
}

func DefaultConfig() Config {
	return Config{
		RateLimitMax:    10,
		RateLimitWindow: 60 * time.Second,
		FormCacheTTL:    60 * time.Second,
		AnalyticsTTL:    300 * time.Second,
		BatchMaxSize:    DefaultBatchMaxSize,
		BatchMaxWait:    DefaultBatchMaxWait,
		QueueName:       DefaultQueueName,
		GateThreshold:   DefaultGateThreshold,
		SessionTTL:      DefaultSessionTTL,
		InactiveAfter:   5 * time.Minute,
		ClientContext:   "unknown",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = d.RateLimitMax
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = d.RateLimitWindow
	}
	if c.FormCacheTTL <= 0 {
		c.FormCacheTTL = d.FormCacheTTL
	}
	if c.AnalyticsTTL <= 0 {
		c.AnalyticsTTL = d.AnalyticsTTL
	}
	if c.BatchMaxSize <= 0 {
		c.BatchMaxSize = d.BatchMaxSize
	}
	if c.BatchMaxWait <= 0 {
		c.BatchMaxWait = d.BatchMaxWait
	}
	if c.QueueName == "" {
		c.QueueName = d.QueueName
	}
	if c.GateThreshold <= 0 {
		c.GateThreshold = d.GateThreshold
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.InactiveAfter <= 0 {
		c.InactiveAfter = d.InactiveAfter
	}
	if c.ClientContext == "" {
		c.ClientContext = d.ClientContext
	}
	return c
}

// StoreOpener obtém o meio de armazenamento. Chamado por Init.
type StoreOpener func(ctx context.Context) (domain.TTLStore, error)

// Facade é o único ponto de entrada do intake para colaboradores externos.
//
// Ciclo de vida explícito: Init abre o store, Disconnect descarrega o batcher e
// fecha o store. Nenhuma operação devolve erro: falhas são logadas e degradam
// para um default seguro (rate limit libera, tracking vira no-op).
type Facade struct {
	open  StoreOpener
	cfg   Config
	log   *zap.Logger
	stats domain.StatsStore
	now   func() time.Time

	mu    sync.RWMutex
	parts *facadeParts
}

type facadeParts struct {
	store   domain.TTLStore
	limiter SlidingWindow
	gate    ActivityGate
	batcher *Batcher
	queue   SubmissionQueue
}

type FacadeOption func(*Facade)

func WithLogger(l *zap.Logger) FacadeOption {
	return func(f *Facade) { f.log = l }
}

// WithStats registra cada decisão em s (best-effort).
func WithStats(s domain.StatsStore) FacadeOption {
	return func(f *Facade) { f.stats = s }
}

func WithClock(now func() time.Time) FacadeOption {
	return func(f *Facade) { f.now = now }
}

func NewFacade(open StoreOpener, cfg Config, opts ...FacadeOption) *Facade {
	f := &Facade{
		open: open,
		cfg:  cfg.withDefaults(),
		log:  zap.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facade) Config() Config { return f.cfg }

// Init abre o store e monta os componentes. Idempotente: retorna true se já
// estiver pronta. Retorna false se o meio não pôde ser aberto.
func (f *Facade) Init(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.parts != nil {
		return true
	}
	if f.open == nil {
		f.log.Error("intake store: no opener configured")
		return false
	}

	store, err := f.open(ctx)
	if err != nil || store == nil {
		f.log.Error("intake store: failed to initialize", zap.Error(err))
		return false
	}

	limiter := SlidingWindow{
		Store:  store,
		Window: f.cfg.RateLimitWindow,
		Max:    f.cfg.RateLimitMax,
		Now:    f.now,
		Locks:  NewKeyLocks(0),
	}
	gate := ActivityGate{
		Store:      store,
		Threshold:  f.cfg.GateThreshold,
		SessionTTL: f.cfg.SessionTTL,
	}
	batcher := NewBatcher(store, f.cfg.AnalyticsTTL,
		WithBatchMaxSize(f.cfg.BatchMaxSize),
		WithBatchMaxWait(f.cfg.BatchMaxWait),
		WithClientContext(f.cfg.ClientContext),
		WithBatcherClock(f.now),
		WithBatcherLogger(f.log),
	)
	queue := SubmissionQueue{Store: store, Name: f.cfg.QueueName, Now: f.now}

	f.parts = &facadeParts{
		store:   store,
		limiter: limiter,
		gate:    gate,
		batcher: batcher,
		queue:   queue,
	}
	f.log.Info("intake store ready")
	return true
}

func (f *Facade) IsReady() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.parts != nil
}

func (f *Facade) current() *facadeParts {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.parts
}

func (f *Facade) bypass() domain.Decision {
	return domain.Decision{Allowed: true, Remaining: f.cfg.RateLimitMax}
}

// CheckRateLimit passa pelo gate de atividade e, se aberto, pelo limiter.
// Em qualquer falha a requisição é liberada (fail open).
func (f *Facade) CheckRateLimit(ctx context.Context, id domain.Key) domain.Decision {
	p := f.current()
	if p == nil {
		return f.bypass()
	}

	open, err := p.gate.Open(ctx)
	if err != nil {
		f.log.Warn("activity gate check failed", zap.Error(err))
		return f.bypass()
	}
	if !open {
		dec := f.bypass()
		f.record(ctx, id, dec, false)
		return dec
	}

	dec, err := p.limiter.Check(ctx, id)
	if err != nil {
		f.log.Error("rate limit check failed", zap.String("id", string(id)), zap.Error(err))
		return f.bypass()
	}
	f.record(ctx, id, dec, true)
	return dec
}

func (f *Facade) record(ctx context.Context, id domain.Key, dec domain.Decision, gated bool) {
	if f.stats == nil {
		return
	}
	err := f.stats.Record(ctx, domain.StatsEvent{Key: id, Allowed: dec.Allowed, Gated: gated, At: f.now()})
	if err != nil {
		f.log.Debug("rate limit stats record failed", zap.Error(err))
	}
}

// TrackEvent entrega o evento ao batcher. Fire-and-forget.
func (f *Facade) TrackEvent(ctx context.Context, name string, data map[string]any) {
	p := f.current()
	if p == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	if err := p.batcher.Add(ctx, name, data); err != nil {
		f.log.Error("analytics tracking failed", zap.String("event", name), zap.Error(err))
	}
}

// QueueSubmission empilha o envio e registra form_queued.
// Retorna ok=false quando a fila não está disponível; o chamador processa direto.
func (f *Facade) QueueSubmission(ctx context.Context, data map[string]any) (string, bool) {
	p := f.current()
	if p == nil {
		f.log.Warn("submission queue unavailable, processing immediately")
		return "", false
	}

	id, err := p.queue.Enqueue(ctx, data)
	if err != nil {
		f.log.Error("failed to queue form submission", zap.Error(err))
		return "", false
	}
	f.TrackEvent(ctx, "form_queued", map[string]any{"queueId": id})
	return id, true
}

// CacheFormState guarda o rascunho do formulário da sessão por FormCacheTTL.
func (f *Facade) CacheFormState(ctx context.Context, session string, state map[string]any) bool {
	p := f.current()
	if p == nil {
		return false
	}

	raw, err := json.Marshal(state)
	if err != nil {
		f.log.Warn("form state encode failed", zap.Error(err))
		return false
	}
	if err := p.store.Set(ctx, domain.FormCacheKey(session), string(raw), f.cfg.FormCacheTTL); err != nil {
		f.log.Error("form state cache failed", zap.String("session", session), zap.Error(err))
		return false
	}
	return true
}

// LoadFormState lê o rascunho. Valor inválido conta como ausente.
func (f *Facade) LoadFormState(ctx context.Context, session string) (map[string]any, bool) {
	p := f.current()
	if p == nil {
		return nil, false
	}

	raw, ok, err := p.store.Get(ctx, domain.FormCacheKey(session))
	if err != nil {
		f.log.Error("form state load failed", zap.String("session", session), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var state map[string]any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, false
	}
	return state, true
}

// Cleanup remove janelas de rate limit sem admissões há mais de InactiveAfter
// e força o flush do batcher. Retorna quantas janelas foram removidas.
// Feito para ser chamado periodicamente por um agendador externo.
func (f *Facade) Cleanup(ctx context.Context) int {
	p := f.current()
	if p == nil {
		return 0
	}

	removed := 0
	keys, err := p.store.KeysMatching(ctx, domain.RateLimitPrefix+"*")
	if err != nil {
		f.log.Warn("intake cleanup: key scan failed", zap.Error(err))
	}

	cutoff := f.now().Add(-f.cfg.InactiveAfter).UnixMilli()
	for _, key := range keys {
		raw, ok, err := p.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var rec domain.RateWindow
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if rec.WindowStart < cutoff {
			if err := p.store.Delete(ctx, key); err != nil {
				f.log.Warn("intake cleanup: delete failed", zap.String("key", key), zap.Error(err))
				continue
			}
			removed++
		}
	}

	if err := p.batcher.Flush(ctx); err != nil {
		f.log.Error("analytics batch flush failed", zap.Error(err))
	}

	f.log.Info("intake cleanup completed", zap.Int("removed", removed))
	return removed
}

// Disconnect descarrega o batcher e fecha o store. Depois disso todas as
// operações degradam como se Init tivesse falhado.
func (f *Facade) Disconnect(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.parts
	if p == nil {
		return
	}
	f.parts = nil

	if err := p.batcher.Flush(ctx); err != nil {
		f.log.Error("analytics batch flush failed on disconnect", zap.Int("pending", p.batcher.Pending()), zap.Error(err))
	}
	if err := p.store.Close(); err != nil {
		f.log.Warn("intake store close failed", zap.Error(err))
	}
	f.log.Info("intake store disconnected")
}
