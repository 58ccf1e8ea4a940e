package infra

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"refund-intake/intake/domain"
)

// MemoryStore é um domain.TTLStore em memória, com expiração preguiçosa
// (na leitura) e limpeza periódica opcional via StartJanitor.
//
// Serve para um único processo; nada sobrevive a um restart.
type MemoryStore struct {
	mu           sync.Mutex
	entries      map[string]memoryEntry
	now          func() time.Time
	cleanupEvery time.Duration
	closed       bool
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = sem expiração
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type MemoryOption func(*MemoryStore)

// WithClock troca a fonte de tempo (útil em testes).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:      make(map[string]memoryEntry),
		now:          time.Now,
		cleanupEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// lookup deve ser chamado com mu travado.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	ent, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if ent.expired(s.now()) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return ent, true
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, domain.ErrUnavailable
	}

	ent, ok := s.lookup(key)
	return ent.value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrUnavailable
	}

	s.entries[key] = memoryEntry{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *MemoryStore) Append(_ context.Context, key, item string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrUnavailable
	}

	ent, _ := s.lookup(key)
	raw, n, err := prependList(ent.value, item)
	if err != nil {
		return 0, err
	}
	s.entries[key] = memoryEntry{value: raw, expiresAt: ent.expiresAt}
	return n, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrUnavailable
	}

	ent, ok := s.lookup(key)
	if !ok {
		return false, nil
	}
	ent.expiresAt = s.expiry(ttl)
	s.entries[key] = ent
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrUnavailable
	}

	delete(s.entries, key)
	return nil
}

// KeysMatching retorna as chaves vivas que casam com pattern, em ordem.
func (s *MemoryStore) KeysMatching(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrUnavailable
	}

	now := s.now()
	var out []string
	for k, ent := range s.entries {
		if ent.expired(now) {
			continue
		}
		if matchGlob(pattern, k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Incr implementa domain.Counter. Valor não numérico é tratado como 0.
func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrUnavailable
	}

	ent, _ := s.lookup(key)
	n, err := strconv.ParseInt(ent.value, 10, 64)
	if err != nil {
		n = 0
	}
	n++
	s.entries[key] = memoryEntry{value: strconv.FormatInt(n, 10), expiresAt: s.expiry(ttl)}
	return n, nil
}

// Len conta entradas físicas, inclusive expiradas ainda não removidas.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove fisicamente as entradas expiradas.
func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.expired(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que remove entradas expiradas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = make(map[string]memoryEntry)
	return nil
}
