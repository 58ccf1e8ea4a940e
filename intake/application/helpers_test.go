package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"refund-intake/intake/domain"
	"refund-intake/intake/infra"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// flakyStore embrulha um TTLStore (escondendo domain.Counter) e injeta falhas.
type flakyStore struct {
	domain.TTLStore

	mu         sync.Mutex
	failGet    bool
	failSet    bool
	failAppend bool
	failExpire bool
	appends    []string
}

func newFlakyStore(clk *fakeClock) *flakyStore {
	return &flakyStore{TTLStore: infra.NewMemoryStore(infra.WithClock(clk.Now))}
}

func (s *flakyStore) set(fn func(s *flakyStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return "", false, errBoom
	}
	return s.TTLStore.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errBoom
	}
	return s.TTLStore.Set(ctx, key, value, ttl)
}

func (s *flakyStore) Append(ctx context.Context, key, item string) (int, error) {
	s.mu.Lock()
	fail := s.failAppend
	if !fail {
		s.appends = append(s.appends, item)
	}
	s.mu.Unlock()
	if fail {
		return 0, errBoom
	}
	return s.TTLStore.Append(ctx, key, item)
}

func (s *flakyStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	fail := s.failExpire
	s.mu.Unlock()
	if fail {
		return false, errBoom
	}
	return s.TTLStore.Expire(ctx, key, ttl)
}

func (s *flakyStore) appended() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.appends...)
}
