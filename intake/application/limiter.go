package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"refund-intake/intake/domain"
)

// SlidingWindow admite no máximo Max requisições por identificador em qualquer
// intervalo de Window terminando em "agora". O estado vive inteiro no Store
// (rate_limit:<id>); Locks serializa o ler-filtrar-gravar de um mesmo
// identificador dentro do processo. Sem Locks, chamadas concorrentes para o
// mesmo id podem admitir mais que Max.
type SlidingWindow struct {
	Store  domain.TTLStore
	Window time.Duration
	Max    int
	Now    func() time.Time
	Locks  *KeyLocks
}

func (l SlidingWindow) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

// load lê o registro; valor inválido é tratado como ausente.
func (l SlidingWindow) load(ctx context.Context, key string) (domain.RateWindow, error) {
	raw, ok, err := l.Store.Get(ctx, key)
	if err != nil {
		return domain.RateWindow{}, err
	}
	var rec domain.RateWindow
	if !ok {
		return rec, nil
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.RateWindow{}, nil
	}
	return rec, nil
}

// Check decide e, se admitir, registra a requisição.
// Erros do store são devolvidos; quem chama decide como degradar.
func (l SlidingWindow) Check(ctx context.Context, id domain.Key) (domain.Decision, error) {
	key := domain.RateLimitKey(id)
	if l.Locks != nil {
		defer l.Locks.Lock(key)()
	}

	now := l.now()
	nowMs := now.UnixMilli()
	windowMs := l.Window.Milliseconds()
	windowStart := nowMs - windowMs

	rec, err := l.load(ctx, key)
	if err != nil {
		return domain.Decision{}, err
	}

	// janela semiaberta: o instante exato de windowStart já saiu.
	kept := rec.Requests[:0]
	for _, ts := range rec.Requests {
		if ts > windowStart {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.Max {
		oldest := kept[0]
		for _, ts := range kept[1:] {
			if ts < oldest {
				oldest = ts
			}
		}
		return domain.Decision{
			Allowed:   false,
			Remaining: 0,
			ResetTime: time.UnixMilli(oldest + windowMs),
		}, nil
	}

	rec.Requests = append(kept, nowMs)
	rec.WindowStart = nowMs

	raw, err := json.Marshal(rec)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("encode rate window: %w", err)
	}
	if err := l.Store.Set(ctx, key, string(raw), l.Window); err != nil {
		return domain.Decision{}, err
	}

	return domain.Decision{
		Allowed:   true,
		Remaining: l.Max - len(rec.Requests),
		ResetTime: time.UnixMilli(nowMs + windowMs),
	}, nil
}
