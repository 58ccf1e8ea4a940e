package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do rate limit.
//
// Gated indica se o limiter de fato rodou (gate de atividade aberto).
// Cuidado com cardinalidade: Key por sessão pode explodir o número de séries.
type StatsEvent struct {
	Key     Key
	Allowed bool
	Gated   bool

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// O chamador trata erro como best-effort (não derruba o envio do formulário).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
