// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryStore, RedisStore, BadgerStore: domain.TTLStore em memória, Redis e Badger
//   - BurstGuard: token bucket por chave usando golang.org/x/time/rate
//   - SlotPool: semáforo para limite de concorrência (golang.org/x/sync/semaphore)
//   - *StatsStore: estatísticas das decisões (memória, Redis, Prometheus)
package infra
