package infra

import (
	"context"

	"refund-intake/intake/domain"

	"golang.org/x/sync/semaphore"
)

type slotPool struct {
	sem *semaphore.Weighted
}

// NewSlotPool cria um domain.SlotPool com capacidade `max` sobre um semáforo ponderado.
func NewSlotPool(max int) domain.SlotPool {
	return &slotPool{sem: semaphore.NewWeighted(int64(max))}
}

func (p *slotPool) Acquire(ctx context.Context) (func(), bool) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	return func() { p.sem.Release(1) }, true
}
