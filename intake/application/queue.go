package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"refund-intake/intake/domain"

	"github.com/google/uuid"
)

const DefaultQueueName = "refund_forms"

// SubmissionQueue empilha envios de formulário em uma lista do store para
// processamento downstream.
type SubmissionQueue struct {
	Store domain.TTLStore
	Name  string
	Now   func() time.Time
	NewID func() string
}

// Enqueue grava o item como pendente e retorna o id gerado.
func (q SubmissionQueue) Enqueue(ctx context.Context, data map[string]any) (string, error) {
	now := time.Now
	if q.Now != nil {
		now = q.Now
	}
	newID := uuid.NewString
	if q.NewID != nil {
		newID = q.NewID
	}
	name := q.Name
	if name == "" {
		name = DefaultQueueName
	}

	item := domain.QueueItem{
		ID:        newID(),
		Timestamp: now().UnixMilli(),
		Data:      data,
		Status:    domain.QueueStatusPending,
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("encode queue item: %w", err)
	}
	if _, err := q.Store.Append(ctx, name, string(raw)); err != nil {
		return "", fmt.Errorf("enqueue submission: %w", err)
	}
	return item.ID, nil
}
