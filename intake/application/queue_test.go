package application

import (
	"context"
	"encoding/json"
	"testing"

	"refund-intake/intake/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionQueue_Enqueue(t *testing.T) {
	clk := newFakeClock()
	store := newFlakyStore(clk)
	q := SubmissionQueue{Store: store, Now: clk.Now, NewID: func() string { return "fixed-id" }}

	id, err := q.Enqueue(context.Background(), map[string]any{"iban": "DE00"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	raw, ok, _ := store.Get(context.Background(), DefaultQueueName)
	require.True(t, ok)

	var list []string
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list, 1)

	var item domain.QueueItem
	require.NoError(t, json.Unmarshal([]byte(list[0]), &item))
	assert.Equal(t, domain.QueueStatusPending, item.Status)
	assert.Equal(t, clk.Now().UnixMilli(), item.Timestamp)
	assert.Equal(t, "DE00", item.Data["iban"])
}

func TestSubmissionQueue_GeneratesUniqueIDs(t *testing.T) {
	clk := newFakeClock()
	q := SubmissionQueue{Store: newFlakyStore(clk), Name: "custom"}

	a, err := q.Enqueue(context.Background(), nil)
	require.NoError(t, err)
	b, err := q.Enqueue(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSubmissionQueue_AppendFailure(t *testing.T) {
	clk := newFakeClock()
	store := newFlakyStore(clk)
	store.set(func(s *flakyStore) { s.failAppend = true })

	_, err := SubmissionQueue{Store: store}.Enqueue(context.Background(), nil)
	assert.ErrorIs(t, err, errBoom)
}
