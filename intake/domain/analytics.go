package domain

// AnalyticsEvent existe apenas no buffer do batcher até o flush.
type AnalyticsEvent struct {
	Timestamp     int64          `json:"timestamp"`
	Event         string         `json:"event"`
	Data          map[string]any `json:"data"`
	ClientContext string         `json:"userAgent"`
}

// AnalyticsBatch é o registro agregado gravado em analytics_batch:<data>.
type AnalyticsBatch struct {
	BatchID int64            `json:"batchId"`
	Events  []AnalyticsEvent `json:"events"`
}

// QueueItem é um envio de formulário aguardando processamento downstream.
type QueueItem struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Status    string         `json:"status"`
}

const QueueStatusPending = "pending"
