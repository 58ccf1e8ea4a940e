package domain

import "time"

// Convenção de nomes das chaves no store.
const (
	RateLimitPrefix      = "rate_limit:"
	ActiveSessionsKey    = "active_sessions_count"
	AnalyticsBatchPrefix = "analytics_batch:"
	FormCachePrefix      = "form_cache:"
)

func RateLimitKey(id Key) string { return RateLimitPrefix + string(id) }

// AnalyticsBatchKey agrupa os lotes por dia (UTC), ex.: analytics_batch:2024-05-01.
func AnalyticsBatchKey(t time.Time) string {
	return AnalyticsBatchPrefix + t.UTC().Format("2006-01-02")
}

func FormCacheKey(session string) string { return FormCachePrefix + session }
