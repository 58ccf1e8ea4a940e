package infra

import (
	"context"

	"refund-intake/intake/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe as decisões como contador por resultado
// (allowed, denied, bypassed). Não usa o identificador como label.
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer) *PrometheusStatsStore {
	s := &PrometheusStatsStore{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refund_intake_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(s.decisions)
	}
	return s
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(statsField(ev)).Inc()
	return nil
}

// Decisions expõe o vetor para inspeção em testes.
func (s *PrometheusStatsStore) Decisions() *prometheus.CounterVec { return s.decisions }
