package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type APIMetrics struct {
	requests *prometheus.CounterVec
}

func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	return &APIMetrics{
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "dripmate_api_requests_total",
			Help: "Backend calls made by the client, by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

func (m *APIMetrics) observe(operation string, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
}
