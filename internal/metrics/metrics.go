// Package metrics регистрирует метрики Prometheus слоя сессии портала.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Источники ответа кеша профиля.
const (
	SourceNetwork = "network"
	SourceCache   = "cache"
)

// Metrics набор метрик транспорта, кеша профиля и представлений.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	ProfileFetches  *prometheus.CounterVec
	Redirects       *prometheus.CounterVec
}

// New создаёт метрики и регистрирует их в reg. Если reg равен nil, метрики не регистрируются.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend requests by path and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "status"}),
		ProfileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "profile_fetch_total",
			Help:      "Profile fetch answers by source.",
		}, []string{"source"}),
		Redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "session_redirect_total",
			Help:      "Redirects to the login view caused by unauthorized responses.",
		}, []string{"view"}),
	}
	if reg != nil {
		reg.MustRegister(m.RequestDuration, m.ProfileFetches, m.Redirects)
	}
	return m
}

// Nop возвращает незарегистрированные метрики для тестов и встраивания.
func Nop() *Metrics {
	return New(nil)
}
