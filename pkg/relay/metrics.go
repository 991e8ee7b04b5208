// Copyright 2024-2026 Aiku AI

package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	messages        prometheus.Counter
	conversions     *prometheus.CounterVec
	deletions       *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	repostDuration  prometheus.Summary
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixupx_relay",
			Name:      "messages_total",
			Help:      "Messages handed to the pipeline",
		}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fixupx_relay",
			Name:      "conversions_total",
			Help:      "Links reposted in normalized form, by matched host",
		}, []string{"host"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fixupx_relay",
			Name:      "delete_requests_total",
			Help:      "Delete commands by outcome",
		}, []string{"outcome"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fixupx_relay",
			Name:      "transport_errors_total",
			Help:      "Failed transport calls by operation",
		}, []string{"op"}),
		repostDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "fixupx_relay",
			Name:      "repost_duration_seconds",
			Help:      "Time from receiving a message to finishing its repost",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.messages, m.conversions, m.deletions, m.transportErrors, m.repostDuration)
	}
	return m
}
