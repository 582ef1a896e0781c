// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// WithMetrics records per-call counters and latencies on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(g *Gateway) {
		factory := promauto.With(reg)
		g.metrics = &metrics{
			requests: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "usermgr_gateway_requests_total",
				Help: "Gateway calls by method and outcome kind.",
			}, []string{"method", "kind"}),
			duration: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "usermgr_gateway_request_duration_seconds",
				Help:    "Round-trip time of calls that reached the network.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
		}
	}
}

func (g *Gateway) observe(method string, kind Kind, elapsed time.Duration) {
	if g.metrics == nil {
		return
	}
	g.metrics.requests.WithLabelValues(method, kind.String()).Inc()
	if elapsed > 0 {
		g.metrics.duration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}
