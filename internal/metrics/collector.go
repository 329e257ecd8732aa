// Package metrics provides internal Prometheus metrics collection for
// the room orchestration core. This package is internal and should not
// be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"botroom/types"
)

// Collector holds the orchestration metrics. All record methods are
// nil-safe so the orchestrator can run without metrics in tests.
type Collector struct {
	roundsTotal   *prometheus.CounterVec
	roundDuration *prometheus.HistogramVec
	repliesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	noticesTotal  prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered on reg.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.roundsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Total number of orchestration rounds started",
		},
		[]string{"kind"},
	)

	c.roundDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Wall time from round start until all issued calls settled",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"kind"},
	)

	c.repliesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_replies_total",
			Help:      "Total number of successful bot replies appended",
		},
		[]string{"provider"},
	)

	c.errorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_errors_total",
			Help:      "Total number of failed bot calls by error code",
		},
		[]string{"provider", "code"},
	)

	c.noticesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "system_notices_total",
			Help:      "Total number of system notices appended to the feed",
		},
	)

	return c
}

// RoundStarted records the start of an orchestration round.
func (c *Collector) RoundStarted(kind string) {
	if c == nil {
		return
	}
	c.roundsTotal.WithLabelValues(kind).Inc()
}

// RoundSettled records a round whose issued calls have all completed.
func (c *Collector) RoundSettled(kind string, d time.Duration) {
	if c == nil {
		return
	}
	c.roundDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// BotReply records one successful bot reply.
func (c *Collector) BotReply(provider string) {
	if c == nil {
		return
	}
	c.repliesTotal.WithLabelValues(provider).Inc()
}

// BotError records one failed bot call.
func (c *Collector) BotError(provider string, code types.ErrorCode) {
	if c == nil {
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	c.errorsTotal.WithLabelValues(provider, string(code)).Inc()
}

// SystemNotice records one system notice shown to the user.
func (c *Collector) SystemNotice() {
	if c == nil {
		return
	}
	c.noticesTotal.Inc()
}
