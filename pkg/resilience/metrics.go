package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	upstreamBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roundup_upstream_breaker_state",
		Help: "Breaker state per upstream (0=closed, 1=half-open, 2=open)",
	}, []string{"upstream"})

	upstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roundup_upstream_calls_total",
		Help: "Upstream calls routed through a breaker, by result",
	}, []string{"upstream", "result"})

	upstreamBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roundup_upstream_breaker_transitions_total",
		Help: "Breaker state transitions per upstream",
	}, []string{"upstream", "from", "to"})

	anonymousBreakers uint64
)

const (
	callOK       = "ok"
	callFailed   = "failed"
	callRejected = "rejected"
)

// breakerMetrics holds the series of one upstream so Execute does no label lookups.
type breakerMetrics struct {
	upstream    string
	state       prometheus.Gauge
	ok          prometheus.Counter
	failed      prometheus.Counter
	rejected    prometheus.Counter
	transitions *prometheus.CounterVec
}

func newBreakerMetrics(upstream string) breakerMetrics {
	calls := upstreamCalls.MustCurryWith(prometheus.Labels{"upstream": upstream})
	return breakerMetrics{
		upstream:    upstream,
		state:       upstreamBreakerState.WithLabelValues(upstream),
		ok:          calls.WithLabelValues(callOK),
		failed:      calls.WithLabelValues(callFailed),
		rejected:    calls.WithLabelValues(callRejected),
		transitions: upstreamBreakerTransitions.MustCurryWith(prometheus.Labels{"upstream": upstream}),
	}
}

func (m breakerMetrics) transition(from, to gobreaker.State) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.state.Set(stateValue(to))
}

// upstreamName falls back to a generated name so unnamed breakers get distinct series.
func upstreamName(name string) string {
	if name != "" {
		return name
	}
	return "upstream-" + strconv.FormatUint(atomic.AddUint64(&anonymousBreakers, 1), 10)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
