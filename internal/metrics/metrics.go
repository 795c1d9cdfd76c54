package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultNoop  = "noop"
)

var (
	// mutations counts comment mutations.
	// Labels: op (create, reply, delete, like, unlike, report, rename), result (ok, error, noop)
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replytree",
		Subsystem: "comments",
		Name:      "mutations_total",
		Help:      "Total comment mutations by operation and result",
	}, []string{"op", "result"})

	// requestDuration measures HTTP handling time.
	// Labels: method, route (chi route pattern), status
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "replytree",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route", "status"})
)

func Mutation(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	mutations.WithLabelValues(op, result).Inc()
}

// Noop counts an accepted request that left the data as it was, such as a
// repeated like.
func Noop(op string) {
	mutations.WithLabelValues(op, ResultNoop).Inc()
}

func Request(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
