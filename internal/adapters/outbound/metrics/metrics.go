package metrics

import (
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iacscan_scans_total",
		Help: "Counter tracking finished scans by verdict",
	}, []string{"verdict"})

	checkOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iacscan_check_outcomes_total",
		Help: "Counter tracking check outcomes by check and status",
	}, []string{"check", "status"})

	checkDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iacscan_check_duration_seconds",
		Help:    "Histogram tracking check invocation durations in seconds",
		Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"check"})

	checkTimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iacscan_check_timeouts_total",
		Help: "Counter tracking check invocations that hit the timeout",
	}, []string{"check"})

	resultsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iacscan_results_swept_total",
		Help: "Counter tracking scan results deleted by the retention sweeper",
	})
)

func init() {
	prometheus.MustRegister(
		scansTotal,
		checkOutcomesTotal,
		checkDuration,
		checkTimeoutsTotal,
		resultsSweptTotal,
	)
}

// Observer implements domain.ScanObserver on the default prometheus registry.
type Observer struct{}

func NewObserver() *Observer { return &Observer{} }

func (Observer) ScanFinished(result *domain.ScanResult) {
	scansTotal.WithLabelValues(string(result.Verdict)).Inc()
}

func (Observer) CheckFinished(check string, status domain.Status, out domain.CheckOutput) {
	checkOutcomesTotal.WithLabelValues(check, string(status)).Inc()
	if out.Duration > 0 {
		checkDuration.WithLabelValues(check).Observe(out.Duration.Seconds())
	}
	if out.TimedOut {
		checkTimeoutsTotal.WithLabelValues(check).Inc()
	}
}

func (Observer) ResultsSwept(n int) {
	resultsSweptTotal.Add(float64(n))
}
