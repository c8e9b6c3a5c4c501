package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	ledgerOpCounter       *prometheus.CounterVec
	ledgerDriftCounter    prometheus.Counter
	idempotencyCounter    *prometheus.CounterVec
	platformOnlineGauge   prometheus.Gauge
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		ledgerOpCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operation outcomes by transaction type",
		}, []string{"type", "result"})

		ledgerDriftCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_balance_drift_total",
			Help: "Accounts whose stored balance diverged from the transaction log",
		})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		platformOnlineGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "platform_server_online",
			Help: "Whether the trading platform collaborator reports online (1) or not (0)",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			ledgerOpCounter,
			ledgerDriftCounter,
			idempotencyCounter,
			platformOnlineGauge,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementLedgerOperation(txType, result string) {
	if ledgerOpCounter == nil {
		return
	}
	ledgerOpCounter.WithLabelValues(txType, result).Inc()
}

func IncrementLedgerDrift() {
	if ledgerDriftCounter == nil {
		return
	}
	ledgerDriftCounter.Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetPlatformOnline(online bool) {
	if platformOnlineGauge == nil {
		return
	}
	if online {
		platformOnlineGauge.Set(1)
	} else {
		platformOnlineGauge.Set(0)
	}
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
