package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/mezonai/cubix/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TxRejectedReason string

var (
	TxQueueFull       TxRejectedReason = "queue_full"
	TxMalformed       TxRejectedReason = "malformed"
	TxRateLimited     TxRejectedReason = "rate_limited"
	TxPersistFailed   TxRejectedReason = "persist_failed"
	TxRejectedUnknown TxRejectedReason = "other"
)

type enginePromMetrics struct {
	engineUpUnixSeconds prometheus.Gauge
	acceptedTxCount     prometheus.Counter
	rejectedTxCount     *prometheus.CounterVec
	faceCompletions     *prometheus.CounterVec
	cubeCompletions     *prometheus.CounterVec
	levelCount          prometheus.Gauge
	queueSize           prometheus.Gauge
	persistDuration     prometheus.Histogram
	snapshotSizeBytes   prometheus.Histogram
	panicCount          prometheus.Counter
}

func newEnginePromMetrics(reg prometheus.Registerer) *enginePromMetrics {
	factory := promauto.With(reg)
	return &enginePromMetrics{
		engineUpUnixSeconds: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cubix_engine_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the engine start",
			},
		),
		acceptedTxCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cubix_engine_accepted_tx_count",
				Help: "The total number of transactions committed into level 0",
			},
		),
		rejectedTxCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubix_engine_rejected_tx_count",
				Help: "The total number of rejected transactions",
			},
			[]string{"reason"},
		),
		faceCompletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubix_engine_face_completions",
				Help: "Faces completed and promoted, per level",
			},
			[]string{"level"},
		),
		cubeCompletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cubix_engine_cube_completions",
				Help: "Cubes completed and promoted to the next level, per level",
			},
			[]string{"level"},
		),
		levelCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cubix_engine_level_count",
				Help: "Number of aggregation levels currently materialized",
			},
		),
		queueSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cubix_engine_queue_size",
				Help: "Transactions waiting for the single writer",
			},
		),
		persistDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name: "cubix_engine_persist_duration_seconds",
				Help: "Latency of committing the full stack snapshot",
			},
		),
		snapshotSizeBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cubix_engine_snapshot_size_bytes",
				Help:    "Size of the serialized stack snapshot",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		panicCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cubix_engine_panic_count",
				Help: "Panics recovered in background goroutines",
			},
		),
	}
}

var (
	initOnce      sync.Once
	engineMetrics *enginePromMetrics
)

// InitMetrics registers the engine metrics with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		engineMetrics = newEnginePromMetrics(prometheus.DefaultRegisterer)
		engineMetrics.engineUpUnixSeconds.SetToCurrentTime()
	})
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

// Recorders below are no-ops until InitMetrics has run.

func IncreaseAcceptedTxCount() {
	if engineMetrics == nil {
		return
	}
	engineMetrics.acceptedTxCount.Inc()
}

func RecordRejectedTx(reason TxRejectedReason) {
	if engineMetrics == nil {
		return
	}
	engineMetrics.rejectedTxCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func IncreaseFaceCompletions(level string) {
	if engineMetrics == nil {
		return
	}
	engineMetrics.faceCompletions.With(prometheus.Labels{"level": level}).Inc()
}

func IncreaseCubeCompletions(level string) {
	if engineMetrics == nil {
		return
	}
	engineMetrics.cubeCompletions.With(prometheus.Labels{"level": level}).Inc()
}

func SetLevelCount(levels int) {
	if engineMetrics == nil {
		return
	}
	engineMetrics.levelCount.Set(float64(levels))
}

func SetQueueSize(size int) {
	if engineMetrics == nil {
		return
	}
	engineMetrics.queueSize.Set(float64(size))
}

func RecordPersistDuration(duration time.Duration) {
	if engineMetrics == nil {
		return
	}
	engineMetrics.persistDuration.Observe(duration.Seconds())
}

func RecordSnapshotSizeBytes(sizeBytes int) {
	if engineMetrics == nil {
		return
	}
	engineMetrics.snapshotSizeBytes.Observe(float64(sizeBytes))
}

func IncreasePanicCount() {
	if engineMetrics == nil {
		return
	}
	engineMetrics.panicCount.Inc()
}
