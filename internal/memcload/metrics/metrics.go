package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type (
	RecordError string
	WriteResult string
	ShardStatus string
)

const (
	RecordErrorParse         RecordError = "parse"
	RecordErrorUnknownDevice RecordError = "unknown_device"
	WriteResultSent          WriteResult = "sent"
	WriteResultLost          WriteResult = "lost"
	WriteResultSkipped       WriteResult = "skipped"
	ShardStatusClaimed       ShardStatus = "claimed"
	ShardStatusFailed        ShardStatus = "failed"
)

const MemcLoadMetricsPrefix = "memcload_"

type Metrics struct {
	linesRead          prometheus.Counter
	chunksRead         prometheus.Counter
	shards             *prometheus.CounterVec
	recordsProcessed   *prometheus.CounterVec
	recordErrors       *prometheus.CounterVec
	ingestionQueueSize prometheus.Gauge
	throttleClosed     prometheus.Counter
	cacheWrites        *prometheus.CounterVec
	cacheWriteLatency  *prometheus.HistogramVec
}

var m = NewMetrics(MemcLoadMetricsPrefix)

// Get returns the process wide metrics
func Get() *Metrics {
	return m
}

func NewMetrics(prefix string) *Metrics {
	return &Metrics{
		linesRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "lines_read",
			Help: "Number of raw lines read from shards",
		}),
		chunksRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "chunks_read",
			Help: "Number of chunks pushed onto the ingestion queue",
		}),
		shards: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "shards",
			Help: "Number of shards finished grouped by status",
		}, []string{"status"}),
		recordsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "records_processed",
			Help: "Number of records routed to a partition",
		}, []string{"partition"}),
		recordErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "record_errors",
			Help: "Number of rejected records grouped by error type",
		}, []string{"error"}),
		ingestionQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "ingestion_queue_size",
			Help: "Number of chunks waiting on the ingestion queue",
		}),
		throttleClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "throttle_closed",
			Help: "Number of times readers were throttled because the ingestion queue was too deep",
		}),
		cacheWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "cache_writes",
			Help: "Number of keys written to caches grouped by partition and result",
		}, []string{"partition", "result"}),
		cacheWriteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "cache_write_latency_seconds",
			Help:    "Time taken to write one batch to a cache",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"partition"}),
	}
}

func (m *Metrics) RecordChunkRead(lines int) {
	m.chunksRead.Inc()
	m.linesRead.Add(float64(lines))
}

func (m *Metrics) RecordShard(status ShardStatus) {
	m.shards.With(map[string]string{"status": string(status)}).Inc()
}

func (m *Metrics) RecordProcessed(partition string) {
	m.recordsProcessed.With(map[string]string{"partition": partition}).Inc()
}

func (m *Metrics) RecordError(err RecordError) {
	m.recordErrors.With(map[string]string{"error": string(err)}).Inc()
}

func (m *Metrics) RecordQueueSize(size int) {
	m.ingestionQueueSize.Set(float64(size))
}

func (m *Metrics) RecordThrottleClosed() {
	m.throttleClosed.Inc()
}

func (m *Metrics) RecordCacheWrite(partition string, result WriteResult, keys int) {
	if keys == 0 {
		return
	}
	m.cacheWrites.With(map[string]string{"partition": partition, "result": string(result)}).Add(float64(keys))
}

func (m *Metrics) RecordCacheWriteLatency(partition string, taken time.Duration) {
	m.cacheWriteLatency.With(map[string]string{"partition": partition}).Observe(taken.Seconds())
}
