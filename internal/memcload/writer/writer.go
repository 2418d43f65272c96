package writer

import (
	"context"

	"github.com/sanity-io/litter"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/G-Research/memcload/internal/memcload/convert"
	"github.com/G-Research/memcload/internal/memcload/metrics"
	"github.com/G-Research/memcload/internal/memcload/model"
	"github.com/G-Research/memcload/internal/memcload/store"
)

// Report summarises what a CacheWriter did with the batches it received
type Report struct {
	Partition string
	Address   string
	// Keys acknowledged by the cache
	Sent int
	// Keys that could not be written, even after retrying
	Lost int
	// Keys that were only logged because of dry run
	Skipped int
}

// CacheWriter drains the queue of a single partition and bulk writes every batch to its cache.
// It owns the store and closes it once the queue has been closed and drained.
type CacheWriter struct {
	partition string
	input     <-chan model.Batch
	store     store.CacheStore
	dry       bool
	metrics   *metrics.Metrics
	clock     clock.Clock
}

func New(partition string, input <-chan model.Batch, cacheStore store.CacheStore, dry bool, m *metrics.Metrics) *CacheWriter {
	return &CacheWriter{
		partition: partition,
		input:     input,
		store:     cacheStore,
		dry:       dry,
		metrics:   m,
		clock:     clock.RealClock{},
	}
}

// Run writes batches until the input channel is closed.  Write failures never stop the writer; they
// are counted as lost keys.
func (w *CacheWriter) Run(ctx context.Context) Report {
	logger := log.WithFields(log.Fields{"partition": w.partition, "address": w.store.Address()})
	report := Report{Partition: w.partition, Address: w.store.Address()}

	for batch := range w.input {
		if len(batch) == 0 {
			continue
		}
		if w.dry {
			w.logBatch(logger, batch)
			report.Skipped += len(batch)
			w.metrics.RecordCacheWrite(w.partition, metrics.WriteResultSkipped, len(batch))
			continue
		}

		start := w.clock.Now()
		failed, err := w.store.SetMulti(ctx, batch)
		w.metrics.RecordCacheWriteLatency(w.partition, w.clock.Since(start))
		if err != nil {
			logger.WithError(err).Warnf("Failed to write %d of %d keys", len(failed), len(batch))
		}
		sent := len(batch) - len(failed)
		report.Sent += sent
		report.Lost += len(failed)
		w.metrics.RecordCacheWrite(w.partition, metrics.WriteResultSent, sent)
		w.metrics.RecordCacheWrite(w.partition, metrics.WriteResultLost, len(failed))
	}

	if err := w.store.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close cache client")
	}
	logger.Infof("Finished with sent=%d lost=%d skipped=%d", report.Sent, report.Lost, report.Skipped)
	return report
}

var dumper = litter.Options{Compact: true, StripPackageNames: true}

// logBatch logs every entry of a batch with its decoded value
func (w *CacheWriter) logBatch(logger *log.Entry, batch model.Batch) {
	if !logger.Logger.IsLevelEnabled(log.DebugLevel) {
		return
	}
	for key, value := range batch {
		decoded, err := convert.Decode(value)
		if err != nil {
			logger.Debugf("%s - %s -> %x", w.store.Address(), key, value)
			continue
		}
		logger.Debugf("%s - %s -> %s", w.store.Address(), key, dumper.Sdump(decoded))
	}
}
