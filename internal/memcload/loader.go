package memcload

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/G-Research/memcload/internal/memcload/configuration"
	"github.com/G-Research/memcload/internal/memcload/metrics"
	"github.com/G-Research/memcload/internal/memcload/model"
	"github.com/G-Research/memcload/internal/memcload/processor"
	"github.com/G-Research/memcload/internal/memcload/reader"
	"github.com/G-Research/memcload/internal/memcload/store"
	"github.com/G-Research/memcload/internal/memcload/throttle"
	"github.com/G-Research/memcload/internal/memcload/writer"
)

// StoreFactory creates the cache store a partition is written to
type StoreFactory func(partition string, target configuration.TargetConfig) (store.CacheStore, error)

// Report describes a finished run
type Report struct {
	RunId    string
	Duration time.Duration
	// Number of shards matched by the pattern
	Shards int
	// One error per shard that could not be read.  Those shards are left unclaimed.
	ShardFailures *multierror.Error
	processor.Result
	Writers []writer.Report
}

func (r *Report) Sent() int {
	sent := 0
	for _, w := range r.Writers {
		sent += w.Sent
	}
	return sent
}

func (r *Report) Lost() int {
	lost := 0
	for _, w := range r.Writers {
		lost += w.Lost
	}
	return lost
}

// Loader runs the whole pipeline: one reader per shard, a single processor and one writer per partition
type Loader struct {
	config   configuration.MemcLoadConfiguration
	newStore StoreFactory
	metrics  *metrics.Metrics
	clock    clock.Clock
}

func NewLoader(config configuration.MemcLoadConfiguration) *Loader {
	return &Loader{
		config: config,
		newStore: func(_ string, target configuration.TargetConfig) (store.CacheStore, error) {
			return store.New(target, config.Store)
		},
		metrics: metrics.Get(),
		clock:   clock.RealClock{},
	}
}

// Run loads every unclaimed shard matching the configured pattern.  Cancelling ctx stops the readers at
// the next chunk boundary; everything already read is still processed and written.
// An error is only returned if the pipeline could not be started.  Whether the load succeeded is
// given by Report.Acceptable.
func (l *Loader) Run(ctx context.Context) (*Report, error) {
	start := l.clock.Now()
	report := &Report{RunId: uuid.NewString()}
	logger := log.WithField("runId", report.RunId)

	shards, err := reader.ListShards(l.config.Pattern)
	if err != nil {
		return nil, err
	}
	report.Shards = len(shards)
	logger.Infof("Found %d shards matching %s", len(shards), l.config.Pattern)

	stores, err := l.createStores()
	if err != nil {
		return nil, err
	}
	partitions := maps.Keys(stores)
	slices.Sort(partitions)

	// Writers start first so that nothing upstream blocks on them
	queues := make(map[string]chan model.Batch, len(partitions))
	outputs := make(map[string]chan<- model.Batch, len(partitions))
	report.Writers = make([]writer.Report, len(partitions))
	writersDone := sync.WaitGroup{}
	for i, partition := range partitions {
		queue := make(chan model.Batch, l.config.WriterQueueCapacity)
		queues[partition] = queue
		outputs[partition] = queue
		w := writer.New(partition, queue, stores[partition], l.config.Dry, l.metrics)
		writersDone.Add(1)
		go func(i int) {
			defer writersDone.Done()
			report.Writers[i] = w.Run(context.Background())
		}(i)
	}

	input := make(chan *model.Chunk, l.config.QueueCapacity)
	gate := throttle.NewGate(true)
	p := processor.New(input, outputs, gate, processor.Config{
		LowWaterMark:   l.config.LowWaterMark,
		ErrorThreshold: l.config.ErrorThreshold,
	}, l.metrics)
	results := make(chan processor.Result, 1)
	go func() {
		results <- p.Run()
	}()

	report.ShardFailures = l.readShards(ctx, shards, input, gate)

	// Closing a queue tells its consumer that nothing more will arrive
	close(input)
	report.Result = <-results
	for _, partition := range partitions {
		close(queues[partition])
	}
	writersDone.Wait()

	report.Duration = l.clock.Since(start)
	logger.Infof("Finished loading %d shards in %s: processed=%d errors=%d sent=%d lost=%d",
		report.Shards, report.Duration, report.Processed, report.Errors(), report.Sent(), report.Lost())
	if err := report.ShardFailures.ErrorOrNil(); err != nil {
		logger.WithError(err).Warnf("%d shards could not be read and were left in place", len(report.ShardFailures.Errors))
	}
	return report, nil
}

func (l *Loader) readShards(ctx context.Context, shards []string, input chan<- *model.Chunk, gate *throttle.Gate) *multierror.Error {
	mu := sync.Mutex{}
	var failures *multierror.Error

	g := errgroup.Group{}
	if l.config.MaxOpenShards > 0 {
		g.SetLimit(l.config.MaxOpenShards)
	}
	readerConfig := reader.Config{
		ChunkBytes:            l.config.ChunkBytes,
		ChunkLines:            l.config.ChunkLines,
		ParallelDecompression: l.config.ParallelDecompression,
	}
	for _, shard := range shards {
		r := reader.New(shard, input, gate, readerConfig, l.metrics)
		g.Go(func() error {
			if err := r.Run(ctx); err != nil {
				log.WithError(err).Error("Failed to load shard")
				mu.Lock()
				failures = multierror.Append(failures, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

func (l *Loader) createStores() (map[string]store.CacheStore, error) {
	stores := make(map[string]store.CacheStore, len(l.config.Partitions))
	for partition, target := range l.config.Partitions {
		s, err := l.newStore(partition, target)
		if err != nil {
			for _, created := range stores {
				_ = created.Close()
			}
			return nil, errors.WithMessagef(err, "error creating cache client for %s", partition)
		}
		stores[partition] = s
	}
	return stores, nil
}
