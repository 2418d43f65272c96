package processor

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/G-Research/memcload/internal/memcload/convert"
	"github.com/G-Research/memcload/internal/memcload/metrics"
	"github.com/G-Research/memcload/internal/memcload/model"
	"github.com/G-Research/memcload/internal/memcload/throttle"
)

const unknownDeviceLogInterval = time.Minute

type Config struct {
	// The gate is closed while the ingestion queue holds at least this many chunks
	LowWaterMark int
	// Highest tolerated share of bad lines, exclusive
	ErrorThreshold float64
}

// Result holds the counters of a finished run and the verdict derived from them
type Result struct {
	Processed     int
	ParseErrors   int
	UnknownDevice int
	ErrorRate     float64
	Acceptable    bool
}

func (r Result) Errors() int {
	return r.ParseErrors + r.UnknownDevice
}

// Processor is the single consumer of the ingestion queue.  It turns lines into encoded entries, groups
// them by partition and hands one batch per partition and chunk to the partition queues.  It also
// drives the throttle gate from the depth of the ingestion queue.
type Processor struct {
	input   <-chan *model.Chunk
	outputs map[string]chan<- model.Batch
	gate    *throttle.Gate
	config  Config
	metrics *metrics.Metrics
	// device types we have already warned about recently
	unknownDevices *cache.Cache
	batches        map[string]model.Batch
	partitions     []string
	result         Result
}

func New(input <-chan *model.Chunk, outputs map[string]chan<- model.Batch, gate *throttle.Gate, config Config, m *metrics.Metrics) *Processor {
	partitions := maps.Keys(outputs)
	slices.Sort(partitions)
	batches := make(map[string]model.Batch, len(outputs))
	for _, partition := range partitions {
		batches[partition] = model.Batch{}
	}
	return &Processor{
		input:          input,
		outputs:        outputs,
		gate:           gate,
		config:         config,
		metrics:        m,
		unknownDevices: cache.New(unknownDeviceLogInterval, 2*unknownDeviceLogInterval),
		batches:        batches,
		partitions:     partitions,
	}
}

// Run consumes chunks until the input channel is closed and then returns the result of the run.
// Output channels are not closed; they belong to the caller.
func (p *Processor) Run() Result {
	for chunk := range p.input {
		p.updateGate()
		for _, line := range chunk.Lines {
			p.processLine(line)
		}
		p.flush()
	}
	p.gate.Open()
	return p.verdict()
}

func (p *Processor) updateGate() {
	depth := len(p.input)
	p.metrics.RecordQueueSize(depth)
	open := depth < p.config.LowWaterMark
	if !open && p.gate.IsOpen() {
		log.Debugf("Ingestion queue holds %d chunks, throttling readers", depth)
		p.metrics.RecordThrottleClosed()
	}
	p.gate.Set(open)
}

func (p *Processor) processLine(raw []byte) {
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return
	}
	record, err := convert.ParseLine(line)
	if err != nil {
		log.WithError(err).Debug("Skipping line")
		p.result.ParseErrors++
		p.metrics.RecordError(metrics.RecordErrorParse)
		return
	}
	batch, ok := p.batches[record.DevType]
	if !ok {
		p.warnUnknownDevice(record.DevType)
		p.result.UnknownDevice++
		p.metrics.RecordError(metrics.RecordErrorUnknownDevice)
		return
	}
	entry, err := convert.Encode(record)
	if err != nil {
		log.WithError(err).Warnf("Failed to encode %s", record.Key())
		p.result.ParseErrors++
		p.metrics.RecordError(metrics.RecordErrorParse)
		return
	}
	batch[entry.Key] = entry.Value
	p.result.Processed++
	p.metrics.RecordProcessed(record.DevType)
}

func (p *Processor) warnUnknownDevice(devType string) {
	if _, found := p.unknownDevices.Get(devType); found {
		return
	}
	p.unknownDevices.SetDefault(devType, struct{}{})
	log.Errorf("Unknown device type: %s", devType)
}

// flush hands every non-empty batch to its partition queue
func (p *Processor) flush() {
	for _, partition := range p.partitions {
		batch := p.batches[partition]
		if len(batch) == 0 {
			continue
		}
		p.outputs[partition] <- batch
		p.batches[partition] = model.Batch{}
	}
}

func (p *Processor) verdict() Result {
	result := p.result
	if total := result.Processed + result.Errors(); total > 0 {
		result.ErrorRate = float64(result.Errors()) / float64(total)
	}
	result.Acceptable = result.ErrorRate < p.config.ErrorThreshold
	if result.Acceptable {
		log.Infof("Acceptable error rate (%g). Successful load", result.ErrorRate)
	} else {
		log.Errorf("High error rate (%g > %g). Failed load", result.ErrorRate, p.config.ErrorThreshold)
	}
	return result
}
