package reader

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/memcload/internal/common/compress"
	"github.com/G-Research/memcload/internal/memcload/metrics"
	"github.com/G-Research/memcload/internal/memcload/model"
	"github.com/G-Research/memcload/internal/memcload/throttle"
)

const (
	claimedPrefix  = "."
	readBufferSize = 64 * 1024
)

type Config struct {
	// A chunk is pushed once it holds at least this many bytes
	ChunkBytes int
	// A chunk is pushed once it holds this many lines.  Zero means no line limit.
	ChunkLines int
	// Decompress with pgzip rather than klauspost/compress/gzip
	ParallelDecompression bool
}

// FileReader streams a single gzip shard onto the ingestion queue in bounded chunks.
// After every chunk it waits on the throttle gate, which the processor closes while the queue is too deep.
type FileReader struct {
	path    string
	out     chan<- *model.Chunk
	gate    *throttle.Gate
	config  Config
	metrics *metrics.Metrics
}

func New(path string, out chan<- *model.Chunk, gate *throttle.Gate, config Config, m *metrics.Metrics) *FileReader {
	return &FileReader{
		path:    path,
		out:     out,
		gate:    gate,
		config:  config,
		metrics: m,
	}
}

// Run reads the shard to the end and claims it.  Any error leaves the shard in place so that it
// will be picked up again by the next run.  If ctx is cancelled the reader stops at the next chunk
// boundary without claiming the shard.
func (r *FileReader) Run(ctx context.Context) error {
	logger := log.WithField("shard", r.path)
	logger.Debug("Started")

	err := r.read(ctx)
	if err != nil {
		r.metrics.RecordShard(metrics.ShardStatusFailed)
		return err
	}
	if err := ClaimShard(r.path); err != nil {
		r.metrics.RecordShard(metrics.ShardStatusFailed)
		return err
	}
	r.metrics.RecordShard(metrics.ShardStatusClaimed)
	logger.Debug("Finished")
	return nil
}

func (r *FileReader) read(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WithMessagef(err, "not reading shard %s", r.path)
	}
	shard, err := compress.OpenShard(r.path, r.config.ParallelDecompression)
	if err != nil {
		return err
	}
	defer func() {
		if err := shard.Close(); err != nil {
			log.WithError(err).Warnf("Failed to close shard %s cleanly", r.path)
		}
	}()

	in := bufio.NewReaderSize(shard, readBufferSize)
	for {
		lines, err := r.readChunk(in)
		if len(lines) > 0 {
			r.out <- &model.Chunk{Shard: r.path, Lines: lines}
			r.metrics.RecordChunkRead(len(lines))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.WithMessagef(err, "error reading shard %s", r.path)
		}
		if err := r.gate.Wait(ctx); err != nil {
			return errors.WithMessagef(err, "stopped reading shard %s", r.path)
		}
	}
}

// readChunk reads whole lines until the chunk is full or the stream ends
func (r *FileReader) readChunk(in *bufio.Reader) ([][]byte, error) {
	var lines [][]byte
	size := 0
	for {
		line, err := in.ReadBytes('\n')
		if len(line) > 0 {
			lines = append(lines, line)
			size += len(line)
		}
		if err != nil {
			return lines, err
		}
		if size >= r.config.ChunkBytes || (r.config.ChunkLines > 0 && len(lines) >= r.config.ChunkLines) {
			return lines, nil
		}
	}
}

// ClaimShard renames a fully loaded shard to a dot file in the same directory so that it no longer
// matches the shard pattern
func ClaimShard(path string) error {
	dir, name := filepath.Split(path)
	if err := os.Rename(path, filepath.Join(dir, claimedPrefix+name)); err != nil {
		return errors.WithMessagef(err, "error claiming shard %s", path)
	}
	return nil
}

// ListShards returns all unclaimed files matching the pattern in lexical order
func ListShards(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid shard pattern %s", pattern)
	}
	shards := make([]string, 0, len(matches))
	for _, match := range matches {
		if IsClaimed(match) {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		shards = append(shards, match)
	}
	sort.Strings(shards)
	return shards, nil
}

func IsClaimed(path string) bool {
	return strings.HasPrefix(filepath.Base(path), claimedPrefix)
}
