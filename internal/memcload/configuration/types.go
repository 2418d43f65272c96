package configuration

import (
	"time"
)

type Protocol string

const (
	ProtocolMemcache Protocol = "memcache"
	ProtocolRedis    Protocol = "redis"
)

type MemcLoadConfiguration struct {
	// Glob matching the gzip shards to load
	Pattern string `validate:"required"`
	// If true batches are logged instead of being written to the caches
	Dry bool
	// Enables debug logging
	Verbose bool
	// Optional file to write logs to instead of stdout
	LogFile string
	// Cache each device type is written to, keyed by device type
	Partitions map[string]TargetConfig `validate:"required,min=1,dive"`
	// A chunk is pushed onto the ingestion queue once it holds at least this many bytes
	ChunkBytes int `validate:"gt=0"`
	// A chunk is pushed onto the ingestion queue once it holds this many lines. Zero disables the limit
	ChunkLines int `validate:"gte=0"`
	// Readers are throttled while the ingestion queue holds at least this many chunks
	LowWaterMark int `validate:"gt=0"`
	// Capacity of the ingestion queue. Must not be smaller than LowWaterMark
	QueueCapacity int `validate:"gtefield=LowWaterMark"`
	// Capacity of each partition queue
	WriterQueueCapacity int `validate:"gte=0"`
	// Maximum number of shards read concurrently. Zero means one reader per shard
	MaxOpenShards int `validate:"gte=0"`
	// Decompress shards with pgzip
	ParallelDecompression bool
	// The run fails if errors/(processed+errors) is not below this value
	ErrorThreshold float64 `validate:"gt=0,lte=1"`
	// Settings shared by all cache clients
	Store StoreConfig
	// Port to expose prometheus metrics on. Zero disables the metrics server
	MetricsPort uint16
}

type TargetConfig struct {
	// host:port of the cache
	Address string `validate:"required,hostname_port"`
	// Wire protocol spoken by the cache. Defaults to memcache
	Protocol Protocol `validate:"omitempty,oneof=memcache redis"`
}

type StoreConfig struct {
	// Socket timeout for cache operations
	Timeout time.Duration `validate:"gt=0"`
	// Number of times a key that failed with a retryable error is retried
	Retries uint
	// Initial delay between retries. Grows exponentially
	RetryDelay time.Duration
	// Expiry set on written keys. Zero means never expire.  Memcached reads anything above 30 days as
	// an absolute unix time, so longer expiries are rejected.
	Expiration time.Duration `validate:"gte=0,lte=720h"`
}

// ProtocolOrDefault returns the protocol of the target, falling back to memcache
func (t TargetConfig) ProtocolOrDefault() Protocol {
	if t.Protocol == "" {
		return ProtocolMemcache
	}
	return t.Protocol
}
