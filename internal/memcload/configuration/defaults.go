package configuration

import (
	"time"
)

// DefaultDeviceTypes are the device types that can be bound to a cache from the command line
var DefaultDeviceTypes = []string{"idfa", "gaid", "adid", "dvid"}

// Default returns the configuration used when nothing else is specified
func Default() MemcLoadConfiguration {
	return MemcLoadConfiguration{
		Pattern: "./*.tsv.gz",
		Partitions: map[string]TargetConfig{
			"idfa": {Address: "127.0.0.1:33013", Protocol: ProtocolMemcache},
			"gaid": {Address: "127.0.0.1:33014", Protocol: ProtocolMemcache},
			"adid": {Address: "127.0.0.1:33015", Protocol: ProtocolMemcache},
			"dvid": {Address: "127.0.0.1:33016", Protocol: ProtocolMemcache},
		},
		ChunkBytes:          10000,
		LowWaterMark:        100,
		QueueCapacity:       1000,
		WriterQueueCapacity: 100,
		ErrorThreshold:      0.01,
		Store: StoreConfig{
			Timeout:    time.Second,
			Retries:    3,
			RetryDelay: 100 * time.Millisecond,
		},
	}
}
