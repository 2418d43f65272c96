package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/G-Research/memcload/internal/memcload/configuration"
	"github.com/G-Research/memcload/internal/memcload/model"
)

// CacheStore writes batches of keys to a single remote cache
type CacheStore interface {
	// SetMulti writes every key in the batch and returns the keys that could not be written.
	// The returned error, if any, describes the last failure and is for reporting only.
	SetMulti(ctx context.Context, batch model.Batch) ([]string, error)
	// Address returns the host:port of the cache
	Address() string
	Close() error
}

// New creates the CacheStore for a partition target
func New(target configuration.TargetConfig, config configuration.StoreConfig) (CacheStore, error) {
	switch target.ProtocolOrDefault() {
	case configuration.ProtocolMemcache:
		s, err := NewMemcacheStore(target.Address, config)
		if err != nil {
			return nil, err
		}
		return s, nil
	case configuration.ProtocolRedis:
		return NewRedisStore(target.Address, config), nil
	default:
		return nil, errors.Errorf("unsupported cache protocol %q for %s", target.Protocol, target.Address)
	}
}
