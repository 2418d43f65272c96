package store

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/memcload/internal/memcload/configuration"
	"github.com/G-Research/memcload/internal/memcload/model"
)

// RedisStore writes to a redis server, pipelining one SET per key
type RedisStore struct {
	address    string
	client     *redis.Client
	expiration time.Duration
	retry      RetryPolicy
}

func NewRedisStore(address string, config configuration.StoreConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         address,
		DialTimeout:  config.Timeout,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		PoolSize:     1,
	})
	return &RedisStore{
		address:    address,
		client:     client,
		expiration: config.Expiration,
		retry: RetryPolicy{
			Attempts:    config.Retries + 1,
			Delay:       config.RetryDelay,
			IsRetryable: IsRetryableRedisError,
		},
	}
}

func (s *RedisStore) SetMulti(ctx context.Context, batch model.Batch) ([]string, error) {
	return s.retry.setWithRetry(ctx, batch, func(pending model.Batch) map[string]error {
		pipe := s.client.Pipeline()
		defer func() {
			if err := pipe.Close(); err != nil {
				log.WithError(err).Debugf("Failed to close redis pipeline for %s", s.address)
			}
		}()

		cmds := make(map[string]*redis.StatusCmd, len(pending))
		for key, value := range pending {
			cmds[key] = pipe.Set(key, value, s.expiration)
		}
		// Exec only reports the first failure; every command carries its own error
		_, _ = pipe.Exec()

		errs := make(map[string]error)
		for key, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				errs[key] = errors.WithMessagef(err, "error setting %s on %s", key, s.address)
			}
		}
		return errs
	})
}

func (s *RedisStore) Address() string {
	return s.address
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
