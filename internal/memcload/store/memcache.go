package store

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"

	"github.com/G-Research/memcload/internal/memcload/configuration"
	"github.com/G-Research/memcload/internal/memcload/model"
)

const (
	// Largest number of set commands written before their replies are read.  Replies are tiny, so
	// this keeps the server's send buffer from filling while we are still writing.
	maxPipelineDepth = 1000
	maxKeyLength     = 250

	replyStored      = "STORED"
	replyNotStored   = "NOT_STORED"
	replyServerError = "SERVER_ERROR"
)

// MemcacheStore writes to a memcached server over the text protocol.  All keys of a batch are sent as one
// pipeline of set commands and the per-key replies are read afterwards, so a batch costs a single round trip.
type MemcacheStore struct {
	address    string
	servers    *memcache.ServerList
	timeout    time.Duration
	expiration int32
	retry      RetryPolicy

	mu   sync.Mutex
	conn net.Conn
	rw   *bufio.ReadWriter
}

func NewMemcacheStore(address string, config configuration.StoreConfig) (*MemcacheStore, error) {
	servers := &memcache.ServerList{}
	if err := servers.SetServers(address); err != nil {
		return nil, errors.WithMessagef(err, "invalid memcached address %s", address)
	}
	return &MemcacheStore{
		address:    address,
		servers:    servers,
		timeout:    config.Timeout,
		expiration: int32(config.Expiration / time.Second),
		retry: RetryPolicy{
			Attempts:    config.Retries + 1,
			Delay:       config.RetryDelay,
			IsRetryable: IsRetryableMemcacheError,
		},
	}, nil
}

func (s *MemcacheStore) SetMulti(ctx context.Context, batch model.Batch) ([]string, error) {
	return s.retry.setWithRetry(ctx, batch, func(pending model.Batch) map[string]error {
		s.mu.Lock()
		defer s.mu.Unlock()

		errs := make(map[string]error)
		keys := make([]string, 0, len(pending))
		for key := range pending {
			if !legalKey(key) {
				errs[key] = errors.WithMessagef(memcache.ErrMalformedKey, "error setting %q on %s", key, s.address)
				continue
			}
			keys = append(keys, key)
		}
		for start := 0; start < len(keys); start += maxPipelineDepth {
			end := start + maxPipelineDepth
			if end > len(keys) {
				end = len(keys)
			}
			s.setPipelined(keys[start:end], pending, errs)
		}
		return errs
	})
}

// setPipelined writes a set command for every key, flushes once and then reads one reply per key
func (s *MemcacheStore) setPipelined(keys []string, values model.Batch, errs map[string]error) {
	failAll := func(keys []string, err error) {
		s.resetConnection()
		for _, key := range keys {
			errs[key] = errors.WithMessagef(err, "error setting %s on %s", key, s.address)
		}
	}

	rw, err := s.connection()
	if err != nil {
		failAll(keys, err)
		return
	}
	if err := s.conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		failAll(keys, err)
		return
	}
	for _, key := range keys {
		value := values[key]
		if _, err := fmt.Fprintf(rw, "set %s 0 %d %d\r\n", key, s.expiration, len(value)); err != nil {
			failAll(keys, err)
			return
		}
		if _, err := rw.Write(value); err != nil {
			failAll(keys, err)
			return
		}
		if _, err := rw.WriteString("\r\n"); err != nil {
			failAll(keys, err)
			return
		}
	}
	if err := rw.Flush(); err != nil {
		failAll(keys, err)
		return
	}

	desynced := false
	for i, key := range keys {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			failAll(keys[i:], err)
			return
		}
		line, err := rw.ReadString('\n')
		if err != nil {
			failAll(keys[i:], err)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == replyStored:
		case line == replyNotStored:
			errs[key] = errors.WithMessagef(memcache.ErrNotStored, "error setting %s on %s", key, s.address)
		case strings.HasPrefix(line, replyServerError):
			errs[key] = errors.WithMessagef(memcache.ErrServerError, "error setting %s on %s: %s", key, s.address, line)
		default:
			desynced = true
			errs[key] = errors.Errorf("error setting %s on %s: unexpected response line %q", key, s.address, line)
		}
	}
	if desynced {
		// Replies may no longer line up with commands
		s.resetConnection()
	}
}

func (s *MemcacheStore) connection() (*bufio.ReadWriter, error) {
	if s.conn != nil {
		return s.rw, nil
	}
	addr, err := s.servers.PickServer("")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	conn, err := net.DialTimeout(addr.Network(), addr.String(), s.timeout)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s.conn = conn
	s.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	return s.rw, nil
}

func (s *MemcacheStore) resetConnection() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = nil
	s.rw = nil
}

func (s *MemcacheStore) Address() string {
	return s.address
}

func (s *MemcacheStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.rw = nil
	return errors.WithStack(err)
}

// legalKey follows the memcached key rules: at most 250 bytes, no whitespace or control characters
func legalKey(key string) bool {
	if len(key) == 0 || len(key) > maxKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}

// IsRetryableMemcacheError returns true for connection failures and SERVER_ERROR replies.
// Protocol level rejections such as malformed keys or NOT_STORED are final.
func IsRetryableMemcacheError(err error) bool {
	if err == nil {
		return false
	}
	if IsNetworkError(err) || errors.Is(err, memcache.ErrServerError) {
		return true
	}
	return strings.Contains(err.Error(), replyServerError)
}
