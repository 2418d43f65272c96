package store

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/memcload/internal/memcload/configuration"
	"github.com/G-Research/memcload/internal/memcload/model"
)

const rejectPrefix = "reject:"

// fakeMemcached understands just enough of the memcached text protocol to accept set commands.
// Keys starting with rejectPrefix are answered with NOT_STORED.
type fakeMemcached struct {
	listener net.Listener
	mu       sync.Mutex
	items    map[string][]byte
	expiries map[string]int
	sets     map[string]int
	// number of SERVER_ERROR replies still to be sent per key
	serverErrors map[string]int
	// when non zero, replies are only flushed once this many commands have been received
	holdReplies int
	wg          sync.WaitGroup
}

func startFakeMemcached(t *testing.T) *fakeMemcached {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeMemcached{
		listener:     listener,
		items:        map[string][]byte{},
		expiries:     map[string]int{},
		sets:         map[string]int{},
		serverErrors: map[string]int{},
	}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(f.Close)
	return f
}

func (f *fakeMemcached) Addr() string {
	return f.listener.Addr().String()
}

func (f *fakeMemcached) Close() {
	_ = f.listener.Close()
	f.wg.Wait()
}

func (f *fakeMemcached) Get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok
}

func (f *fakeMemcached) Sets(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key]
}

func (f *fakeMemcached) Expiry(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expiries[key]
}

func (f *fakeMemcached) HoldReplies(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdReplies = n
}

func (f *fakeMemcached) FailWithServerError(key string, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serverErrors[key] = times
}

func (f *fakeMemcached) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMemcached) handle(conn net.Conn) {
	defer conn.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	unflushed := 0
	for {
		line, err := rw.ReadString('\n')
		if err != nil {
			return
		}
		var key string
		var flags, exp, size int
		if _, err := fmt.Sscanf(strings.TrimSpace(line), "set %s %d %d %d", &key, &flags, &exp, &size); err != nil {
			return
		}
		value := make([]byte, size+2)
		if _, err := io.ReadFull(rw, value); err != nil {
			return
		}

		f.mu.Lock()
		f.sets[key]++
		switch {
		case strings.HasPrefix(key, rejectPrefix):
			_, _ = rw.WriteString("NOT_STORED\r\n")
		case f.serverErrors[key] > 0:
			f.serverErrors[key]--
			_, _ = rw.WriteString("SERVER_ERROR out of memory storing object\r\n")
		default:
			f.items[key] = value[:size]
			f.expiries[key] = exp
			_, _ = rw.WriteString("STORED\r\n")
		}
		holdReplies := f.holdReplies
		f.mu.Unlock()

		unflushed++
		if unflushed < holdReplies {
			continue
		}
		unflushed = 0
		if err := rw.Flush(); err != nil {
			return
		}
	}
}

var testStoreConfig = configuration.StoreConfig{
	Timeout:    time.Second,
	Retries:    2,
	RetryDelay: time.Millisecond,
}

func newTestMemcacheStore(t *testing.T, addr string, config configuration.StoreConfig) *MemcacheStore {
	s, err := NewMemcacheStore(addr, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func numberedBatch(prefix string, n int) model.Batch {
	batch := make(model.Batch, n)
	for i := 0; i < n; i++ {
		batch[fmt.Sprintf("%s%d", prefix, i)] = []byte(fmt.Sprintf("value-%d", i))
	}
	return batch
}

func TestMemcacheStore_SetMulti(t *testing.T) {
	server := startFakeMemcached(t)
	s := newTestMemcacheStore(t, server.Addr(), testStoreConfig)

	batch := model.Batch{"idfa:1": []byte("one"), "idfa:2": []byte("two")}
	failed, err := s.SetMulti(context.Background(), batch)
	require.NoError(t, err)
	assert.Empty(t, failed)

	for key, expected := range batch {
		value, ok := server.Get(key)
		assert.True(t, ok)
		assert.Equal(t, expected, value)
	}
	assert.Equal(t, server.Addr(), s.Address())
}

func TestMemcacheStore_RejectedAndMalformedKeysAreLost(t *testing.T) {
	server := startFakeMemcached(t)
	s := newTestMemcacheStore(t, server.Addr(), testStoreConfig)

	batch := model.Batch{
		"idfa:1":              []byte("one"),
		rejectPrefix + "2":    []byte("two"),
		"idfa:with a space 3": []byte("three"),
	}
	failed, err := s.SetMulti(context.Background(), batch)
	assert.Error(t, err)
	assert.ElementsMatch(t, []string{rejectPrefix + "2", "idfa:with a space 3"}, failed)

	_, ok := server.Get("idfa:1")
	assert.True(t, ok)
}

func TestMemcacheStore_UnreachableServer(t *testing.T) {
	server := startFakeMemcached(t)
	addr := server.Addr()
	server.Close()

	s := newTestMemcacheStore(t, addr, testStoreConfig)

	batch := model.Batch{"idfa:1": []byte("one"), "idfa:2": []byte("two")}
	failed, err := s.SetMulti(context.Background(), batch)
	assert.Error(t, err)
	assert.ElementsMatch(t, batch.Keys(), failed)
}

func TestNew_SelectsProtocol(t *testing.T) {
	memcacheStore, err := New(configuration.TargetConfig{Address: "127.0.0.1:1"}, testStoreConfig)
	require.NoError(t, err)
	assert.IsType(t, &MemcacheStore{}, memcacheStore)

	redisStore, err := New(configuration.TargetConfig{Address: "127.0.0.1:1", Protocol: configuration.ProtocolRedis}, testStoreConfig)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, redisStore)

	_, err = New(configuration.TargetConfig{Address: "127.0.0.1:1", Protocol: "http"}, testStoreConfig)
	assert.Error(t, err)
}

func TestMemcacheStore_SendsWholeBatchBeforeReadingReplies(t *testing.T) {
	server := startFakeMemcached(t)
	batch := numberedBatch("idfa:", 50)
	// No reply is sent until every set of the batch has arrived, so waiting for a reply per key would time out
	server.HoldReplies(len(batch))
	s := newTestMemcacheStore(t, server.Addr(), configuration.StoreConfig{Timeout: 500 * time.Millisecond})

	start := time.Now()
	failed, err := s.SetMulti(context.Background(), batch)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	for key := range batch {
		assert.Equal(t, 1, server.Sets(key))
	}
}

func TestMemcacheStore_LargeBatchIsSplit(t *testing.T) {
	server := startFakeMemcached(t)
	s := newTestMemcacheStore(t, server.Addr(), testStoreConfig)

	batch := numberedBatch("gaid:", 2*maxPipelineDepth+1)
	failed, err := s.SetMulti(context.Background(), batch)
	require.NoError(t, err)
	assert.Empty(t, failed)
	for key, expected := range batch {
		value, ok := server.Get(key)
		require.True(t, ok)
		assert.Equal(t, expected, value)
	}
}

func TestMemcacheStore_ServerErrorIsRetried(t *testing.T) {
	server := startFakeMemcached(t)
	server.FailWithServerError("idfa:1", 1)
	s := newTestMemcacheStore(t, server.Addr(), testStoreConfig)

	failed, err := s.SetMulti(context.Background(), model.Batch{"idfa:1": []byte("one"), "idfa:2": []byte("two")})
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, 2, server.Sets("idfa:1"))
	assert.Equal(t, 1, server.Sets("idfa:2"))
	value, ok := server.Get("idfa:1")
	assert.True(t, ok)
	assert.Equal(t, []byte("one"), value)
}

func TestMemcacheStore_ServerErrorRetriesExhausted(t *testing.T) {
	server := startFakeMemcached(t)
	server.FailWithServerError("idfa:1", 10)
	s := newTestMemcacheStore(t, server.Addr(), testStoreConfig)

	failed, err := s.SetMulti(context.Background(), model.Batch{"idfa:1": []byte("one")})
	assert.Error(t, err)
	assert.Equal(t, []string{"idfa:1"}, failed)
	assert.Equal(t, int(testStoreConfig.Retries)+1, server.Sets("idfa:1"))
}

func TestMemcacheStore_Expiration(t *testing.T) {
	server := startFakeMemcached(t)
	config := testStoreConfig
	config.Expiration = time.Hour
	s := newTestMemcacheStore(t, server.Addr(), config)

	_, err := s.SetMulti(context.Background(), model.Batch{"idfa:1": []byte("one")})
	require.NoError(t, err)
	assert.Equal(t, 3600, server.Expiry("idfa:1"))
}

func TestNewMemcacheStore_InvalidAddress(t *testing.T) {
	_, err := NewMemcacheStore("no-port", testStoreConfig)
	assert.Error(t, err)
}

func TestIsRetryableMemcacheError(t *testing.T) {
	tests := map[string]struct {
		err       error
		retryable bool
	}{
		"nil":                {err: nil, retryable: false},
		"not stored":         {err: memcache.ErrNotStored, retryable: false},
		"malformed key":      {err: errors.WithMessage(memcache.ErrMalformedKey, "setting key"), retryable: false},
		"server error":       {err: errors.WithMessage(memcache.ErrServerError, "setting key"), retryable: true},
		"server error reply": {err: errors.New("memcache: unexpected response line from \"set\": \"SERVER_ERROR out of memory\\r\\n\""), retryable: true},
		"connection reset":   {err: errors.WithStack(io.EOF), retryable: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, IsRetryableMemcacheError(tc.err))
		})
	}
}
