package testfixtures

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/G-Research/memcload/internal/memcload/model"
)

// FakeStore is an in memory cache store.  Keys listed in Reject are never stored.
type FakeStore struct {
	Addr   string
	Reject map[string]bool
	mu     sync.Mutex
	items  map[string][]byte
	calls  int
	closed bool
}

func NewFakeStore(addr string) *FakeStore {
	return &FakeStore{Addr: addr, Reject: map[string]bool{}, items: map[string][]byte{}}
}

func (s *FakeStore) SetMulti(_ context.Context, batch model.Batch) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var failed []string
	for key, value := range batch {
		if s.Reject[key] {
			failed = append(failed, key)
			continue
		}
		s.items[key] = value
	}
	if len(failed) > 0 {
		return failed, errors.Errorf("rejected %d keys", len(failed))
	}
	return nil, nil
}

func (s *FakeStore) Address() string {
	return s.Addr
}

func (s *FakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Items returns a copy of everything stored so far
func (s *FakeStore) Items() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make(map[string][]byte, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	return items
}

func (s *FakeStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *FakeStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
