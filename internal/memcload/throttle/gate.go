package throttle

import (
	"context"
	"sync"
)

// Gate is a latch that producers wait on before producing more work.
// It is opened and closed by a single consumer and may be waited on by any number of producers.
type Gate struct {
	mu     sync.Mutex
	isOpen bool
	// closed whenever the gate is open
	opened chan struct{}
}

func NewGate(open bool) *Gate {
	g := &Gate{opened: make(chan struct{})}
	if open {
		g.Open()
	}
	return g
}

// Open releases all current and future waiters until Close is called
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.isOpen {
		close(g.opened)
		g.isOpen = true
	}
}

// Close makes subsequent calls to Wait block until Open is called
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isOpen {
		g.opened = make(chan struct{})
		g.isOpen = false
	}
}

// Set opens the gate if open is true and closes it otherwise
func (g *Gate) Set(open bool) {
	if open {
		g.Open()
	} else {
		g.Close()
	}
}

func (g *Gate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isOpen
}

// Wait blocks until the gate is open or the context is done
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	opened := g.opened
	g.mu.Unlock()
	select {
	case <-opened:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
