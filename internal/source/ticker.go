// Package source drives the game's two asynchronous handlers: a fixed-rate
// clock tick and the START button's falling edge. Each runs on its own
// goroutine and calls straight into its handler, the way an interrupt
// vector would.
package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// TickHandler is called once per tick.
type TickHandler interface {
	OnTick()
}

// TickFunc adapts a function to TickHandler.
type TickFunc func()

func (f TickFunc) OnTick() { f() }

// Ticker fires a TickHandler at a fixed interval until its context ends.
type Ticker struct {
	interval time.Duration
	handler  TickHandler
	count    atomic.Uint64
	panics   atomic.Uint64
}

func NewTicker(interval time.Duration, h TickHandler) *Ticker {
	return &Ticker{interval: interval, handler: h}
}

// Run blocks, ticking, until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	if t.interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", t.interval)
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.fire()
		}
	}
}

// fire runs one handler call; a panicking handler costs one tick, not the clock.
func (t *Ticker) fire() {
	defer func() {
		if r := recover(); r != nil {
			t.panics.Inc()
		}
	}()
	t.handler.OnTick()
	t.count.Inc()
}

// Count returns how many ticks have been delivered.
func (t *Ticker) Count() uint64 {
	return t.count.Load()
}

// Panics returns how many handler calls panicked.
func (t *Ticker) Panics() uint64 {
	return t.panics.Load()
}
