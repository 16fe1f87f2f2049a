package gateway

import (
	"context"
	"sync/atomic"
	"time"
)

// SystemClock reports unix milliseconds, the unit the host timestamp oracle uses.
type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) (uint64, error) {
	return uint64(time.Now().UnixMilli()), nil
}

// ManualClock returns a settable instant. It is meant for tests and replays.
type ManualClock struct {
	now atomic.Uint64
}

func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

func (c *ManualClock) Now(ctx context.Context) (uint64, error) {
	return c.now.Load(), nil
}

func (c *ManualClock) Advance(d uint64) {
	c.now.Add(d)
}
