// Package slot provides the ledger's logical clock.
package slot

import (
	"errors"
	"sync/atomic"
	"time"
)

const DefaultDuration = 400 * time.Millisecond

// DefaultGenesis is the wall-clock start of slot 0 when none is configured.
var DefaultGenesis = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var ErrInvalidDuration = errors.New("slot duration must be positive")

// Clock reports the current slot. Slots never go backwards for a given clock.
type Clock interface {
	Slot() uint64
}

// SystemClock derives the slot from wall time elapsed since genesis.
type SystemClock struct {
	genesis  time.Time
	duration time.Duration
	now      func() time.Time
}

func NewSystemClock(genesis time.Time, duration time.Duration) (*SystemClock, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	return &SystemClock{genesis: genesis, duration: duration, now: time.Now}, nil
}

// Slot returns zero before genesis.
func (c *SystemClock) Slot() uint64 {
	elapsed := c.now().Sub(c.genesis)
	if elapsed <= 0 {
		return 0
	}
	return uint64(elapsed / c.duration)
}

// SlotStart returns the wall time at which the given slot begins.
func (c *SystemClock) SlotStart(s uint64) time.Time {
	return c.genesis.Add(time.Duration(s) * c.duration)
}

// ManualClock is a Clock driven explicitly, mostly by tests.
type ManualClock struct {
	slot atomic.Uint64
}

func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.slot.Store(start)
	return c
}

func (c *ManualClock) Slot() uint64 {
	return c.slot.Load()
}

func (c *ManualClock) Set(s uint64) {
	c.slot.Store(s)
}

// Advance moves the clock forward by n slots and returns the new slot.
func (c *ManualClock) Advance(n uint64) uint64 {
	return c.slot.Add(n)
}
