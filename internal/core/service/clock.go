package service

import (
	"math"
	"sync"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

const (
	// Epoch seconds above this are almost certainly milliseconds handed in
	// by mistake; they get divided by 1000 before validation.
	millisecondCutoff = int64(1e12)

	// DefaultMinutesPerDay maps 2 real minutes to 1 simulated day.
	DefaultMinutesPerDay = 2.0
)

var (
	minClockReference = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	maxClockReference = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Clock is the single source of simulated time. The integer day counter only
// moves on AdvanceDay; the fractional precise time derives from wall-clock
// elapsed since the reference. The two are updated independently.
type Clock struct {
	mu        sync.Mutex
	running   bool
	reference time.Time
	day       int

	minutesPerDay float64
	maxDays       int
	now           func() time.Time
}

// NewClock creates a stopped clock. maxDays of 0 disables the duration cap.
func NewClock(minutesPerDay float64, maxDays int) *Clock {
	if minutesPerDay <= 0 {
		minutesPerDay = DefaultMinutesPerDay
	}
	return &Clock{
		minutesPerDay: minutesPerDay,
		maxDays:       maxDays,
		now:           time.Now,
	}
}

// Start begins the simulation at day 1 with the current instant as reference.
func (c *Clock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return domain.ErrAlreadyRunning
	}
	c.running = true
	c.reference = c.now()
	c.day = 1
	return nil
}

// StartAt begins the simulation using an externally supplied epoch as the
// reference instant, so precise time stays in sync with an authoritative
// clock elsewhere.
func (c *Clock) StartAt(epochSeconds int64) error {
	if epochSeconds > millisecondCutoff {
		epochSeconds /= 1000
	}
	ref := time.Unix(epochSeconds, 0)
	if ref.Before(minClockReference) || !ref.Before(maxClockReference) {
		return domain.ErrInvalidReference
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return domain.ErrAlreadyRunning
	}
	c.running = true
	c.reference = ref
	c.day = 1
	return nil
}

// Stop resets the clock to its initial state. Stopping a stopped clock is a
// no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.reference = time.Time{}
	c.day = 0
}

// AdvanceDay moves the integer day counter forward by one.
func (c *Clock) AdvanceDay() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return domain.ErrNotRunning
	}
	if c.maxDays > 0 && c.day >= c.maxDays {
		return domain.ErrMaxDurationReached
	}
	c.day++
	return nil
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) Day() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

// CurrentPreciseTime returns the fractional simulation day rounded to
// precision decimal digits, or 0 while stopped. Day 1 starts at 1.0.
func (c *Clock) CurrentPreciseTime(precision int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	elapsed := c.now().Sub(c.reference).Minutes()
	t := 1 + elapsed/c.minutesPerDay
	scale := math.Pow10(precision)
	return math.Round(t*scale) / scale
}

// Snapshot captures the clock state for persistence.
func (c *Clock) Snapshot() domain.ClockSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.ClockSnapshot{Running: c.running, Reference: c.reference, Day: c.day}
}

// Restore reinstates a snapshot. Subsequent precise-time readings behave as
// if the process had never stopped.
func (c *Clock) Restore(snap domain.ClockSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = snap.Running
	c.reference = snap.Reference
	c.day = snap.Day
}
