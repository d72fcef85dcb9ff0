package domain

import "time"

// ClockSnapshot captures the virtual clock for crash recovery. Restoring it
// reproduces the same precise-time readings as if the process never stopped.
type ClockSnapshot struct {
	Running   bool
	Reference time.Time
	Day       int
}
