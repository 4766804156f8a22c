package timex

import "time"

// PeriodFromHz returns the period for a frequency in Hz. hz == 0 is
// coerced to 1.
func PeriodFromHz(hz uint32) time.Duration {
	if hz == 0 {
		hz = 1
	}
	return time.Second / time.Duration(hz)
}

// ResetTimer stops t, drains a pending fire and rearms it for d.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

// DrainTimer discards a pending fire without blocking.
func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
