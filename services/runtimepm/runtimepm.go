// Package runtimepm is usage-counted runtime power management with
// autosuspend: a device is resumed on first use and suspended once it has
// been idle for the autosuspend delay.
package runtimepm

import (
	"errors"
	"sync"
	"time"
)

// Callbacks move the device between states. They run with the runtime
// lock held and must not call back into the Runtime.
type Callbacks interface {
	Suspend() error
	Resume() error
}

// State of the device as the runtime sees it.
type State uint8

const (
	Active State = iota
	Suspended
)

func (s State) String() string {
	if s == Suspended {
		return "suspended"
	}
	return "active"
}

var (
	ErrDisabled   = errors.New("runtimepm: disabled")
	ErrUnbalanced = errors.New("runtimepm: put without get")
)

// Runtime tracks usage for one device. It starts Active with no users
// and no suspend pending; the first put arms the timer.
type Runtime struct {
	mu       sync.Mutex
	cb       Callbacks
	usage    int
	state    State
	disabled bool
	delay    time.Duration
	lastBusy time.Time
	timer    *time.Timer
	gen      uint64

	suspendErrs int
}

// New returns an active runtime for cb with the given autosuspend delay.
func New(cb Callbacks, delay time.Duration) *Runtime {
	return &Runtime{cb: cb, delay: delay, lastBusy: time.Now()}
}

// RequestActive takes a usage reference and resumes the device if it is
// suspended. On failure the reference is dropped again.
func (r *Runtime) RequestActive() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled {
		return ErrDisabled
	}
	r.usage++
	r.stopTimer()
	if r.state == Suspended {
		if err := r.cb.Resume(); err != nil {
			r.usage--
			return err
		}
		r.state = Active
	}
	return nil
}

// MarkIdleEligible records now as the last time the device was busy.
func (r *Runtime) MarkIdleEligible() {
	r.mu.Lock()
	r.lastBusy = time.Now()
	r.mu.Unlock()
}

// RequestAutosuspend drops a usage reference. When the count reaches zero
// a suspend is scheduled grace after the last busy mark; grace <= 0 keeps
// the current delay.
func (r *Runtime) RequestAutosuspend(grace time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usage == 0 {
		return ErrUnbalanced
	}
	r.usage--
	if grace > 0 {
		r.delay = grace
	}
	if r.usage == 0 && r.state == Active && !r.disabled {
		r.armTimer()
	}
	return nil
}

// Disable cancels any pending suspend and refuses further requests. The
// device is left in its current state.
func (r *Runtime) Disable() {
	r.mu.Lock()
	r.disabled = true
	r.stopTimer()
	r.mu.Unlock()
}

// State returns the current state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Usage returns the current reference count.
func (r *Runtime) Usage() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage
}

// SuspendErrors counts failed suspend callbacks.
func (r *Runtime) SuspendErrors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suspendErrs
}

func (r *Runtime) stopTimer() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Runtime) armTimer() {
	r.stopTimer()
	gen := r.gen
	wait := r.delay - time.Since(r.lastBusy)
	if wait < 0 {
		wait = 0
	}
	r.timer = time.AfterFunc(wait, func() { r.expire(gen) })
}

func (r *Runtime) expire(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || r.usage != 0 || r.state != Active || r.disabled {
		return
	}
	r.timer = nil
	if time.Since(r.lastBusy) < r.delay {
		// Marked busy after the timer was armed.
		r.armTimer()
		return
	}
	if err := r.cb.Suspend(); err != nil {
		r.suspendErrs++
		return
	}
	r.state = Suspended
}
