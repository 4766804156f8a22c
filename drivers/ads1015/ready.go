package ads1015

import (
	"context"
	"sync/atomic"
)

// readyISR is the pin-edge half of buffered capture. It holds no device
// state: it stamps the edge and kicks the worker, nothing else. Kicks
// coalesce in a one-slot channel; the stamp is always the latest edge.
type readyISR struct {
	now  func() int64
	ts   atomic.Int64
	kick chan struct{}

	edges     atomic.Uint32
	coalesced atomic.Uint32
}

func newReadyISR(now func() int64) *readyISR {
	return &readyISR{now: now, kick: make(chan struct{}, 1)}
}

func (r *readyISR) handle() {
	r.ts.Store(r.now())
	r.edges.Add(1)
	select {
	case r.kick <- struct{}{}:
	default:
		r.coalesced.Add(1)
	}
}

func (d *Device) readyWorker(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.isr.kick:
			d.serviceReady()
		}
	}
}

// serviceReady turns one kick into at most one record.
func (d *Device) serviceReady() {
	if !d.bufEnabled.Load() {
		d.mu.Lock()
		d.usingBuffer = false
		d.mu.Unlock()
		return
	}
	ts := d.isr.ts.Load()

	d.mu.Lock()
	if !d.bufEnabled.Load() {
		d.usingBuffer = false
		d.mu.Unlock()
		return
	}
	if g := d.armGen.Load(); g != d.bufGen {
		d.bufGen = g
		d.usingBuffer = false
	}
	var (
		raw uint16
		err error
	)
	if d.usingBuffer {
		raw, err = d.regs.read(RegConversion)
	} else {
		raw, err = d.acquire(Channel(d.scanCh.Load()))
	}
	if err == nil {
		d.usingBuffer = true
	}
	d.mu.Unlock()

	if err != nil {
		d.readErrs.Add(1)
		d.errLog.Do(func() {
			d.log.Warn("buffered read failed", "err", err, "failures", d.readErrs.Load())
		})
		return
	}
	if d.fifo.TryPush(Record{Word: int16(raw), Timestamp: ts}) {
		d.sent.Add(1)
	}
}
