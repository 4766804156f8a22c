package ads1015

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ads1015-go/drivers/ads1015/adssim"
)

type fakePower struct {
	mu      sync.Mutex
	ups     int
	downs   int
	idles   int
	grace   time.Duration
	upErr   error
	downErr error
}

func (p *fakePower) RequestActive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.upErr != nil {
		return p.upErr
	}
	p.ups++
	return nil
}

func (p *fakePower) MarkIdleEligible() {
	p.mu.Lock()
	p.idles++
	p.mu.Unlock()
}

func (p *fakePower) RequestAutosuspend(grace time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downs++
	p.grace = grace
	return p.downErr
}

func (p *fakePower) counts() (ups, downs, idles int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ups, p.downs, p.idles
}

type rig struct {
	chip *adssim.Chip
	pin  *adssim.Pin
	pwr  *fakePower
	dev  *Device
	now  atomic.Int64

	mu     sync.Mutex
	sleeps []time.Duration
}

// newRig probes a simulated ADS1015 with a fake power collaborator and a
// hand-fired ready pin. Counters on the chip start at zero.
func newRig(t *testing.T, mut func(*Config)) *rig {
	t.Helper()
	r := &rig{
		chip: adssim.New(AddressDefault),
		pin:  &adssim.Pin{},
		pwr:  &fakePower{},
	}
	cfg := DefaultConfig()
	cfg.Power = r.pwr
	cfg.ReadyPin = r.pin
	cfg.Logger = slog.New(slog.DiscardHandler)
	cfg.Clock = func() int64 { return r.now.Load() }
	if mut != nil {
		mut(&cfg)
	}
	dev, err := New(NewI2C(r.chip, AddressDefault), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dev.sleep = func(d time.Duration) {
		r.mu.Lock()
		r.sleeps = append(r.sleeps, d)
		r.mu.Unlock()
	}
	r.dev = dev
	r.chip.ResetCounters()
	t.Cleanup(func() { _ = dev.Close() })
	return r
}

func (r *rig) takeSleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sleeps
	r.sleeps = nil
	return s
}

// settle does one read so the stale flag left by probe is consumed.
func (r *rig) settle(t *testing.T, ch Channel) {
	t.Helper()
	if _, err := r.dev.ReadRaw(ch); err != nil {
		t.Fatalf("settle read: %v", err)
	}
	r.takeSleeps()
	r.chip.ResetCounters()
}
