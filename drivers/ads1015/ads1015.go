// Package ads1015 drives the TI ADS1015 (12-bit) and ADS1115 (16-bit)
// four-input I2C delta-sigma converters.
//
// Design notes:
//   - The chip runs in continuous mode while powered and single-shot mode
//     while suspended. A config change makes the conversion register stale
//     until the chip has finished one conversion under the old settings
//     and one under the new; acquire waits ConversionTime before reading.
//   - One-shot reads (ReadRaw) take the device lock and bracket the
//     acquisition with a power request and an autosuspend request.
//   - Buffered capture is driven by the ALERT/RDY pin. The pin handler only
//     records a timestamp and kicks a worker; the worker owns all bus
//     traffic, so edges arriving while it is busy collapse into one.
//   - The first buffered sample after enabling goes through a full
//     acquisition; later samples only read the conversion register.
package ads1015

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"ads1015-go/errcode"
	"ads1015-go/hal"
	"ads1015-go/services/runtimepm"
	"ads1015-go/x/ring"
)

// Config selects the chip and its board wiring.
type Config struct {
	Variant Variant

	// Channel configuration sources, highest preference first. Both may
	// be nil, in which case every channel uses DefaultChannelConfig.
	Platform *StaticTable
	Tree     TreeNode

	// Power manages the supply state. Nil uses a runtimepm.Runtime with
	// the device's Suspend/Resume as callbacks.
	Power            Power
	AutosuspendDelay time.Duration

	// ReadyPin enables buffered capture. ReadyEdge must be rising or
	// falling.
	ReadyPin  hal.IRQPin
	ReadyEdge hal.Edge

	QueueSize int // buffered records, power of two

	Logger *slog.Logger
	Clock  func() int64 // monotonic ns; nil uses time since New
}

// DefaultConfig returns an ADS1015 with no ready pin.
func DefaultConfig() Config {
	return Config{
		Variant:          ADS1015,
		AutosuspendDelay: SleepDelay,
		ReadyEdge:        hal.EdgeRising,
		QueueSize:        64,
	}
}

// Validate checks the settings New relies on.
func (c Config) Validate() error {
	if _, ok := c.Variant.info(); !ok {
		return &errcode.E{C: errcode.InvalidArgument, Op: "config", Msg: "unknown variant"}
	}
	if c.QueueSize < 2 || c.QueueSize&(c.QueueSize-1) != 0 {
		return &errcode.E{C: errcode.InvalidArgument, Op: "config", Msg: "queue size must be a power of two >= 2"}
	}
	if c.AutosuspendDelay < 0 {
		return &errcode.E{C: errcode.InvalidArgument, Op: "config", Msg: "negative autosuspend delay"}
	}
	if c.ReadyPin != nil && c.ReadyEdge != hal.EdgeRising && c.ReadyEdge != hal.EdgeFalling {
		return &errcode.E{C: errcode.InvalidArgument, Op: "config", Msg: "ready edge must be rising or falling, got " + c.ReadyEdge.String()}
	}
	return nil
}

// Stats are cumulative capture counters.
type Stats struct {
	Edges      uint32 // ready edges seen
	Coalesced  uint32 // edges folded into a pending kick
	Delivered  uint32 // records queued
	Dropped    uint32 // records lost to a full queue
	ReadErrors uint32 // failed buffered acquisitions
}

// Device is one ADS1x15 on a bus.
type Device struct {
	regs       regmap
	chip       *chipInfo
	log        *slog.Logger
	power      Power
	sleepDelay time.Duration
	pin        hal.IRQPin
	sleep      func(time.Duration)

	// Device lock: channel store, convInvalid, usingBuffer and the
	// acquisition sequence.
	mu          sync.Mutex
	store       store
	convInvalid bool
	usingBuffer bool
	bufGen      uint32

	// Set by Resume, folded into convInvalid by the next acquisition.
	resumed atomic.Bool

	// Mode lock: direct reads vs buffered capture.
	modeMu     sync.Mutex
	bufEnabled atomic.Bool
	armGen     atomic.Uint32
	scanCh     atomic.Uint32

	isr      *readyISR
	fifo     *ring.Ring[Record]
	errLog   rate.Sometimes
	readErrs atomic.Uint32
	sent     atomic.Uint32

	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	closed  atomic.Bool
}

// New probes the chip behind t: it resolves the channel table, points the
// threshold registers at conversion-ready signalling, enters continuous
// mode and, when a ready pin is given, attaches the edge handler.
func New(t Transport, cfg Config) (*Device, error) {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ci, _ := cfg.Variant.info()

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("dev", ci.variant.String())

	clock := cfg.Clock
	if clock == nil {
		epoch := time.Now()
		clock = func() int64 { return int64(time.Since(epoch)) }
	}

	d := &Device{
		regs:       regmap{t: t},
		chip:       ci,
		log:        log,
		sleepDelay: cfg.AutosuspendDelay,
		pin:        cfg.ReadyPin,
		sleep:      time.Sleep,
		isr:        newReadyISR(clock),
		fifo:       ring.New[Record](cfg.QueueSize),
		errLog:     rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
	if d.sleepDelay == 0 {
		d.sleepDelay = SleepDelay
	}

	var providers []ConfigProvider
	if cfg.Platform != nil {
		providers = append(providers, cfg.Platform)
	}
	if cfg.Tree != nil {
		providers = append(providers, TreeProvider{Root: cfg.Tree, Logger: log})
	}
	providers = append(providers, Defaults{})
	d.store = newStore(ci, resolveChannels(log, providers...))

	if err := d.setConvReadyPin(); err != nil {
		return nil, err
	}
	if err := d.setConvMode(ModeContinuous); err != nil {
		return nil, err
	}
	if d.pin != nil {
		if err := d.pin.SetIRQ(cfg.ReadyEdge, d.isr.handle); err != nil {
			return nil, errcode.Wrap(errcode.Transport, "ready irq", err)
		}
	}
	d.convInvalid = true

	d.power = cfg.Power
	if d.power == nil {
		d.power = runtimepm.New(d, d.sleepDelay)
	}
	log.Info("probed", "ready_pin", d.pin != nil, "ready_edge", cfg.ReadyEdge.String())
	return d, nil
}

// Variant returns the chip variant.
func (d *Device) Variant() Variant { return d.chip.variant }

// Channels lists the channel descriptions, timestamp last.
func (d *Device) Channels() []ChannelSpec { return d.chip.channelSpecs() }

// ChannelConfig returns the stored gain and rate indices for ch.
func (d *Device) ChannelConfig(ch Channel) (ChannelConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.get(ch)
}

// Records exposes the buffered capture queue. Only one goroutine may pop.
func (d *Device) Records() *ring.Ring[Record] { return d.fifo }

// Stats returns a snapshot of the capture counters.
func (d *Device) Stats() Stats {
	return Stats{
		Edges:      d.isr.edges.Load(),
		Coalesced:  d.isr.coalesced.Load(),
		Delivered:  d.sent.Load(),
		Dropped:    d.fifo.Drops(),
		ReadErrors: d.readErrs.Load(),
	}
}

// Start runs the ready worker until ctx is done or Close is called.
// Calling Start more than once has no effect.
func (d *Device) Start(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.cancel != nil || d.closed.Load() {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.stopped = make(chan struct{})
	go d.readyWorker(ctx, d.stopped)
}

// Close stops capture, detaches the ready pin, disables power management
// and leaves the chip in single-shot mode.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if d.bufEnabled.Load() {
		errs = append(errs, d.disableBuffer())
	}
	if d.pin != nil {
		errs = append(errs, d.pin.ClearIRQ())
	}
	d.runMu.Lock()
	if d.cancel != nil {
		d.cancel()
		<-d.stopped
	}
	d.runMu.Unlock()
	if dis, ok := d.power.(interface{ Disable() }); ok {
		dis.Disable()
	}
	errs = append(errs, d.setConvMode(ModeSingleShot))
	return multierr.Combine(errs...)
}

func (d *Device) checkOpen(op string) error {
	if d.closed.Load() {
		return &errcode.E{C: errcode.Closed, Op: op}
	}
	return nil
}
