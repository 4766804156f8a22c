package ads1015

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"ads1015-go/drivers/ads1015/adssim"
	"ads1015-go/errcode"
	"ads1015-go/hal"
	"ads1015-go/services/runtimepm"
)

func TestProbeProgramsChip(t *testing.T) {
	r := newRig(t, nil)
	if got := r.chip.Register(RegLoThresh); got != 0x0000 {
		t.Fatalf("lo thresh %#04x", got)
	}
	if got := r.chip.Register(RegHiThresh); got != 0xFFFF {
		t.Fatalf("hi thresh %#04x", got)
	}
	cfg := CfgWord(r.chip.Register(RegConfig))
	if cfg.Mode() != ModeContinuous || cfg.CompQueue() != CompQueueAssertOne {
		t.Fatalf("config %#04x", uint16(cfg))
	}
	if r.pin.Edge() != hal.EdgeRising {
		t.Fatalf("edge %v", r.pin.Edge())
	}
	if !r.dev.convInvalid {
		t.Fatal("probe must leave the conversion register stale")
	}
}

func TestProbeRejectsEdge(t *testing.T) {
	for _, e := range []hal.Edge{hal.EdgeNone, hal.EdgeBoth} {
		chip := adssim.New(AddressDefault)
		cfg := DefaultConfig()
		cfg.ReadyPin = &adssim.Pin{}
		cfg.ReadyEdge = e
		cfg.Power = &fakePower{}
		_, err := New(NewI2C(chip, AddressDefault), cfg)
		if !errors.Is(err, errcode.InvalidArgument) {
			t.Fatalf("%v: err=%v", e, err)
		}
		if chip.Transactions() != 0 {
			t.Fatalf("%v: bus touched", e)
		}
	}
}

func TestProbeTransportFailure(t *testing.T) {
	chip := adssim.New(AddressDefault)
	cfg := DefaultConfig()
	cfg.Power = &fakePower{}
	cfg.Logger = slog.New(slog.DiscardHandler)
	_, err := New(NewI2C(chip, AddressVDD), cfg)
	if !errors.Is(err, errcode.Transport) || !errors.Is(err, adssim.ErrNack) {
		t.Fatalf("err=%v", err)
	}
}

func TestReadRawDecode(t *testing.T) {
	tests := []struct {
		v    Variant
		word uint16
		want int
	}{
		{ADS1015, 0x7FF0, 2047},
		{ADS1015, 0x8000, -2048},
		{ADS1015, 0xFFF0, -1},
		{ADS1015, 0x001F, 1}, // low nibble ignored
		{ADS1115, 0x7FFF, 32767},
		{ADS1115, 0x8000, -32768},
	}
	for _, tc := range tests {
		r := newRig(t, func(c *Config) { c.Variant = tc.v })
		r.chip.SetInput(uint8(AIN3), tc.word)
		got, err := r.dev.ReadRaw(AIN3)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Fatalf("%v %#04x: got %d want %d", tc.v, tc.word, got, tc.want)
		}
	}
}

func TestAcquireSettlesOnce(t *testing.T) {
	r := newRig(t, nil)
	ci, _ := ADS1015.info()

	if _, err := r.dev.ReadRaw(AIN0); err != nil {
		t.Fatal(err)
	}
	if s := r.takeSleeps(); len(s) != 1 || s[0] != ConversionTime(&ci.rates, 4, 4) {
		t.Fatalf("first read sleeps %v", s)
	}
	r.chip.ResetCounters()

	// Same channel, same settings: one config read, one result read.
	if _, err := r.dev.ReadRaw(AIN0); err != nil {
		t.Fatal(err)
	}
	if s := r.takeSleeps(); len(s) != 0 {
		t.Fatalf("second read slept %v", s)
	}
	if n := r.chip.Transactions(); n != 2 {
		t.Fatalf("transactions=%d", n)
	}
	if r.chip.ConfigWrites() != 0 {
		t.Fatal("config rewritten")
	}

	// Rate change: exactly one settle of old->new.
	if err := r.dev.WriteSampleRate(AIN0, 128); err != nil {
		t.Fatal(err)
	}
	r.chip.ResetCounters()
	if _, err := r.dev.ReadRaw(AIN0); err != nil {
		t.Fatal(err)
	}
	if s := r.takeSleeps(); len(s) != 1 || s[0] != 9281*time.Microsecond {
		t.Fatalf("sleeps %v", s)
	}
	if r.chip.ConfigWrites() != 1 || r.chip.Transactions() != 3 {
		t.Fatalf("writes=%d transactions=%d", r.chip.ConfigWrites(), r.chip.Transactions())
	}
	cfg := CfgWord(r.chip.Register(RegConfig))
	if cfg.Mux() != uint8(AIN0) || cfg.Gain() != DefaultGain || cfg.Rate() != 0 {
		t.Fatalf("config %#04x", uint16(cfg))
	}
}

func TestAcquireWriteFailureLeavesStale(t *testing.T) {
	r := newRig(t, nil)
	r.settle(t, AIN0)

	boom := errors.New("bus stuck")
	r.chip.FailWrite(RegConfig, boom)
	_, err := r.dev.ReadRaw(AIN1)
	if errcode.Of(err) != errcode.Transport || !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if !r.dev.convInvalid {
		t.Fatal("stale flag cleared after failed write")
	}
	if s := r.takeSleeps(); len(s) != 0 {
		t.Fatalf("slept after failure: %v", s)
	}

	r.chip.FailWrite(RegConfig, nil)
	if _, err := r.dev.ReadRaw(AIN1); err != nil {
		t.Fatal(err)
	}
	if s := r.takeSleeps(); len(s) != 1 {
		t.Fatalf("recovery sleeps %v", s)
	}
}

func TestAcquireRejectsTimestamp(t *testing.T) {
	r := newRig(t, nil)
	r.dev.mu.Lock()
	_, err := r.dev.acquire(Timestamp)
	r.dev.mu.Unlock()
	if !errors.Is(err, errcode.InvalidArgument) {
		t.Fatalf("err=%v", err)
	}
	if _, err := r.dev.ReadRaw(Timestamp); !errors.Is(err, errcode.InvalidArgument) {
		t.Fatalf("err=%v", err)
	}
	if r.chip.Transactions() != 0 {
		t.Fatal("bus touched")
	}
}

func TestReadRawPowerPairing(t *testing.T) {
	r := newRig(t, nil)
	if _, err := r.dev.ReadRaw(AIN0); err != nil {
		t.Fatal(err)
	}
	ups, downs, idles := r.pwr.counts()
	if ups != 1 || downs != 1 || idles != 1 {
		t.Fatalf("ups=%d downs=%d idles=%d", ups, downs, idles)
	}
	if r.pwr.grace != SleepDelay {
		t.Fatalf("grace %v", r.pwr.grace)
	}
}

func TestReadRawPowerUpFailure(t *testing.T) {
	r := newRig(t, nil)
	r.pwr.upErr = errors.New("regulator")
	_, err := r.dev.ReadRaw(AIN0)
	if errcode.Of(err) != errcode.Power {
		t.Fatalf("err=%v", err)
	}
	if _, downs, _ := r.pwr.counts(); downs != 0 {
		t.Fatal("power down without power up")
	}
	if r.chip.Transactions() != 0 {
		t.Fatal("bus touched")
	}
}

func TestReadRawReadFailureStillPowersDown(t *testing.T) {
	r := newRig(t, nil)
	r.chip.FailRead(RegConversion, errors.New("nak"))
	_, err := r.dev.ReadRaw(AIN0)
	if errcode.Of(err) != errcode.Transport {
		t.Fatalf("err=%v", err)
	}
	if ups, downs, _ := r.pwr.counts(); ups != 1 || downs != 1 {
		t.Fatalf("ups=%d downs=%d", ups, downs)
	}
}

func TestReadRawKeepsSampleOnPowerDownError(t *testing.T) {
	r := newRig(t, nil)
	r.chip.SetInput(uint8(AIN0), 0x0100)
	r.pwr.downErr = errors.New("pm")
	v, err := r.dev.ReadRaw(AIN0)
	if errcode.Of(err) != errcode.Power {
		t.Fatalf("err=%v", err)
	}
	if v != 0x10 {
		t.Fatalf("value %d", v)
	}
}

func TestResumeMarksStale(t *testing.T) {
	r := newRig(t, nil)
	r.settle(t, AIN0)

	if err := r.dev.Suspend(); err != nil {
		t.Fatal(err)
	}
	if CfgWord(r.chip.Register(RegConfig)).Mode() != ModeSingleShot {
		t.Fatal("suspend did not select single-shot")
	}
	if err := r.dev.Resume(); err != nil {
		t.Fatal(err)
	}
	if CfgWord(r.chip.Register(RegConfig)).Mode() != ModeContinuous {
		t.Fatal("resume did not select continuous")
	}
	if _, err := r.dev.ReadRaw(AIN0); err != nil {
		t.Fatal(err)
	}
	if s := r.takeSleeps(); len(s) != 1 {
		t.Fatalf("read after resume sleeps %v", s)
	}
}

func TestRuntimePowerIntegration(t *testing.T) {
	chip := adssim.New(AddressDefault)
	cfg := DefaultConfig()
	cfg.AutosuspendDelay = 5 * time.Millisecond
	cfg.Logger = slog.New(slog.DiscardHandler)
	dev, err := New(NewI2C(chip, AddressDefault), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	var slept int
	dev.sleep = func(time.Duration) { slept++ }

	rt := dev.power.(*runtimepm.Runtime)
	if _, err := dev.ReadRaw(AIN0); err != nil {
		t.Fatal(err)
	}
	if rt.Usage() != 0 {
		t.Fatalf("usage=%d", rt.Usage())
	}
	deadline := time.After(time.Second)
	for rt.State() != runtimepm.Suspended {
		select {
		case <-deadline:
			t.Fatal("never suspended")
		case <-time.After(time.Millisecond):
		}
	}
	if CfgWord(chip.Register(RegConfig)).Mode() != ModeSingleShot {
		t.Fatal("suspended chip still continuous")
	}

	slept = 0
	if _, err := dev.ReadRaw(AIN0); err != nil {
		t.Fatal(err)
	}
	if slept != 1 {
		t.Fatalf("read after resume slept %d times", slept)
	}
	if CfgWord(chip.Register(RegConfig)).Mode() != ModeContinuous {
		t.Fatal("not resumed")
	}
}

func TestCloseLeavesSingleShot(t *testing.T) {
	r := newRig(t, nil)
	if err := r.dev.EnableBuffer(MaskOf(AIN0)); err != nil {
		t.Fatal(err)
	}
	if err := r.dev.Close(); err != nil {
		t.Fatal(err)
	}
	if CfgWord(r.chip.Register(RegConfig)).Mode() != ModeSingleShot {
		t.Fatal("close left chip converting")
	}
	if r.pin.Edge() != hal.EdgeNone {
		t.Fatal("ready irq still attached")
	}
	if ups, downs, _ := r.pwr.counts(); ups != downs {
		t.Fatalf("unbalanced power: ups=%d downs=%d", ups, downs)
	}
	if _, err := r.dev.ReadRaw(AIN0); !errors.Is(err, errcode.Closed) {
		t.Fatalf("err=%v", err)
	}
	if err := r.dev.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestChannels(t *testing.T) {
	r := newRig(t, nil)
	specs := r.dev.Channels()
	if len(specs) != NumVoltageChannels+1 {
		t.Fatalf("len=%d", len(specs))
	}
	if s := specs[AIN1_AIN3]; !s.Differential || s.Pos != 1 || s.Neg != 3 || s.Name != "AIN1-AIN3" {
		t.Fatalf("AIN1-AIN3 spec %+v", s)
	}
	if s := specs[AIN2]; s.Differential || s.Scan.RealBits != 12 || s.Scan.Shift != 4 {
		t.Fatalf("AIN2 spec %+v", s)
	}
	if specs[len(specs)-1].Channel != Timestamp {
		t.Fatal("timestamp not last")
	}
	for _, s := range specs {
		if c, ok := ParseChannel(s.Name); !ok || c != s.Channel {
			t.Fatalf("parse %q", s.Name)
		}
	}
}
