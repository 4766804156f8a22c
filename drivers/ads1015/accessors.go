package ads1015

import (
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"

	"ads1015-go/errcode"
)

func (d *Device) claimDirect(op string) (release func(), err error) {
	d.modeMu.Lock()
	if d.bufEnabled.Load() {
		d.modeMu.Unlock()
		return nil, d.busy(op)
	}
	return d.modeMu.Unlock, nil
}

// ReadRaw powers the chip, acquires one sample on ch and requests
// autosuspend. It fails with errcode.Busy, without touching the bus, while
// buffered capture is enabled.
//
// A power-down failure after a good read returns the sample together with
// a Power error.
func (d *Device) ReadRaw(ch Channel) (int, error) {
	const op = "read raw"
	if err := d.checkOpen(op); err != nil {
		return 0, err
	}
	if !ch.Valid() {
		return 0, badChannel(op, ch)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	release, err := d.claimDirect(op)
	if err != nil {
		return 0, err
	}
	defer release()

	if err := d.powerUp(); err != nil {
		return 0, err
	}
	raw, err := d.acquire(ch)
	if err != nil {
		return 0, multierr.Append(err, d.powerDown())
	}
	v := int(d.chip.scan.Decode(raw))
	return v, d.powerDown()
}

// ReadScale returns the channel scale as full-scale mV / 2^exp.
func (d *Device) ReadScale(ch Channel) (mV int, exp uint8, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cc, err := d.store.get(ch)
	if err != nil {
		return 0, 0, err
	}
	return fullScaleMilliV[cc.Gain], d.chip.scan.RealBits - 1, nil
}

// ReadSampleRate returns the channel rate in samples per second.
func (d *Device) ReadSampleRate(ch Channel) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cc, err := d.store.get(ch)
	if err != nil {
		return 0, err
	}
	return d.chip.rates[cc.Rate], nil
}

// WriteScale sets the scale from an integer-plus-micro value in mV per
// count. Only exact matches of a full-scale range are accepted.
func (d *Device) WriteScale(ch Channel, val, micro int) error {
	const op = "write scale"
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bufEnabled.Load() {
		return d.busy(op)
	}
	shift := d.chip.scan.RealBits - 1
	fs := ((int64(val)*1_000_000 + int64(micro)) << shift) / 1_000_000
	return d.store.setGain(ch, int(fs))
}

// SetFullScale selects the gain whose full-scale range equals v.
func (d *Device) SetFullScale(ch Channel, v physic.ElectricPotential) error {
	const op = "set full scale"
	if v%physic.MilliVolt != 0 {
		return &errcode.E{C: errcode.InvalidArgument, Op: op, Msg: "not a whole number of mV: " + v.String()}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bufEnabled.Load() {
		return d.busy(op)
	}
	return d.store.setGain(ch, int(v/physic.MilliVolt))
}

// WriteSampleRate sets the channel rate; sps must be in the rate table.
func (d *Device) WriteSampleRate(ch Channel, sps int) error {
	const op = "write sample rate"
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bufEnabled.Load() {
		return d.busy(op)
	}
	return d.store.setRate(ch, sps)
}

// ScaleAvailable lists the selectable scales in mV per count.
func (d *Device) ScaleAvailable() string { return d.chip.scaleAvailable }

// SampleRateAvailable lists the selectable rates in SPS.
func (d *Device) SampleRateAvailable() string {
	s := make([]string, len(d.chip.rateAvailable))
	for i, r := range d.chip.rateAvailable {
		s[i] = strconv.Itoa(r)
	}
	return strings.Join(s, " ")
}

// Voltage converts a decoded sample on ch to a potential using the
// channel's current scale.
func (d *Device) Voltage(ch Channel, raw int) (physic.ElectricPotential, error) {
	mV, exp, err := d.ReadScale(ch)
	if err != nil {
		return 0, err
	}
	return physic.ElectricPotential(int64(raw)*int64(mV)*int64(physic.MilliVolt)) / physic.ElectricPotential(int64(1)<<exp), nil
}

// SampleFrequency is ReadSampleRate as a periph frequency.
func (d *Device) SampleFrequency(ch Channel) (physic.Frequency, error) {
	sps, err := d.ReadSampleRate(ch)
	if err != nil {
		return 0, err
	}
	return physic.Frequency(sps) * physic.Hertz, nil
}
