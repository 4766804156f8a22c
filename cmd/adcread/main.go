// cmd/adcread/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"

	"ads1015-go/drivers/ads1015"
	"ads1015-go/drivers/ads1015/adssim"
	"ads1015-go/hal"
	"ads1015-go/services/adcconf"
	"ads1015-go/services/platform"
	"ads1015-go/types"
	"ads1015-go/x/timex"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "adcread: %s\n", err)
		os.Exit(1)
	}
}

// hardware is what the device is probed on.
type hardware struct {
	t     ads1015.Transport
	pin   hal.IRQPin
	info  types.ADCInfo
	close func() error

	sim *adssim.Pin // simulated ready pin, fired by a ticker
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	s, err := adcconf.Decode(adcconf.Load(args))
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: s.LogLevel}))

	hw, err := openHardware(s)
	if err != nil {
		return err
	}

	cfg := ads1015.DefaultConfig()
	cfg.Variant = s.Variant
	cfg.Tree = s.Tree
	cfg.AutosuspendDelay = s.AutosuspendDelay
	cfg.QueueSize = s.QueueSize
	cfg.ReadyPin = hw.pin
	cfg.ReadyEdge = s.ReadyEdge
	cfg.Logger = log

	dev, err := ads1015.New(hw.t, cfg)
	if err != nil {
		return multierr.Append(err, hw.close())
	}
	defer func() {
		err = multierr.Combine(err, dev.Close(), hw.close())
	}()

	log.Info("device ready",
		"sensor", hw.info.Sensor, "bus", hw.info.Bus, "addr", hw.info.Addr, "streams", hw.info.Streams)

	enc := json.NewEncoder(stdout)
	switch s.Mode {
	case "stream":
		err = stream(ctx, dev, hw, s, enc)
	default:
		err = readAll(dev, enc)
	}
	return err
}

func openHardware(s adcconf.Settings) (hardware, error) {
	hw := hardware{
		info:  types.ADCInfo{Sensor: s.Variant.String(), Addr: uint16(s.Address)},
		close: func() error { return nil },
	}
	if s.Sim {
		chip := adssim.New(uint16(s.Address))
		// A slow ramp across the inputs so every channel reads differently.
		for mux := uint8(0); mux < ads1015.NumVoltageChannels; mux++ {
			chip.SetInput(mux, uint16(mux)<<12|0x0100)
		}
		hw.sim = &adssim.Pin{}
		hw.t = ads1015.NewI2C(chip, uint16(s.Address))
		hw.pin = hw.sim
		hw.info.Bus = "sim"
		hw.info.Streams = true
		return hw, nil
	}

	bus, err := platform.OpenSMBus(s.Bus, s.Address)
	if err != nil {
		return hw, err
	}
	hw.t = bus
	hw.close = bus.Close
	hw.info.Bus = fmt.Sprintf("i2c-%d", s.Bus)
	if s.ReadyLine >= 0 {
		hw.pin = &platform.ReadyLine{Chip: s.GPIOChip, Offset: s.ReadyLine, Consumer: "adcread"}
		hw.info.Streams = true
	}
	return hw, nil
}

func microVolts(dev *ads1015.Device, ch ads1015.Channel, raw int) (int64, error) {
	v, err := dev.Voltage(ch, raw)
	if err != nil {
		return 0, err
	}
	return int64(v / physic.MicroVolt), nil
}

// readAll takes one on-demand reading from every voltage channel.
func readAll(dev *ads1015.Device, enc *json.Encoder) error {
	for _, spec := range dev.Channels() {
		if !spec.Channel.Valid() {
			continue
		}
		raw, err := dev.ReadRaw(spec.Channel)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		mV, shift, err := dev.ReadScale(spec.Channel)
		if err != nil {
			return err
		}
		sps, err := dev.ReadSampleRate(spec.Channel)
		if err != nil {
			return err
		}
		uv, err := microVolts(dev, spec.Channel, raw)
		if err != nil {
			return err
		}
		if err := enc.Encode(types.ADCReading{
			Channel:         spec.Name,
			Raw:             raw,
			MicroV:          uv,
			FullScaleMilliV: mV,
			ScaleShift:      shift,
			RateSPS:         sps,
		}); err != nil {
			return err
		}
	}
	return nil
}

// stream captures s.Count buffered records from s.Channel.
func stream(ctx context.Context, dev *ads1015.Device, hw hardware, s adcconf.Settings, enc *json.Encoder) error {
	if hw.pin == nil {
		return fmt.Errorf("stream mode needs ready.line")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	dev.Start(ctx)
	if hw.sim != nil {
		sps, err := dev.ReadSampleRate(s.Channel)
		if err != nil {
			return err
		}
		go fireSim(ctx, hw.sim, timex.PeriodFromHz(uint32(sps)))
	}

	if err := dev.EnableBuffer(ads1015.MaskOf(s.Channel, ads1015.Timestamp)); err != nil {
		return err
	}
	scan := dev.Channels()[s.Channel].Scan
	q := dev.Records()
	batch := make([]ads1015.Record, 16)
	timeout := time.NewTimer(s.Timeout)
	defer timeout.Stop()

	var err error
	for got := 0; got < s.Count && err == nil; {
		n := q.PopInto(batch)
		if n == 0 {
			select {
			case <-q.Readable():
			case <-timeout.C:
				err = fmt.Errorf("no record within %v", s.Timeout)
			case <-ctx.Done():
				err = ctx.Err()
			}
			continue
		}
		for _, rec := range batch[:n] {
			if got == s.Count {
				break
			}
			raw := int(scan.Decode(uint16(rec.Word)))
			uv, uerr := microVolts(dev, s.Channel, raw)
			if uerr != nil {
				err = uerr
				break
			}
			if err = enc.Encode(types.ADCRecord{
				Channel: s.Channel.String(),
				Raw:     raw,
				MicroV:  uv,
				TSns:    rec.Timestamp,
			}); err != nil {
				break
			}
			got++
		}
		timex.ResetTimer(timeout, s.Timeout)
	}

	st := dev.Stats()
	_ = enc.Encode(types.ADCStats{
		Edges:      st.Edges,
		Coalesced:  st.Coalesced,
		Delivered:  st.Delivered,
		Dropped:    st.Dropped,
		ReadErrors: st.ReadErrors,
	})
	return multierr.Append(err, dev.DisableBuffer())
}

// fireSim pulses the simulated ready pin at the conversion rate.
func fireSim(ctx context.Context, pin *adssim.Pin, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pin.Fire()
		}
	}
}
