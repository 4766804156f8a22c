package ads1015

import "ads1015-go/errcode"

// acquire returns a raw conversion word for ch under its stored gain and
// rate. The config register is rewritten only when mux, gain or rate
// differ; any rewrite, or a resume since the last acquisition, costs one
// ConversionTime wait before the read. Caller holds d.mu.
func (d *Device) acquire(ch Channel) (uint16, error) {
	if !ch.Valid() {
		return 0, badChannel("acquire", ch)
	}
	cc := d.store.cfg[ch]

	old, err := d.regs.read(RegConfig)
	if err != nil {
		return 0, err
	}
	if d.resumed.Swap(false) {
		d.convInvalid = true
	}

	cur := CfgWord(old)
	want := cur.WithMux(uint8(ch)).WithGain(cc.Gain).WithRate(cc.Rate)
	if want != cur {
		// A failed or partial write still leaves the chip reconfiguring.
		d.convInvalid = true
		if err := d.regs.write(RegConfig, uint16(want)); err != nil {
			return 0, err
		}
	}

	if d.convInvalid {
		d.sleep(ConversionTime(&d.chip.rates, cur.Rate(), cc.Rate))
		d.convInvalid = false
	}

	v, err := d.regs.read(RegConversion)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (d *Device) busy(op string) error {
	return &errcode.E{C: errcode.Busy, Op: op, Msg: "buffered capture enabled"}
}
