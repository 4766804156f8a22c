package ads1015

import (
	"encoding/binary"
	"math/bits"

	"ads1015-go/errcode"
)

// ScanMask selects channels for buffered capture, one bit per Channel.
type ScanMask uint16

// MaskOf builds a mask from channels.
func MaskOf(chs ...Channel) ScanMask {
	var m ScanMask
	for _, c := range chs {
		m |= 1 << c
	}
	return m
}

func (m ScanMask) Has(c Channel) bool { return m&(1<<c) != 0 }

// single returns the one voltage channel in m. The timestamp bit is
// ignored.
func (m ScanMask) single() (Channel, bool) {
	v := uint16(m) & (1<<NumVoltageChannels - 1)
	if bits.OnesCount16(v) != 1 {
		return 0, false
	}
	return Channel(bits.TrailingZeros16(v)), true
}

// RecordSize is the encoded length of a Record.
const RecordSize = 16

// Record is one buffered sample: the raw conversion word and the
// monotonic time (ns) of the ready edge that produced it.
type Record struct {
	Word      int16
	Timestamp int64
}

// MarshalBinary encodes r as 16 little-endian bytes: the word, six bytes
// of padding, then the timestamp at offset 8.
func (r Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, RecordSize))
}

func (r Record) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint16(b, uint16(r.Word))
	b = append(b, 0, 0, 0, 0, 0, 0)
	b = binary.LittleEndian.AppendUint64(b, uint64(r.Timestamp))
	return b, nil
}

// UnmarshalBinary decodes the MarshalBinary layout.
func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) < RecordSize {
		return &errcode.E{C: errcode.InvalidArgument, Op: "record", Msg: "short buffer"}
	}
	r.Word = int16(binary.LittleEndian.Uint16(b[0:]))
	r.Timestamp = int64(binary.LittleEndian.Uint64(b[8:]))
	return nil
}

// EnableBuffer arms buffered capture of exactly one voltage channel,
// optionally with the timestamp channel. The device stays powered until
// DisableBuffer.
func (d *Device) EnableBuffer(mask ScanMask) error {
	const op = "enable buffer"
	if err := d.checkOpen(op); err != nil {
		return err
	}
	if d.pin == nil {
		return &errcode.E{C: errcode.Unsupported, Op: op, Msg: "no ready pin"}
	}
	ch, ok := mask.single()
	if !ok || mask>>(Timestamp+1) != 0 {
		return &errcode.E{C: errcode.InvalidArgument, Op: op, Msg: "scan mask must hold exactly one voltage channel"}
	}

	d.modeMu.Lock()
	defer d.modeMu.Unlock()
	if d.bufEnabled.Load() {
		return d.busy(op)
	}
	if err := d.powerUp(); err != nil {
		return err
	}
	d.scanCh.Store(uint32(ch))
	d.armGen.Add(1)
	d.bufEnabled.Store(true)
	d.log.Debug("buffer enabled", "channel", ch.String())
	return nil
}

// DisableBuffer stops buffered capture. It returns once any in-flight
// worker acquisition has finished, then releases the power reference.
func (d *Device) DisableBuffer() error {
	if err := d.checkOpen("disable buffer"); err != nil {
		return err
	}
	return d.disableBuffer()
}

func (d *Device) disableBuffer() error {
	d.modeMu.Lock()
	if !d.bufEnabled.Load() {
		d.modeMu.Unlock()
		return &errcode.E{C: errcode.InvalidArgument, Op: "disable buffer", Msg: "not enabled"}
	}
	d.bufEnabled.Store(false)
	d.modeMu.Unlock()

	d.mu.Lock()
	d.usingBuffer = false
	d.mu.Unlock()

	d.log.Debug("buffer disabled")
	return d.powerDown()
}
