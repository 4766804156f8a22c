package ads1015

import "tinygo.org/x/drivers"

// I2C is a Transport over a tinygo-style bus. Registers travel MSB first.
// Buffers are reused, so one I2C must not be shared between goroutines
// without the regmap lock around it.
type I2C struct {
	bus  drivers.I2C
	addr uint16
	w    [3]byte
	r    [2]byte
}

// NewI2C binds a bus and 7-bit address.
func NewI2C(bus drivers.I2C, addr uint16) *I2C {
	return &I2C{bus: bus, addr: addr}
}

func (b *I2C) ReadRegister(reg uint8) (uint16, error) {
	b.w[0] = reg
	if err := b.bus.Tx(b.addr, b.w[:1], b.r[:2]); err != nil {
		return 0, err
	}
	return uint16(b.r[0])<<8 | uint16(b.r[1]), nil
}

func (b *I2C) WriteRegister(reg uint8, v uint16) error {
	b.w[0] = reg
	b.w[1] = byte(v >> 8)
	b.w[2] = byte(v)
	return b.bus.Tx(b.addr, b.w[:3], nil)
}
