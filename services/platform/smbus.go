// Package platform binds the ADS1x15 driver to Linux: register access
// through /dev/i2c-N and the ready pin through a GPIO character device.
package platform

import (
	"math/bits"

	"github.com/go-daq/smbus"
)

// wordConn is the part of *smbus.Conn the transport uses.
type wordConn interface {
	ReadWord(addr, reg uint8) (uint16, error)
	WriteWord(addr, reg uint8, v uint16) error
	Close() error
}

// SMBus is a register transport over a Linux SMBus adapter. SMBus word
// transfers are little-endian while the chip sends MSB first, so every
// word is byte-swapped.
type SMBus struct {
	conn wordConn
	addr uint8
}

// OpenSMBus opens /dev/i2c-<bus> for the device at addr.
func OpenSMBus(bus int, addr uint8) (*SMBus, error) {
	c, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, err
	}
	return &SMBus{conn: c, addr: addr}, nil
}

func (s *SMBus) ReadRegister(reg uint8) (uint16, error) {
	v, err := s.conn.ReadWord(s.addr, reg)
	if err != nil {
		return 0, err
	}
	return bits.ReverseBytes16(v), nil
}

func (s *SMBus) WriteRegister(reg uint8, v uint16) error {
	return s.conn.WriteWord(s.addr, reg, bits.ReverseBytes16(v))
}

func (s *SMBus) Close() error { return s.conn.Close() }
