package ads1015

import (
	"sync"

	"ads1015-go/errcode"
)

// Transport moves whole 16-bit register values. Byte order on the wire is
// the transport's concern; values here are host order.
type Transport interface {
	ReadRegister(reg uint8) (uint16, error)
	WriteRegister(reg uint8, v uint16) error
}

// IsWritable reports whether reg accepts writes. The conversion register
// is read-only.
func IsWritable(reg uint8) bool {
	return reg == RegConfig || reg == RegLoThresh || reg == RegHiThresh
}

// regmap serialises register access and keeps read-modify-write atomic
// with respect to other regmap users. It has its own lock, separate from
// the device lock, so power callbacks can reach the chip while the device
// lock is held elsewhere.
type regmap struct {
	mu sync.Mutex
	t  Transport
}

func (m *regmap) read(reg uint8) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readLocked(reg)
}

func (m *regmap) write(reg uint8, v uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(reg, v)
}

// updateBits replaces the bits in mask with val. No write is issued when
// the register already holds the result.
func (m *regmap) updateBits(reg uint8, mask, val uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, err := m.readLocked(reg)
	if err != nil {
		return err
	}
	nv := old&^mask | val&mask
	if nv == old {
		return nil
	}
	return m.writeLocked(reg, nv)
}

func (m *regmap) readLocked(reg uint8) (uint16, error) {
	v, err := m.t.ReadRegister(reg)
	if err != nil {
		return 0, errcode.Wrap(errcode.Transport, "read "+regName(reg), err)
	}
	return v, nil
}

func (m *regmap) writeLocked(reg uint8, v uint16) error {
	if !IsWritable(reg) {
		return &errcode.E{C: errcode.InvalidArgument, Op: "write " + regName(reg), Msg: "register is read-only"}
	}
	return errcode.Wrap(errcode.Transport, "write "+regName(reg), m.t.WriteRegister(reg, v))
}
