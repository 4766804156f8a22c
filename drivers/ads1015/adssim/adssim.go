// Package adssim emulates an ADS1x15 on a tinygo-style I2C bus, plus an
// interrupt pin that tests can fire by hand.
package adssim

import (
	"errors"
	"sync"

	"ads1015-go/hal"
)

// ErrNack is returned for transfers to any other address.
var ErrNack = errors.New("adssim: no ack")

// Power-on register values.
const (
	ResetConfig   = 0x8583
	ResetLoThresh = 0x8000
	ResetHiThresh = 0x7FFF
)

var _ hal.I2C = (*Chip)(nil)

// Chip is the register file. The conversion register reads back the
// input word set for the currently selected mux.
type Chip struct {
	mu sync.Mutex

	addr   uint16
	ptr    uint8
	regs   [4]uint16
	inputs [8]uint16

	txs          int
	configWrites int
	readFail     map[uint8]error
	writeFail    map[uint8]error
}

// New returns a chip in its power-on state at addr.
func New(addr uint16) *Chip {
	c := &Chip{addr: addr, readFail: map[uint8]error{}, writeFail: map[uint8]error{}}
	c.regs[1] = ResetConfig
	c.regs[2] = ResetLoThresh
	c.regs[3] = ResetHiThresh
	return c
}

// Tx implements drivers.I2C. A one-byte write sets the pointer; a
// three-byte write also stores a register; a two-byte read returns the
// pointed register MSB first.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs++
	if addr != c.addr {
		return ErrNack
	}
	if len(w) > 0 {
		c.ptr = w[0] & 3
	}
	if len(w) >= 3 {
		if err := c.writeFail[c.ptr]; err != nil {
			return err
		}
		if c.ptr != 0 {
			c.regs[c.ptr] = uint16(w[1])<<8 | uint16(w[2])
			if c.ptr == 1 {
				c.configWrites++
			}
		}
	}
	if len(r) >= 2 {
		if err := c.readFail[c.ptr]; err != nil {
			return err
		}
		v := c.regLocked(c.ptr)
		r[0] = byte(v >> 8)
		r[1] = byte(v)
	}
	return nil
}

func (c *Chip) regLocked(p uint8) uint16 {
	if p == 0 {
		return c.inputs[(c.regs[1]>>12)&7]
	}
	return c.regs[p]
}

// Register returns a register as the host would read it.
func (c *Chip) Register(p uint8) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regLocked(p & 3)
}

// SetRegister overwrites a register directly, bypassing the bus.
func (c *Chip) SetRegister(p uint8, v uint16) {
	c.mu.Lock()
	c.regs[p&3] = v
	c.mu.Unlock()
}

// SetInput sets the conversion word produced for a mux code.
func (c *Chip) SetInput(mux uint8, word uint16) {
	c.mu.Lock()
	c.inputs[mux&7] = word
	c.mu.Unlock()
}

// FailRead makes reads of reg return err; nil clears it.
func (c *Chip) FailRead(reg uint8, err error) {
	c.mu.Lock()
	c.readFail[reg] = err
	c.mu.Unlock()
}

// FailWrite makes writes of reg return err; nil clears it.
func (c *Chip) FailWrite(reg uint8, err error) {
	c.mu.Lock()
	c.writeFail[reg] = err
	c.mu.Unlock()
}

// Transactions counts every Tx call, failed ones included.
func (c *Chip) Transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txs
}

// ConfigWrites counts stored config register writes.
func (c *Chip) ConfigWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configWrites
}

// ResetCounters zeroes Transactions and ConfigWrites.
func (c *Chip) ResetCounters() {
	c.mu.Lock()
	c.txs, c.configWrites = 0, 0
	c.mu.Unlock()
}

// Pin is an hal.IRQPin driven by Fire.
type Pin struct {
	mu      sync.Mutex
	edge    hal.Edge
	handler func()

	// SetErr, when set, is returned by SetIRQ.
	SetErr error
}

func (p *Pin) SetIRQ(edge hal.Edge, handler func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SetErr != nil {
		return p.SetErr
	}
	p.edge, p.handler = edge, handler
	return nil
}

func (p *Pin) ClearIRQ() error {
	p.mu.Lock()
	p.edge, p.handler = hal.EdgeNone, nil
	p.mu.Unlock()
	return nil
}

// Edge returns the registered edge.
func (p *Pin) Edge() hal.Edge {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edge
}

// Fire runs the handler as an edge would. It reports false when no
// handler is attached.
func (p *Pin) Fire() bool {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h == nil {
		return false
	}
	h()
	return true
}
