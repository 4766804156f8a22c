// Package hal holds the small hardware abstractions shared by drivers and
// platform code: interrupt-capable input pins and edge selection.
package hal

import "tinygo.org/x/drivers"

// I2C is the bus shape drivers depend on (tinygo drivers.I2C).
type I2C = drivers.I2C

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// ParseEdge maps "rising", "falling" and "both" to an Edge; anything else
// is EdgeNone.
func ParseEdge(s string) Edge {
	switch s {
	case "rising":
		return EdgeRising
	case "falling":
		return EdgeFalling
	case "both":
		return EdgeBoth
	default:
		return EdgeNone
	}
}

// IRQPin is an input line that can call a handler on edges.
//
// The handler runs in interrupt-like context: it must not block, sleep,
// take locks or touch a bus.
type IRQPin interface {
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}
