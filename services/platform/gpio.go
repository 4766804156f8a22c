package platform

import (
	"sync"

	"github.com/warthog618/gpiod"

	"ads1015-go/errcode"
	"ads1015-go/hal"
)

// ReadyLine is a hal.IRQPin backed by a GPIO character-device line. The
// line is requested when the handler is set and released on ClearIRQ.
type ReadyLine struct {
	Chip     string // e.g. "gpiochip0"
	Offset   int
	Consumer string

	mu   sync.Mutex
	line *gpiod.Line
}

// edgeOption maps an edge to its line request option.
func edgeOption(e hal.Edge) (gpiod.LineReqOption, error) {
	switch e {
	case hal.EdgeRising:
		return gpiod.WithRisingEdge, nil
	case hal.EdgeFalling:
		return gpiod.WithFallingEdge, nil
	case hal.EdgeBoth:
		return gpiod.WithBothEdges, nil
	default:
		return nil, &errcode.E{C: errcode.InvalidArgument, Op: "ready line", Msg: "no edge selected"}
	}
}

func (p *ReadyLine) SetIRQ(edge hal.Edge, handler func()) error {
	opt, err := edgeOption(edge)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line != nil {
		return &errcode.E{C: errcode.Busy, Op: "ready line", Msg: "already requested"}
	}
	consumer := p.Consumer
	if consumer == "" {
		consumer = "ads1015"
	}
	l, err := gpiod.RequestLine(p.Chip, p.Offset,
		gpiod.WithConsumer(consumer),
		opt,
		gpiod.WithEventHandler(func(gpiod.LineEvent) { handler() }))
	if err != nil {
		return errcode.Wrap(errcode.Transport, "ready line", err)
	}
	p.line = l
	return nil
}

func (p *ReadyLine) ClearIRQ() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return nil
	}
	err := p.line.Close()
	p.line = nil
	return err
}
