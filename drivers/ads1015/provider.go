package ads1015

import (
	"errors"
	"log/slog"
	"strconv"

	"ads1015-go/errcode"
)

// ConfigProvider yields the initial per-channel configuration table.
// Providers return ErrNoConfig when they have nothing to offer, in which
// case the next provider in preference order is asked.
type ConfigProvider interface {
	ChannelConfigs() ([NumVoltageChannels]ChannelConfig, error)
}

// ErrNoConfig reports that a provider holds no channel configuration.
var ErrNoConfig = errors.New("ads1015: no channel configuration")

// StaticTable is a complete board-supplied table.
type StaticTable [NumVoltageChannels]ChannelConfig

func (t *StaticTable) ChannelConfigs() ([NumVoltageChannels]ChannelConfig, error) {
	if t == nil {
		return [NumVoltageChannels]ChannelConfig{}, ErrNoConfig
	}
	for i, c := range t {
		if c.Gain > 7 || c.Rate > 7 {
			return [NumVoltageChannels]ChannelConfig{}, &errcode.E{
				C: errcode.InvalidArgument, Op: "static table",
				Msg: "channel " + strconv.Itoa(i) + " index out of range",
			}
		}
	}
	return *t, nil
}

// Defaults gives every channel DefaultChannelConfig.
type Defaults struct{}

func (Defaults) ChannelConfigs() ([NumVoltageChannels]ChannelConfig, error) {
	return defaultTable(), nil
}

func defaultTable() [NumVoltageChannels]ChannelConfig {
	var t [NumVoltageChannels]ChannelConfig
	for i := range t {
		t[i] = DefaultChannelConfig
	}
	return t
}

// TreeNode is one node of a hardware description tree. Property returns a
// 32-bit cell and false when it is missing or malformed.
type TreeNode interface {
	Name() string
	Children() []TreeNode
	Property(name string) (uint32, bool)
}

// Tree property names.
const (
	PropReg      = "reg"
	PropGain     = "gain"
	PropDataRate = "datarate"
)

// Largest indices a tree may name. Gain 7 aliases 6 and is rejected.
const (
	maxTreeGain = 6
	maxTreeRate = 7
)

// TreeProvider reads per-channel children of a device node. Each child
// names its channel in "reg" and may carry "gain" and "datarate"; missing
// properties and channels take the defaults.
type TreeProvider struct {
	Root   TreeNode
	Logger *slog.Logger
}

func (p TreeProvider) ChannelConfigs() ([NumVoltageChannels]ChannelConfig, error) {
	if p.Root == nil {
		return [NumVoltageChannels]ChannelConfig{}, ErrNoConfig
	}
	kids := p.Root.Children()
	if len(kids) == 0 {
		return [NumVoltageChannels]ChannelConfig{}, ErrNoConfig
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}

	out := defaultTable()
	for _, n := range kids {
		reg, ok := n.Property(PropReg)
		if !ok {
			log.Warn("tree child without reg", "node", n.Name())
			continue
		}
		if reg >= NumVoltageChannels {
			log.Warn("tree child reg out of range", "node", n.Name(), "reg", reg)
			continue
		}
		cc := DefaultChannelConfig
		if g, ok := n.Property(PropGain); ok {
			if g > maxTreeGain {
				return [NumVoltageChannels]ChannelConfig{}, &errcode.E{
					C: errcode.InvalidArgument, Op: "tree",
					Msg: "invalid gain on " + n.Name(),
				}
			}
			cc.Gain = uint8(g)
		}
		if r, ok := n.Property(PropDataRate); ok {
			if r > maxTreeRate {
				return [NumVoltageChannels]ChannelConfig{}, &errcode.E{
					C: errcode.InvalidArgument, Op: "tree",
					Msg: "invalid data rate on " + n.Name(),
				}
			}
			cc.Rate = uint8(r)
		}
		out[reg] = cc
	}
	return out, nil
}

// resolveChannels asks providers in order and returns the first table
// produced. A provider error other than ErrNoConfig is logged and the
// defaults are used.
func resolveChannels(log *slog.Logger, providers ...ConfigProvider) [NumVoltageChannels]ChannelConfig {
	for _, p := range providers {
		if p == nil {
			continue
		}
		tbl, err := p.ChannelConfigs()
		switch {
		case err == nil:
			return tbl
		case errors.Is(err, ErrNoConfig):
			continue
		default:
			log.Error("channel configuration rejected, using defaults", "err", err)
			return defaultTable()
		}
	}
	return defaultTable()
}
