package ads1015

import (
	"strconv"

	"ads1015-go/errcode"
)

// ChannelConfig is the per-channel gain and rate selection, both 3-bit
// register indices.
type ChannelConfig struct {
	Gain uint8 `json:"gain"`
	Rate uint8 `json:"datarate"`
}

// Defaults applied to any channel without an explicit configuration.
const (
	DefaultGain uint8 = 2 // ±2.048 V
	DefaultRate uint8 = 4 // 1600 SPS (ADS1015), 128 SPS (ADS1115)
)

// DefaultChannelConfig is the uniform default entry.
var DefaultChannelConfig = ChannelConfig{Gain: DefaultGain, Rate: DefaultRate}

// store holds one ChannelConfig per voltage channel. Callers serialise
// access with the device lock.
type store struct {
	rates *[8]int
	cfg   [NumVoltageChannels]ChannelConfig
}

func newStore(ci *chipInfo, tbl [NumVoltageChannels]ChannelConfig) store {
	return store{rates: &ci.rates, cfg: tbl}
}

func (s *store) get(ch Channel) (ChannelConfig, error) {
	if !ch.Valid() {
		return ChannelConfig{}, badChannel("get", ch)
	}
	return s.cfg[ch], nil
}

// setGain selects the first gain index whose full-scale value equals mV
// exactly.
func (s *store) setGain(ch Channel, mV int) error {
	if !ch.Valid() {
		return badChannel("set gain", ch)
	}
	for i, fs := range fullScaleMilliV {
		if fs == mV {
			s.cfg[ch].Gain = uint8(i)
			return nil
		}
	}
	return &errcode.E{C: errcode.InvalidArgument, Op: "set gain", Msg: "no full-scale range of " + strconv.Itoa(mV) + " mV"}
}

// setRate selects the first rate index equal to sps. On the ADS1015 the
// duplicated top rate resolves to index 6.
func (s *store) setRate(ch Channel, sps int) error {
	if !ch.Valid() {
		return badChannel("set rate", ch)
	}
	for i, r := range s.rates {
		if r == sps {
			s.cfg[ch].Rate = uint8(i)
			return nil
		}
	}
	return &errcode.E{C: errcode.InvalidArgument, Op: "set rate", Msg: "unsupported rate " + strconv.Itoa(sps) + " SPS"}
}

func badChannel(op string, ch Channel) error {
	return &errcode.E{C: errcode.InvalidArgument, Op: op, Msg: "not a voltage channel: " + strconv.Itoa(int(ch))}
}
