package ads1015

import (
	"strings"

	"ads1015-go/x/mathx"
)

// Variant selects the chip within the family. Variants differ only in
// resolution and data-rate table.
type Variant uint8

const (
	ADS1015 Variant = iota // 12-bit
	ADS1115                // 16-bit
)

func (v Variant) String() string {
	switch v {
	case ADS1015:
		return "ads1015"
	case ADS1115:
		return "ads1115"
	default:
		return "unknown"
	}
}

// ParseVariant accepts "ads1015" or "ads1115" (case-insensitive).
func ParseVariant(s string) (Variant, bool) {
	switch strings.ToLower(s) {
	case "ads1015":
		return ADS1015, true
	case "ads1115":
		return ADS1115, true
	default:
		return 0, false
	}
}

// Full-scale input range in mV per PGA index. Shared by both variants.
var fullScaleMilliV = [8]int{6144, 4096, 2048, 1024, 512, 256, 256, 256}

// ScanType describes how a sample sits in its 16-bit storage word.
type ScanType struct {
	Signed      bool
	RealBits    uint8
	StorageBits uint8
	Shift       uint8
}

// Decode sign-extends the significant bits of a raw conversion word.
func (s ScanType) Decode(word uint16) int32 {
	return mathx.SignExtend(uint32(word>>s.Shift), uint(15-s.Shift))
}

type chipInfo struct {
	variant        Variant
	rates          [8]int
	scan           ScanType
	scaleAvailable string
	rateAvailable  []int
}

var chips = [...]chipInfo{
	ADS1015: {
		variant:        ADS1015,
		rates:          [8]int{128, 250, 490, 920, 1600, 2400, 3300, 3300},
		scan:           ScanType{Signed: true, RealBits: 12, StorageBits: 16, Shift: 4},
		scaleAvailable: "3 2 1 0.5 0.25 0.125",
		rateAvailable:  []int{128, 250, 490, 920, 1600, 2400, 3300},
	},
	ADS1115: {
		variant:        ADS1115,
		rates:          [8]int{8, 16, 32, 64, 128, 250, 475, 860},
		scan:           ScanType{Signed: true, RealBits: 16, StorageBits: 16},
		scaleAvailable: "0.1875 0.125 0.0625 0.03125 0.015625 0.007813",
		rateAvailable:  []int{8, 16, 32, 64, 128, 250, 475, 860},
	},
}

func (v Variant) info() (*chipInfo, bool) {
	if int(v) >= len(chips) {
		return nil, false
	}
	return &chips[v], true
}

// Channel is an input multiplexer selection. The value is the MUX field
// code, so it indexes every per-channel table.
type Channel uint8

const (
	AIN0_AIN1 Channel = iota
	AIN0_AIN3
	AIN1_AIN3
	AIN2_AIN3
	AIN0
	AIN1
	AIN2
	AIN3
	Timestamp // buffered delivery only
)

// NumVoltageChannels is the number of real (multiplexed) inputs.
const NumVoltageChannels = 8

// Valid reports whether c is a voltage channel.
func (c Channel) Valid() bool { return c < Timestamp }

var channelNames = [...]string{
	AIN0_AIN1: "AIN0-AIN1",
	AIN0_AIN3: "AIN0-AIN3",
	AIN1_AIN3: "AIN1-AIN3",
	AIN2_AIN3: "AIN2-AIN3",
	AIN0:      "AIN0",
	AIN1:      "AIN1",
	AIN2:      "AIN2",
	AIN3:      "AIN3",
	Timestamp: "timestamp",
}

func (c Channel) String() string {
	if int(c) < len(channelNames) {
		return channelNames[c]
	}
	return "invalid"
}

// ParseChannel maps a datasheet name ("AIN0", "AIN0-AIN1") to a Channel.
func ParseChannel(s string) (Channel, bool) {
	for i, n := range channelNames {
		if strings.EqualFold(n, s) {
			return Channel(i), true
		}
	}
	return 0, false
}

// ChannelSpec is the descriptive entry for one channel.
type ChannelSpec struct {
	Channel      Channel
	Name         string
	Differential bool
	Pos, Neg     int // AIN indices; Neg is -1 for single-ended
	Scan         ScanType
}

var channelPins = [NumVoltageChannels][2]int{
	AIN0_AIN1: {0, 1},
	AIN0_AIN3: {0, 3},
	AIN1_AIN3: {1, 3},
	AIN2_AIN3: {2, 3},
	AIN0:      {0, -1},
	AIN1:      {1, -1},
	AIN2:      {2, -1},
	AIN3:      {3, -1},
}

func (ci *chipInfo) channelSpecs() []ChannelSpec {
	out := make([]ChannelSpec, 0, NumVoltageChannels+1)
	for c := AIN0_AIN1; c < Timestamp; c++ {
		p := channelPins[c]
		out = append(out, ChannelSpec{
			Channel:      c,
			Name:         c.String(),
			Differential: p[1] >= 0,
			Pos:          p[0],
			Neg:          p[1],
			Scan:         ci.scan,
		})
	}
	out = append(out, ChannelSpec{
		Channel: Timestamp,
		Name:    Timestamp.String(),
		Pos:     -1,
		Neg:     -1,
		Scan:    ScanType{Signed: true, RealBits: 64, StorageBits: 64},
	})
	return out
}
