package ads1015

// 7-bit I2C addresses, selected by the ADDR pin strap.
const (
	AddressGND = 0x48
	AddressVDD = 0x49
	AddressSDA = 0x4A
	AddressSCL = 0x4B

	AddressDefault = AddressGND
)

// Register pointer values (16-bit word registers).
const (
	RegConversion uint8 = 0x00 // R
	RegConfig     uint8 = 0x01 // R/W
	RegLoThresh   uint8 = 0x02 // R/W, ready-pin low latch
	RegHiThresh   uint8 = 0x03 // R/W, ready-pin high latch
)

// Mode is the MODE bit of the config register.
type Mode uint8

const (
	ModeContinuous Mode = 0
	ModeSingleShot Mode = 1
)

// Comparator queue field; 3 disables the comparator and ALERT/RDY.
const (
	CompQueueAssertOne uint8 = 0
	CompQueueDisable   uint8 = 3
)

// field is a fixed-width sub-field of the config word.
type field struct{ shift, width uint8 }

func (f field) mask() uint16 { return uint16(1<<f.width-1) << f.shift }

var (
	fieldCompQueue = field{shift: 0, width: 2}
	fieldCompLatch = field{shift: 2, width: 1}
	fieldCompPol   = field{shift: 3, width: 1}
	fieldCompMode  = field{shift: 4, width: 1}
	fieldRate      = field{shift: 5, width: 3}
	fieldMode      = field{shift: 8, width: 1}
	fieldGain      = field{shift: 9, width: 3}
	fieldMux       = field{shift: 12, width: 3}
	fieldStart     = field{shift: 15, width: 1}
)

// CfgWord is the 16-bit config register value with named field accessors.
//
//	15    OS (start / busy)
//	14:12 MUX
//	11:9  PGA (gain index)
//	8     MODE
//	7:5   DR (rate index)
//	4     COMP_MODE
//	3     COMP_POL
//	2     COMP_LAT
//	1:0   COMP_QUE
type CfgWord uint16

func (c CfgWord) get(f field) uint8 { return uint8((uint16(c) & f.mask()) >> f.shift) }

func (c CfgWord) with(f field, v uint8) CfgWord {
	return CfgWord(uint16(c)&^f.mask() | (uint16(v)<<f.shift)&f.mask())
}

func (c CfgWord) Start() bool        { return c.get(fieldStart) != 0 }
func (c CfgWord) Mux() uint8         { return c.get(fieldMux) }
func (c CfgWord) Gain() uint8        { return c.get(fieldGain) }
func (c CfgWord) Mode() Mode         { return Mode(c.get(fieldMode)) }
func (c CfgWord) Rate() uint8        { return c.get(fieldRate) }
func (c CfgWord) CompWindow() bool   { return c.get(fieldCompMode) != 0 }
func (c CfgWord) CompActiveHi() bool { return c.get(fieldCompPol) != 0 }
func (c CfgWord) CompLatch() bool    { return c.get(fieldCompLatch) != 0 }
func (c CfgWord) CompQueue() uint8   { return c.get(fieldCompQueue) }

func (c CfgWord) WithMux(v uint8) CfgWord       { return c.with(fieldMux, v) }
func (c CfgWord) WithGain(v uint8) CfgWord      { return c.with(fieldGain, v) }
func (c CfgWord) WithMode(m Mode) CfgWord       { return c.with(fieldMode, uint8(m)) }
func (c CfgWord) WithRate(v uint8) CfgWord      { return c.with(fieldRate, v) }
func (c CfgWord) WithCompQueue(v uint8) CfgWord { return c.with(fieldCompQueue, v) }

func (c CfgWord) WithStart(on bool) CfgWord {
	if on {
		return c.with(fieldStart, 1)
	}
	return c.with(fieldStart, 0)
}

// Masks for read-modify-write through the regmap.
var (
	maskMuxGainRate = fieldMux.mask() | fieldGain.mask() | fieldRate.mask()
	maskMode        = fieldMode.mask()
	maskCompQueue   = fieldCompQueue.mask()
)

func regName(reg uint8) string {
	switch reg {
	case RegConversion:
		return "conversion"
	case RegConfig:
		return "config"
	case RegLoThresh:
		return "lo_thresh"
	case RegHiThresh:
		return "hi_thresh"
	default:
		return "unknown"
	}
}
