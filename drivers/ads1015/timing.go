package ads1015

import (
	"time"

	"ads1015-go/x/mathx"
)

// ConversionTime is the wait after a config change before the conversion
// register holds a sample taken under the new settings: one period at the
// old rate to flush the in-flight conversion, one at the new rate, plus
// 10% for the internal oscillator tolerance.
func ConversionTime(rates *[8]int, oldRate, newRate uint8) time.Duration {
	us := mathx.CeilDiv(uint32(1_000_000), uint32(rates[oldRate&7])) +
		mathx.CeilDiv(uint32(1_000_000), uint32(rates[newRate&7]))
	us += us / 10
	return time.Duration(us) * time.Microsecond
}
