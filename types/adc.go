package types

// ------------------------
// ADC
// ------------------------

type ADCInfo struct {
	Sensor  string `json:"sensor"` // "ads1015", "ads1115"
	Addr    uint16 `json:"addr"`   // I2C address
	Bus     string `json:"bus"`    // "i2c-1", "sim"
	Streams bool   `json:"streams"`
}

// ADCReading is one on-demand conversion.
type ADCReading struct {
	Channel string `json:"channel"` // "AIN0", "AIN0-AIN1", ...
	Raw     int    `json:"raw"`     // sign-extended counts
	// Microvolts; scale is FullScaleMilliV / 2^ScaleShift mV per count.
	MicroV          int64 `json:"uv"`
	FullScaleMilliV int   `json:"fs_mv"`
	ScaleShift      uint8 `json:"scale_shift"`
	RateSPS         int   `json:"rate_sps"`
}

// ADCRecord is one buffered sample.
type ADCRecord struct {
	Channel string `json:"channel"`
	Raw     int    `json:"raw"`
	MicroV  int64  `json:"uv"`
	TSns    int64  `json:"ts_ns"` // monotonic, edge time
}

type ADCStats struct {
	Edges      uint32 `json:"edges"`
	Coalesced  uint32 `json:"coalesced"`
	Delivered  uint32 `json:"delivered"`
	Dropped    uint32 `json:"dropped"`
	ReadErrors uint32 `json:"read_errors"`
}
