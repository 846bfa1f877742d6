package domain

// SensorKind names a measured quantity reported by a device sample,
// e.g. "co2". Provider sensor sets evolve over time, so values outside the
// recognized set can appear on the wire.
type SensorKind string

// Recognized sensor kinds. Every Awair device reports a subset of these;
// lux and spl_a depend on device capability.
const (
	SensorTemp  SensorKind = "temp"
	SensorHumid SensorKind = "humid"
	SensorCO2   SensorKind = "co2"
	SensorVOC   SensorKind = "voc"
	SensorPM25  SensorKind = "pm25"
	SensorLux   SensorKind = "lux"
	SensorSPLA  SensorKind = "spl_a"
)

// Recognized reports whether the kind is part of the known sensor set.
func (k SensorKind) Recognized() bool {
	switch k {
	case SensorTemp, SensorHumid, SensorCO2, SensorVOC, SensorPM25, SensorLux, SensorSPLA:
		return true
	}
	return false
}

// Sample is one 5-minute-average reading from a device.
//
// The sensor set is not guaranteed complete: a device reports only the kinds
// it supports, and the provider may introduce kinds this code does not know.
type Sample struct {
	// Timestamp is the provider's ISO-8601 timestamp, kept verbatim to
	// avoid timezone drift from re-parsing.
	Timestamp string
	// Score is the 0-100 composite air-quality score.
	Score float64
	// Sensors maps sensor kind to its measured value.
	Sensors map[SensorKind]float64
}

// TemperatureUnit selects the unit for temperature values in sample requests.
type TemperatureUnit string

const (
	UnitCelsius    TemperatureUnit = "celsius"
	UnitFahrenheit TemperatureUnit = "fahrenheit"
)
