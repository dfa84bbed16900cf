// Package measurement holds the data model shared by sensors, the feed
// builder and the exposition writer.
package measurement

// Kind is the exposition type of a measurement.
type Kind string

const (
	Gauge Kind = "gauge"
)

// Format selects how a value is rendered.
type Format int

const (
	// FormatFixed renders three decimal places.
	FormatFixed Format = iota
	// FormatInteger renders a rounded integer.
	FormatInteger
)

// Metric names
const (
	NameTemperature         = "sensor_temperature_celsius"
	NameHumidity            = "sensor_humidity_percent"
	NamePressure            = "sensor_pressure_hpa"
	NameGas                 = "sensor_gas_ohms"
	NameCO2                 = "sensor_co2_ppm"
	NameSensorInfo          = "sensor_info"
	NameSensorError         = "sensor_is_error"
	NameLastMeasurementTime = "last_measurement_time"

	NameMeasurementTime     = "microcontroller_measurement_time_seconds"
	NameCPUTemperature      = "microcontroller_cpu_temperature_celsius"
	NameCPUFrequency        = "microcontroller_cpu_frequency_hz"
	NameLastDiscovery       = "microcontroller_last_discovery_time_seconds"
	NameNextDiscovery       = "microcontroller_next_discovery_time_seconds"
	NameLastScreenUpdate    = "microcontroller_last_screen_update_time_seconds"
	NameMicrocontrollerInfo = "microcontroller_info"
)

// Label keys
const (
	LabelSensorType   = "sensor_type"
	LabelSensorName   = "sensor_name"
	LabelSerialNumber = "serial_number"
	LabelCPU          = "cpu"
	LabelCPUFrequency = "cpu_frequency"
	LabelBoardID      = "board_id"
	LabelBoardName    = "board_name"
	LabelNVMBytes     = "nvm_bytes_count"
)

// Measurement is a single named, labeled value. Values are never mutated in
// place; the With* methods return copies.
type Measurement struct {
	Name        string
	Description string
	Kind        Kind
	Value       float64
	Labels      Labels
	Format      Format
}

// New returns a gauge measurement with fixed formatting.
func New(name, description string, value float64, labels Labels) Measurement {
	return Measurement{
		Name:        name,
		Description: description,
		Kind:        Gauge,
		Value:       value,
		Labels:      labels,
		Format:      FormatFixed,
	}
}

// WithLabel returns a copy of m with key set to value.
func (m Measurement) WithLabel(key, value string) Measurement {
	m.Labels = m.Labels.With(key, value)
	return m
}

// WithFormat returns a copy of m rendered with f.
func (m Measurement) WithFormat(f Format) Measurement {
	m.Format = f
	return m
}

// Set is the ordered output of one read cycle.
type Set []Measurement

// Clone returns a copy of s that shares no label storage with it.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}

	out := make(Set, len(s))
	for i, m := range s {
		m.Labels = m.Labels.Clone()
		out[i] = m
	}

	return out
}

// WithLabel returns a copy of s with key set to value on every measurement.
func (s Set) WithLabel(key, value string) Set {
	if s == nil {
		return nil
	}

	out := make(Set, len(s))
	for i, m := range s {
		out[i] = m.WithLabel(key, value)
	}

	return out
}

// Find returns the first measurement named name.
func (s Set) Find(name string) (Measurement, bool) {
	for _, m := range s {
		if m.Name == name {
			return m, true
		}
	}

	return Measurement{}, false
}
