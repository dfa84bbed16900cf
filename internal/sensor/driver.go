package sensor

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/envmon/internal/measurement"
	"periph.io/x/conn/v3/i2c"
)

// Field is a physical quantity a driver can report.
type Field int

const (
	Temperature Field = iota
	Humidity
	Pressure
	Gas
	CO2
)

var fieldSchema = map[Field]struct {
	name        string
	description string
}{
	Temperature: {measurement.NameTemperature, "Temperature in Celsius"},
	Humidity:    {measurement.NameHumidity, "Relative humidity in percent"},
	Pressure:    {measurement.NamePressure, "Pressure in hectopascal"},
	Gas:         {measurement.NameGas, "Gas resistance in ohms"},
	CO2:         {measurement.NameCO2, "CO2 in parts per million"},
}

// MetricName returns the exposition name of f.
func (f Field) MetricName() string {
	return fieldSchema[f].name
}

// Description returns the HELP text of f.
func (f Field) Description() string {
	return fieldSchema[f].description
}

func (f Field) String() string {
	switch f {
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Pressure:
		return "pressure"
	case Gas:
		return "gas"
	case CO2:
		return "co2"
	}

	return fmt.Sprintf("field(%d)", int(f))
}

// Sample is one raw reading keyed by field.
type Sample map[Field]float64

// Driver is the capability set every sensor implements. Drivers are used
// from a single goroutine and need not be safe for concurrent use.
type Driver interface {
	// Init brings the device into measuring state.
	Init() error
	// DataReady reports whether a new reading is available.
	DataReady() (bool, error)
	Read() (Sample, error)
	// Identity returns the labels published on sensor_info. It is captured
	// once after Init.
	Identity() measurement.Labels
	// Fields lists the fields Read returns, in exposition order.
	Fields() []Field
}

// Kind is a registered sensor type. Open must not perform bus I/O; that
// belongs in Driver.Init.
type Kind struct {
	Name string
	Open func(bus i2c.Bus) (Driver, error)
}

// Registry is the closed set of kinds the agent can be configured with.
type Registry struct {
	kinds []Kind
}

// NewRegistry returns a Registry holding kinds in order.
func NewRegistry(kinds ...Kind) *Registry {
	return &Registry{kinds: kinds}
}

// Select returns the kinds named in names, in the given order. An empty
// list selects every registered kind.
func (r *Registry) Select(names []string) ([]Kind, error) {
	if len(names) == 0 {
		out := make([]Kind, len(r.kinds))
		copy(out, r.kinds)
		return out, nil
	}

	out := make([]Kind, 0, len(names))
	for _, name := range names {
		k, ok := r.lookup(strings.TrimSpace(name))
		if !ok {
			return nil, errFactory.WithData(ErrUnknownKind, struct {
				Kind      string
				Available string
			}{
				Kind:      name,
				Available: strings.Join(r.Names(), ","),
			})
		}
		out = append(out, k)
	}

	return out, nil
}

// Names lists the registered kind names.
func (r *Registry) Names() []string {
	names := make([]string, len(r.kinds))
	for i, k := range r.kinds {
		names[i] = k.Name
	}

	return names
}

func (r *Registry) lookup(name string) (Kind, bool) {
	for _, k := range r.kinds {
		if strings.EqualFold(k.Name, name) {
			return k, true
		}
	}

	return Kind{}, false
}
