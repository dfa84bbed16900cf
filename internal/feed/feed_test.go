package feed

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/envmon/internal/clock"
	apperrors "codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/measurement"
	"codeberg.org/mutker/envmon/internal/platform"
	"codeberg.org/mutker/envmon/internal/sensor/sensortest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	set   measurement.Set
	clock *clock.FakeClock
}

func (r *fakeReader) ReadAll() measurement.Set {
	r.clock.Advance(250 * time.Millisecond)
	return r.set
}

type fakePlatform struct {
	cpus    []platform.CPU
	cpuErr  error
	info    measurement.Labels
	infoErr error
}

func (p *fakePlatform) CPUs() ([]platform.CPU, error) { return p.cpus, p.cpuErr }

func (p *fakePlatform) DeviceInfo() (measurement.Labels, error) { return p.info, p.infoErr }

func sensorSet(sensorType string, temp float64) measurement.Set {
	return measurement.Set{
		measurement.New(measurement.NameTemperature, "Temperature in Celsius", temp, nil),
		measurement.New(measurement.NameSensorInfo, "Sensor info", 1, measurement.Pairs("sensor_name", strings.ToUpper(sensorType))),
	}.WithLabel(measurement.LabelSensorType, sensorType)
}

func TestRender(t *testing.T) {
	clk := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	clk.Advance(400 * time.Second)

	set := append(sensorSet("bme680", 21), sensorSet("scd4x", 22.5)...)
	reader := &fakeReader{set: set, clock: clk}
	src := &fakePlatform{
		cpus: []platform.CPU{
			{ID: "0", Temperature: 48.312, HasTemperature: true, Frequency: 1.5e9, HasFrequency: true},
			{ID: "1", Temperature: 48.312, HasTemperature: true},
		},
		info: measurement.Pairs("cpu_frequency", "1500000000", "board_id", "aarch64"),
	}

	body, err := NewBuilder(reader, src, clk).Render(Timers{
		LastDiscovery:     300 * time.Second,
		DiscoveryPeriod:   360 * time.Second,
		LastDisplayUpdate: 395 * time.Second,
	})
	require.NoError(t, err)

	want := `# HELP sensor_temperature_celsius Temperature in Celsius
# TYPE sensor_temperature_celsius gauge
sensor_temperature_celsius{sensor_type="bme680"} 21.000
sensor_temperature_celsius{sensor_type="scd4x"} 22.500
# HELP sensor_info Sensor info
# TYPE sensor_info gauge
sensor_info{sensor_name="BME680", sensor_type="bme680"} 1.000
sensor_info{sensor_name="SCD4X", sensor_type="scd4x"} 1.000
# HELP microcontroller_measurement_time_seconds Time to measure metrics in seconds
# TYPE microcontroller_measurement_time_seconds gauge
microcontroller_measurement_time_seconds{} 0.250
# HELP microcontroller_cpu_temperature_celsius Temperature in Celsius
# TYPE microcontroller_cpu_temperature_celsius gauge
microcontroller_cpu_temperature_celsius{cpu="0"} 48.312
microcontroller_cpu_temperature_celsius{cpu="1"} 48.312
# HELP microcontroller_cpu_frequency_hz Frequency in hertz
# TYPE microcontroller_cpu_frequency_hz gauge
microcontroller_cpu_frequency_hz{cpu="0"} 1500000000
# HELP microcontroller_last_discovery_time_seconds Last discovery time in seconds
# TYPE microcontroller_last_discovery_time_seconds gauge
microcontroller_last_discovery_time_seconds{} 300.000
# HELP microcontroller_next_discovery_time_seconds Next discovery time in seconds
# TYPE microcontroller_next_discovery_time_seconds gauge
microcontroller_next_discovery_time_seconds{} 259.750
# HELP microcontroller_last_screen_update_time_seconds Last screen update time in seconds
# TYPE microcontroller_last_screen_update_time_seconds gauge
microcontroller_last_screen_update_time_seconds{} 395.000
# HELP microcontroller_info Microcontroller info
# TYPE microcontroller_info gauge
microcontroller_info{cpu_frequency="1500000000", board_id="aarch64"} 1.000
`
	assert.Equal(t, want, string(body))
}

func TestUnavailableAttributesAreOmitted(t *testing.T) {
	clk := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	src := &fakePlatform{
		cpuErr:  os.ErrNotExist,
		infoErr: apperrors.New().New(platform.ErrUnavailable),
	}

	ms, err := NewBuilder(&fakeReader{clock: clk}, src, clk).Build(Timers{DiscoveryPeriod: time.Minute})
	require.NoError(t, err)

	last := ms[len(ms)-1]
	assert.Equal(t, measurement.NameMicrocontrollerInfo, last.Name)
	assert.Empty(t, last.Labels)

	for _, m := range ms {
		assert.NotEqual(t, measurement.NameCPUTemperature, m.Name)
	}
}

func TestUnexpectedAccessorFaultPropagates(t *testing.T) {
	clk := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	src := &fakePlatform{infoErr: errors.New("i/o error")}

	_, err := NewBuilder(&fakeReader{clock: clk}, src, clk).Render(Timers{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDeviceInfo))
	assert.ErrorContains(t, err, "i/o error")
}

func TestCPUFaultKeepsResponse(t *testing.T) {
	clk := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	src := &fakePlatform{
		cpus:   []platform.CPU{{ID: "0", Frequency: 1.5e9, HasFrequency: true}},
		cpuErr: errors.New(`strconv.ParseInt: parsing "garbage": invalid syntax`),
		info:   measurement.Pairs("board_id", "aarch64"),
	}
	faults := &sensortest.Observer{}

	body, err := NewBuilder(&fakeReader{set: sensorSet("bme680", 21), clock: clk}, src, clk,
		WithFaultObserver(faults)).Render(Timers{DiscoveryPeriod: time.Minute})
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `sensor_temperature_celsius{sensor_type="bme680"} 21.000`)
	assert.Contains(t, out, `microcontroller_cpu_frequency_hz{cpu="0"} 1500000000`)
	assert.Contains(t, out, `microcontroller_info{board_id="aarch64"} 1.000`)
	assert.NotContains(t, out, "microcontroller_cpu_temperature_celsius")

	require.Len(t, faults.Faults, 1)
	assert.Equal(t, SourcePlatform, faults.Faults[0].Sensor)
	assert.Equal(t, PhaseCPU, faults.Faults[0].Phase)
	assert.True(t, apperrors.HasCode(faults.Faults[0].Err, platform.ErrAccessor))
}
