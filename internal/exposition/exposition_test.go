package exposition

import (
	"math"
	"strings"
	"testing"

	"codeberg.org/mutker/envmon/internal/measurement"
	"github.com/stretchr/testify/assert"
)

func TestRenderSingle(t *testing.T) {
	ms := []measurement.Measurement{
		measurement.New(measurement.NameTemperature, "Temperature in Celsius", 21.0,
			measurement.Pairs(measurement.LabelSensorType, "stub")),
	}

	want := "# HELP sensor_temperature_celsius Temperature in Celsius\n" +
		"# TYPE sensor_temperature_celsius gauge\n" +
		"sensor_temperature_celsius{sensor_type=\"stub\"} 21.000\n"

	assert.Equal(t, want, Render(ms))
}

func TestRenderFamilies(t *testing.T) {
	ms := []measurement.Measurement{
		measurement.New("a", "first", 1, measurement.Pairs("cpu", "0")),
		measurement.New("a", "first", 2, measurement.Pairs("cpu", "1")),
		measurement.New("b", "second", 3, nil),
	}

	want := "# HELP a first\n# TYPE a gauge\n" +
		"a{cpu=\"0\"} 1.000\n" +
		"a{cpu=\"1\"} 2.000\n" +
		"# HELP b second\n# TYPE b gauge\n" +
		"b{} 3.000\n"

	assert.Equal(t, want, Render(ms))
}

func TestRenderLabelOrderAndEscaping(t *testing.T) {
	m := measurement.New("x", "line\nbreak \\ here", 0.0005,
		measurement.Pairs("z", "last", "a", "q\"uote\\\n"))

	out := Render([]measurement.Measurement{m})

	assert.Contains(t, out, "# HELP x line\\nbreak \\\\ here\n")
	assert.Contains(t, out, `x{z="last", a="q\"uote\\\n"} 0.001`)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1012.340", FormatValue(1012.34, measurement.FormatFixed))
	assert.Equal(t, "-0.125", FormatValue(-0.125, measurement.FormatFixed))
	assert.Equal(t, "1500000000", FormatValue(1.5e9, measurement.FormatInteger))
	assert.Equal(t, "1200000000", FormatValue(1199999999.6, measurement.FormatInteger))
	assert.Equal(t, "NaN", FormatValue(math.NaN(), measurement.FormatFixed))
	assert.Equal(t, "+Inf", FormatValue(math.Inf(1), measurement.FormatInteger))
}

func TestGroup(t *testing.T) {
	ms := []measurement.Measurement{
		measurement.New("a", "", 1, nil),
		measurement.New("b", "", 2, nil),
		measurement.New("a", "", 3, nil),
		measurement.New("c", "", 4, nil),
		measurement.New("b", "", 5, nil),
	}

	grouped := Group(ms)

	var names []string
	var values []float64
	for _, m := range grouped {
		names = append(names, m.Name)
		values = append(values, m.Value)
	}

	assert.Equal(t, []string{"a", "a", "b", "b", "c"}, names)
	assert.Equal(t, []float64{1, 3, 2, 5, 4}, values, "order within a family is preserved")

	out := Render(grouped)
	for _, name := range []string{"a", "b", "c"} {
		assert.Equal(t, 1, strings.Count(out, "# TYPE "+name+" gauge"))
	}
}

func TestRenderEmpty(t *testing.T) {
	assert.Empty(t, Render(nil))
}
