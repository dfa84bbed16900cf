package measurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelsWith(t *testing.T) {
	l := Pairs("a", "1", "b", "2")

	replaced := l.With("a", "9")
	assert.Equal(t, Labels{{"a", "9"}, {"b", "2"}}, replaced, "existing key keeps its position")
	assert.Equal(t, Labels{{"a", "1"}, {"b", "2"}}, l, "original is untouched")

	appended := l.With("c", "3")
	assert.Equal(t, Labels{{"a", "1"}, {"b", "2"}, {"c", "3"}}, appended)

	v, ok := appended.Get("c")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestLabelsWithDoesNotAlias(t *testing.T) {
	base := make(Labels, 0, 8)
	base = base.With("a", "1")

	x := base.With("x", "1")
	y := base.With("y", "2")

	assert.Equal(t, "x", x[1].Key)
	assert.Equal(t, "y", y[1].Key)
}

func TestMerge(t *testing.T) {
	l := Pairs("sensor_name", "SCD4X").Merge(Pairs("serial_number", "0xab", "sensor_name", "X"))
	assert.Equal(t, Labels{{"sensor_name", "X"}, {"serial_number", "0xab"}}, l)
}

func TestSetWithLabel(t *testing.T) {
	s := Set{
		New(NameTemperature, "Temperature in Celsius", 21, nil),
		New(NameSensorInfo, "Sensor info", 1, Pairs(LabelSensorName, "BME680")),
	}

	tagged := s.WithLabel(LabelSensorType, "bme680")

	for _, m := range tagged {
		v, ok := m.Labels.Get(LabelSensorType)
		assert.True(t, ok)
		assert.Equal(t, "bme680", v)
	}

	_, ok := s[0].Labels.Get(LabelSensorType)
	assert.False(t, ok, "source set is not mutated")
	assert.Len(t, s[1].Labels, 1)
}

func TestSetClone(t *testing.T) {
	s := Set{New(NameTemperature, "", 1, Pairs("a", "1"))}
	c := s.Clone()
	c[0].Labels[0].Value = "2"

	assert.Equal(t, "1", s[0].Labels[0].Value)
	assert.Nil(t, Set(nil).Clone())
}
