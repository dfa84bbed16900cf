package display

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "codeberg.org/mutker/envmon/internal/errors"
	"codeberg.org/mutker/envmon/internal/sensor"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type recorder struct {
	fields   map[string]string
	flushes  int
	flushErr error
}

func newRecorder() *recorder {
	return &recorder{fields: map[string]string{}}
}

func (r *recorder) SetTemperature(text string) { r.fields["temperature"] = text }
func (r *recorder) SetHumidity(text string)    { r.fields["humidity"] = text }
func (r *recorder) SetPressure(text string)    { r.fields["pressure"] = text }
func (r *recorder) SetAddress(text string)     { r.fields["address"] = text }
func (r *recorder) SetTimestamp(text string)   { r.fields["timestamp"] = text }

func (r *recorder) Flush() error {
	r.flushes++
	return r.flushErr
}

func TestFormats(t *testing.T) {
	assert.Equal(t, "21.0° C", FormatTemperature(21.04))
	assert.Equal(t, "45.1 %", FormatHumidity(45.06))
	assert.Equal(t, "1012.34", FormatPressure(1012.3449))
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 5, 9, 0, time.UTC)
	got := FormatTimestamp(ts)

	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), TimestampWidth, line)
	}
	assert.Equal(t, "Last update 12/31/2024 23:05:09", strings.Join(strings.Fields(got), " "))
	assert.Contains(t, got, "\n")
}

func TestPanelUpdate(t *testing.T) {
	rec := newRecorder()
	p := NewPanel(rec)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, p.SetAddress("192.168.1.20"))
	require.NoError(t, p.Update(sensor.Snapshot{Temperature: 21, Humidity: 45, Pressure: 1012.34, HasPressure: true}, true, now))

	assert.Equal(t, "21.0° C", rec.fields["temperature"])
	assert.Equal(t, "45.0 %", rec.fields["humidity"])
	assert.Equal(t, "1012.34", rec.fields["pressure"])
	assert.Equal(t, "192.168.1.20", rec.fields["address"])
	assert.Equal(t, 2, rec.flushes)

	require.NoError(t, p.Update(sensor.Snapshot{Temperature: 23, Humidity: 40}, true, now))
	assert.Equal(t, "1012.34", rec.fields["pressure"], "pressure is kept when the sensor lacks it")
	assert.Equal(t, "23.0° C", rec.fields["temperature"])

	delete(rec.fields, "temperature")
	require.NoError(t, p.Update(sensor.Snapshot{}, false, now.Add(time.Minute)))
	_, ok := rec.fields["temperature"]
	assert.False(t, ok, "no snapshot leaves readings alone")
	assert.Contains(t, strings.Join(strings.Fields(rec.fields["timestamp"]), " "), "08:01:00")
}

func TestPanelFlushError(t *testing.T) {
	rec := newRecorder()
	rec.flushErr = errors.New("panel unplugged")

	err := NewPanel(rec).Update(sensor.Snapshot{}, false, time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, ErrWrite))
	assert.ErrorIs(t, err, rec.flushErr)
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	p := NewPanel(term)

	require.NoError(t, p.SetAddress("10.0.0.5"))
	require.NoError(t, p.Update(sensor.Snapshot{Temperature: 19.5, Humidity: 52, Pressure: 998.1, HasPressure: true}, true,
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, ansi.EraseEntireScreen+ansi.CursorHomePosition))

	plain := ansi.Strip(term.Render())
	for _, want := range []string{"19.5° C", "52.0 %", "998.10", "10.0.0.5", "Last update"} {
		assert.Contains(t, plain, want)
	}
}

func TestFileAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	p := NewPanel(NewFile(path))

	require.NoError(t, p.SetAddress("10.0.0.5"))
	require.NoError(t, p.Update(sensor.Snapshot{Temperature: 19.5, Humidity: 52}, true,
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "19.5° C", doc.Temperature)
	assert.Equal(t, "52.0 %", doc.Humidity)
	assert.Empty(t, doc.Pressure)
	assert.Equal(t, "10.0.0.5", doc.Address)
	assert.Equal(t, "Last update 1/2/2024 03:04:05", strings.Join(strings.Fields(doc.Timestamp), " "))

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".panel.yaml.*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no temporary files left behind")
}

func TestFileAdapterMissingDirectory(t *testing.T) {
	err := NewPanel(NewFile(filepath.Join(t.TempDir(), "missing", "panel.yaml"))).SetAddress("x")
	assert.True(t, apperrors.HasCode(err, ErrWrite))
}

func TestNew(t *testing.T) {
	a, err := New(KindNone, "", true)
	require.NoError(t, err)
	assert.NoError(t, a.Flush())

	_, err = New(KindFile, "", true)
	assert.True(t, apperrors.HasCode(err, ErrUnknownAdapter))

	_, err = New("epaper", "", true)
	assert.True(t, apperrors.HasCode(err, ErrUnknownAdapter))

	a, err = New(KindTerminal, "", false)
	require.NoError(t, err)
	assert.IsType(t, &Terminal{}, a)
}

func TestNewAutoStaysOffStdoutWhenNotInteractive(t *testing.T) {
	a, err := New(KindAuto, "", false)
	require.NoError(t, err)
	assert.Equal(t, None{}, a)

	a, err = New(KindAuto, "", true)
	require.NoError(t, err)
	assert.IsType(t, &Terminal{}, a)
}

func TestNewTerminalOnDevice(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "tty1")
	require.NoError(t, os.WriteFile(dev, nil, 0o600))

	a, err := New(KindTerminal, dev, false)
	require.NoError(t, err)

	panel := NewPanel(a)
	require.NoError(t, panel.SetAddress("192.168.1.20"))
	require.NoError(t, panel.Close())

	b, err := os.ReadFile(dev)
	require.NoError(t, err)
	assert.Contains(t, string(b), "192.168.1.20")

	_, err = New(KindTerminal, filepath.Join(t.TempDir(), "missing", "tty"), false)
	assert.True(t, apperrors.HasCode(err, ErrOpen))
}
