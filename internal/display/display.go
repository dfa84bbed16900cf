// Package display renders the latest reading on a local panel.
package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"codeberg.org/mutker/envmon/internal/sensor"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// Adapter is a panel with five text fields. Setters only stage text;
// Flush pushes it to the device.
type Adapter interface {
	SetTemperature(text string)
	SetHumidity(text string)
	SetPressure(text string)
	SetAddress(text string)
	SetTimestamp(text string)
	Flush() error
}

// Adapter kinds accepted by New. KindAuto picks the terminal panel on an
// interactive console and none otherwise.
const (
	KindAuto     = "auto"
	KindTerminal = "terminal"
	KindFile     = "file"
	KindNone     = "none"
)

// TimestampWidth is the column width the timestamp is wrapped to.
const TimestampWidth = 20

// New returns the adapter named kind. output is the file path for the file
// adapter and the console device for the terminal adapter, which draws on
// stdout when output is empty. interactive tells KindAuto whether stdout is
// a console nobody else writes to.
func New(kind, output string, interactive bool) (Adapter, error) {
	switch kind {
	case KindAuto, "":
		if !interactive {
			return None{}, nil
		}
		return NewTerminal(os.Stdout), nil
	case KindTerminal:
		if output == "" {
			return NewTerminal(os.Stdout), nil
		}
		f, err := os.OpenFile(output, os.O_WRONLY, 0)
		if err != nil {
			return nil, errFactory.Wrap(ErrOpen, err)
		}
		return NewTerminal(f), nil
	case KindFile:
		if output == "" {
			return nil, errFactory.WithMessage(ErrUnknownAdapter, "file display requires an output path")
		}
		return NewFile(output), nil
	case KindNone:
		return None{}, nil
	}

	return nil, errFactory.WithData(ErrUnknownAdapter, kind)
}

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Panel formats readings for an Adapter.
type Panel struct {
	adapter Adapter
}

// NewPanel returns a Panel drawing on a.
func NewPanel(a Adapter) *Panel {
	return &Panel{adapter: a}
}

// SetAddress shows the agent's network address.
func (p *Panel) SetAddress(addr string) error {
	p.adapter.SetAddress(addr)
	return p.flush()
}

// Update shows snap, when present, and the time of the update. Pressure is
// left as is when the sensor does not measure it.
func (p *Panel) Update(snap sensor.Snapshot, ok bool, now time.Time) error {
	if ok {
		p.adapter.SetTemperature(FormatTemperature(snap.Temperature))
		p.adapter.SetHumidity(FormatHumidity(snap.Humidity))
		if snap.HasPressure {
			p.adapter.SetPressure(FormatPressure(snap.Pressure))
		}
	}
	p.adapter.SetTimestamp(FormatTimestamp(now))

	return p.flush()
}

// Close releases the adapter's device, if it holds one.
func (p *Panel) Close() error {
	if c, ok := p.adapter.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func (p *Panel) flush() error {
	if err := p.adapter.Flush(); err != nil {
		return errFactory.Wrap(ErrWrite, err)
	}

	return nil
}

func FormatTemperature(v float64) string {
	return fmt.Sprintf("%0.1f° C", v)
}

func FormatHumidity(v float64) string {
	return fmt.Sprintf("%0.1f %%", v)
}

func FormatPressure(v float64) string {
	return fmt.Sprintf("%0.2f", v)
}

// FormatTimestamp renders "Last update M/D/YYYY HH:MM:SS" wrapped to
// TimestampWidth columns.
func FormatTimestamp(t time.Time) string {
	text := fmt.Sprintf("Last update %d/%d/%d %02d:%02d:%02d",
		int(t.Month()), t.Day(), t.Year(), t.Hour(), t.Minute(), t.Second())

	return ansi.Wordwrap(text, TimestampWidth, "")
}

// None discards everything.
type None struct{}

func (None) SetTemperature(string) {}
func (None) SetHumidity(string)    {}
func (None) SetPressure(string)    {}
func (None) SetAddress(string)     {}
func (None) SetTimestamp(string)   {}
func (None) Flush() error          { return nil }
