package display

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Terminal redraws a boxed panel on a console.
type Terminal struct {
	out io.Writer

	temperature string
	humidity    string
	pressure    string
	address     string
	timestamp   string

	valueStyle  lipgloss.Style
	footerStyle lipgloss.Style
	boxStyle    lipgloss.Style
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out: out,
		valueStyle: lipgloss.NewStyle().
			Bold(true).
			Width(12),
		footerStyle: lipgloss.NewStyle().
			Faint(true).
			Width(TimestampWidth),
		boxStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
	}
}

func (t *Terminal) SetTemperature(text string) { t.temperature = text }
func (t *Terminal) SetHumidity(text string)    { t.humidity = text }
func (t *Terminal) SetPressure(text string)    { t.pressure = text }
func (t *Terminal) SetAddress(text string)     { t.address = text }
func (t *Terminal) SetTimestamp(text string)   { t.timestamp = text }

// Render returns the panel without screen control sequences.
func (t *Terminal) Render() string {
	values := lipgloss.JoinHorizontal(lipgloss.Top,
		t.valueStyle.Render(t.temperature),
		t.valueStyle.Render(t.humidity),
		t.valueStyle.Render(t.pressure),
	)
	footer := lipgloss.JoinHorizontal(lipgloss.Top,
		t.footerStyle.Render(t.address),
		t.footerStyle.Render(t.timestamp),
	)

	return t.boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, values, "", footer))
}

// Close closes the console device when the Terminal was given one it can
// close and that is not a standard stream.
func (t *Terminal) Close() error {
	if t.out == os.Stdout || t.out == os.Stderr {
		return nil
	}
	if c, ok := t.out.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

func (t *Terminal) Flush() error {
	var sb strings.Builder
	sb.WriteString(ansi.EraseEntireScreen)
	sb.WriteString(ansi.CursorHomePosition)
	sb.WriteString(t.Render())
	sb.WriteByte('\n')

	_, err := io.WriteString(t.out, sb.String())

	return err
}
