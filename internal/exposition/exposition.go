// Package exposition renders measurements in the Prometheus text format.
package exposition

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"

	"codeberg.org/mutker/envmon/internal/measurement"
)

// ContentType is the media type of the rendered feed.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

var (
	labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
)

// Write renders ms to w in input order. HELP and TYPE are written at the
// start of every run of consecutive measurements sharing a name.
func Write(w io.Writer, ms []measurement.Measurement) error {
	bw := bufio.NewWriter(w)

	prev := ""
	for i, m := range ms {
		if i == 0 || m.Name != prev {
			writeHeader(bw, m)
			prev = m.Name
		}
		writeSample(bw, m)
	}

	return bw.Flush()
}

// Render returns the exposition of ms as a string.
func Render(ms []measurement.Measurement) string {
	var buf bytes.Buffer
	_ = Write(&buf, ms)

	return buf.String()
}

// Group stably reorders ms so all measurements of one name are contiguous,
// families ordered by first appearance.
func Group(ms []measurement.Measurement) []measurement.Measurement {
	order := make([]string, 0, len(ms))
	families := make(map[string][]measurement.Measurement, len(ms))

	for _, m := range ms {
		if _, ok := families[m.Name]; !ok {
			order = append(order, m.Name)
		}
		families[m.Name] = append(families[m.Name], m)
	}

	out := make([]measurement.Measurement, 0, len(ms))
	for _, name := range order {
		out = append(out, families[name]...)
	}

	return out
}

func writeHeader(w *bufio.Writer, m measurement.Measurement) {
	w.WriteString("# HELP ")
	w.WriteString(m.Name)
	w.WriteByte(' ')
	w.WriteString(helpEscaper.Replace(m.Description))
	w.WriteString("\n# TYPE ")
	w.WriteString(m.Name)
	w.WriteByte(' ')
	kind := m.Kind
	if kind == "" {
		kind = measurement.Gauge
	}
	w.WriteString(string(kind))
	w.WriteByte('\n')
}

func writeSample(w *bufio.Writer, m measurement.Measurement) {
	w.WriteString(m.Name)
	w.WriteByte('{')
	for i, l := range m.Labels {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(l.Key)
		w.WriteString(`="`)
		w.WriteString(labelEscaper.Replace(l.Value))
		w.WriteByte('"')
	}
	w.WriteString("} ")
	w.WriteString(FormatValue(m.Value, m.Format))
	w.WriteByte('\n')
}

// FormatValue renders v according to f.
func FormatValue(v float64, f measurement.Format) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}

	if f == measurement.FormatInteger {
		return strconv.FormatInt(int64(math.Round(v)), 10)
	}

	return strconv.FormatFloat(v, 'f', 3, 64)
}
