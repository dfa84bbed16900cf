package logger

import (
	"bytes"
	"io"
	"testing"

	"codeberg.org/mutker/envmon/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(&buf, false, false, true)

	ErrorWithCode(errors.New().Wrap(errors.ErrDisplayFault, io.EOF)).Msg("refresh")

	out := buf.String()
	assert.Contains(t, out, "refresh")
	assert.Contains(t, out, "error_code=display_fault")
	assert.Contains(t, out, "EOF")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(&buf, false, false, true)

	Info().Msg("hidden")
	Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	InitWithOutput(&buf, true, false, true)
	Debug().Msg("debugging")
	assert.Contains(t, buf.String(), "debugging")
}

func TestParseLevel(t *testing.T) {
	level, ok := ParseLevel("INFO")
	assert.True(t, ok)
	assert.Equal(t, InfoLevel, level)

	_, ok = ParseLevel("verbose-ish")
	assert.False(t, ok)
}

func TestErrorWithContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(&buf, false, false, true)

	Default().ErrorWithContext(errors.New().New(errors.ErrPollFailed), "scheduler", "poll").Send()

	assert.Contains(t, buf.String(), "component=scheduler")
	assert.Contains(t, buf.String(), "operation=poll")
}
