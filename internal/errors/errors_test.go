package errors_test

import (
	"fmt"
	"io"
	"testing"

	"codeberg.org/mutker/envmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessages(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "Display refresh failed", errFactory.New(errors.ErrDisplayFault).Error())
	assert.Equal(t, "Display refresh failed: EOF", errFactory.Wrap(errors.ErrDisplayFault, io.EOF).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errors.ErrDisplayFault, "custom").Error())
	assert.Equal(t, "Invalid configuration: bad", errFactory.WithData(errors.ErrInvalidConfig, "bad").Error())
	assert.Equal(t, "unknown_code", errFactory.New(errors.ErrorCode("unknown_code")).Error())
}

func TestWrapUnwrap(t *testing.T) {
	err := errors.New().Wrap(errors.ErrPollFailed, io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, errors.New().New(errors.ErrPollFailed))
	assert.NotErrorIs(t, err, errors.New().New(errors.ErrDisplayFault))
}

func TestCodeOf(t *testing.T) {
	inner := errors.New().Wrap(errors.ErrDeviceInfo, io.EOF)
	outer := fmt.Errorf("context: %w", inner)

	code, ok := errors.CodeOf(outer)
	require.True(t, ok)
	assert.Equal(t, errors.ErrDeviceInfo, code)

	_, ok = errors.CodeOf(io.EOF)
	assert.False(t, ok)

	assert.True(t, errors.HasCode(outer, errors.ErrDeviceInfo))
	assert.False(t, errors.HasCode(outer, errors.ErrDisplayFault))
}
