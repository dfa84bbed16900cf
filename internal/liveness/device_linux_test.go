package liveness

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "codeberg.org/mutker/envmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDeviceMissing(t *testing.T) {
	_, err := OpenDevice(filepath.Join(t.TempDir(), "watchdog"), DefaultTimeout)
	assert.True(t, apperrors.HasCode(err, ErrDevice))
}

func TestOpenDeviceNotAWatchdog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := OpenDevice(path, DefaultTimeout)
	assert.True(t, apperrors.HasCode(err, ErrDevice), "regular files reject the timeout ioctl")
}

func TestDeviceMagicClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	d, err := OpenDevice(path, 0)
	require.NoError(t, err)

	assert.True(t, apperrors.HasCode(d.Feed(), ErrDevice))
	require.NoError(t, d.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "V", string(data))
}
