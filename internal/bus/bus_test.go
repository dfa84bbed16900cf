package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

type closingBus struct {
	i2ctest.Record
	closed bool
}

func (b *closingBus) Close() error {
	b.closed = true
	return nil
}

func TestOpenerFunc(t *testing.T) {
	want := &closingBus{}
	var opener Opener = OpenerFunc(func() (i2c.BusCloser, error) {
		return want, nil
	})

	got, err := opener.Open()
	require.NoError(t, err)
	require.NoError(t, got.Close())
	assert.True(t, want.closed)
}

func TestPeriphString(t *testing.T) {
	assert.Equal(t, "i2c:default", NewPeriph("").String())
	assert.Equal(t, "i2c:1", NewPeriph("1").String())
}
