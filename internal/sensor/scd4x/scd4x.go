// Package scd4x drives a Sensirion SCD40/SCD41 CO2 sensor over I²C in
// periodic measurement mode.
package scd4x

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/envmon/internal/measurement"
	"codeberg.org/mutker/envmon/internal/sensor"
	"periph.io/x/conn/v3/i2c"
)

// Name is the kind name used in configuration and on sensor_type.
const Name = "scd4x"

// DefaultAddress is the fixed address of the SCD4x family.
const DefaultAddress uint16 = 0x62

const (
	cmdStartPeriodic   = 0x21B1
	cmdStopPeriodic    = 0x3F86
	cmdReadMeasurement = 0xEC05
	cmdDataReady       = 0xE4B8
	cmdSerialNumber    = 0x3682

	stopDelay    = 500 * time.Millisecond
	commandDelay = time.Millisecond
)

var fields = []sensor.Field{sensor.CO2, sensor.Temperature, sensor.Humidity}

// Dev is an SCD4x on a bus.
type Dev struct {
	dev    i2c.Dev
	sleep  func(time.Duration)
	serial string
}

// Option configures a Dev.
type Option func(*Dev)

// WithSleep replaces time.Sleep for the waits the chip requires.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Dev) {
		d.sleep = sleep
	}
}

// New returns an uninitialized Dev on bus.
func New(bus i2c.Bus, opts ...Option) *Dev {
	d := &Dev{
		dev:   i2c.Dev{Bus: bus, Addr: DefaultAddress},
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Kind registers the driver for the sensor manager.
func Kind(opts ...Option) sensor.Kind {
	return sensor.Kind{
		Name: Name,
		Open: func(bus i2c.Bus) (sensor.Driver, error) {
			return New(bus, opts...), nil
		},
	}
}

// Init stops any running measurement, reads the serial number (only
// possible while idle) and starts periodic measurement.
func (d *Dev) Init() error {
	if err := d.command(cmdStopPeriodic); err != nil {
		return err
	}
	d.sleep(stopDelay)

	words, err := d.readWords(cmdSerialNumber, 3)
	if err != nil {
		return err
	}
	d.serial = formatSerial(words)

	return d.command(cmdStartPeriodic)
}

func (d *Dev) DataReady() (bool, error) {
	words, err := d.readWords(cmdDataReady, 1)
	if err != nil {
		return false, err
	}

	return words[0]&0x07FF != 0, nil
}

func (d *Dev) Read() (sensor.Sample, error) {
	words, err := d.readWords(cmdReadMeasurement, 3)
	if err != nil {
		return nil, err
	}

	return sensor.Sample{
		sensor.CO2:         float64(words[0]),
		sensor.Temperature: -45 + 175*float64(words[1])/65536,
		sensor.Humidity:    100 * float64(words[2]) / 65536,
	}, nil
}

func (d *Dev) Identity() measurement.Labels {
	return measurement.Pairs(
		measurement.LabelSensorName, "SCD4X",
		measurement.LabelSerialNumber, d.serial,
	)
}

func (*Dev) Fields() []sensor.Field {
	return fields
}

// Close stops periodic measurement so the next Init starts clean.
func (d *Dev) Close() error {
	if err := d.command(cmdStopPeriodic); err != nil {
		return err
	}
	d.sleep(stopDelay)

	return nil
}

func (*Dev) String() string {
	return "SCD4X"
}

func (d *Dev) command(cmd uint16) error {
	return d.dev.Tx([]byte{byte(cmd >> 8), byte(cmd)}, nil)
}

// readWords sends cmd, waits for the chip to prepare the response and reads
// n CRC-protected words.
func (d *Dev) readWords(cmd uint16, n int) ([]uint16, error) {
	if err := d.command(cmd); err != nil {
		return nil, err
	}
	d.sleep(commandDelay)

	buf := make([]byte, n*3)
	if err := d.dev.Tx(nil, buf); err != nil {
		return nil, err
	}

	return decodeWords(buf)
}

func decodeWords(buf []byte) ([]uint16, error) {
	words := make([]uint16, 0, len(buf)/3)
	for i := 0; i+2 < len(buf); i += 3 {
		if got := crc8(buf[i : i+2]); got != buf[i+2] {
			return nil, errFactory.WithData(ErrCRC, struct {
				Word      int
				Want, Got byte
			}{
				Word: i / 3,
				Want: buf[i+2],
				Got:  got,
			})
		}
		words = append(words, uint16(buf[i])<<8|uint16(buf[i+1]))
	}

	return words, nil
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}

func formatSerial(words []uint16) string {
	var sb strings.Builder
	sb.WriteString("0x")
	for _, w := range words {
		fmt.Fprintf(&sb, "%x%x", byte(w>>8), byte(w))
	}

	return sb.String()
}
