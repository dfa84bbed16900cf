// Package bme680 drives a Bosch BME680 temperature, humidity, pressure and
// gas sensor over I²C in forced mode.
package bme680

import (
	"time"

	"codeberg.org/mutker/envmon/internal/measurement"
	"codeberg.org/mutker/envmon/internal/sensor"
	"periph.io/x/conn/v3/i2c"
)

// Name is the kind name used in configuration and on sensor_type.
const Name = "bme680"

// Bus addresses selected by the SDO pin.
const (
	DefaultAddress   uint16 = 0x77
	AlternateAddress uint16 = 0x76
)

const (
	chipID = 0x61

	regCalib3       = 0x00
	regCalib1       = 0x8A
	regCalib2       = 0xE1
	regStatus       = 0x1D
	regResHeat0     = 0x5A
	regGasWait0     = 0x64
	regCtrlGas1     = 0x71
	regCtrlHum      = 0x72
	regCtrlMeas     = 0x74
	regConfig       = 0x75
	regChipID       = 0xD0
	regSoftReset    = 0xE0
	softResetCmd    = 0xB6
	statusNewData   = 0x80
	modeForced      = 0x01
	runGas          = 0x10
	oversampleHum   = 2 // 2x
	oversamplePress = 3 // 4x
	oversampleTemp  = 4 // 8x
	filterSize3     = 2

	calib1Len = 0xA0 - regCalib1 + 1
	calib2Len = 0xEE - regCalib2 + 1
	calib3Len = 5
	dataLen   = 15
)

var fields = []sensor.Field{sensor.Temperature, sensor.Humidity, sensor.Pressure, sensor.Gas}

// Dev is a BME680 on a bus.
type Dev struct {
	dev   i2c.Dev
	sleep func(time.Duration)

	heaterTemp     float64
	heaterDuration uint16
	pollAttempts   int

	cal calibration
}

// Option configures a Dev.
type Option func(*Dev)

// WithAddress overrides the bus address.
func WithAddress(addr uint16) Option {
	return func(d *Dev) {
		d.dev.Addr = addr
	}
}

// WithSleep replaces time.Sleep for the waits the chip requires.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Dev) {
		d.sleep = sleep
	}
}

// New returns an uninitialized Dev on bus. No I/O happens until Init.
func New(bus i2c.Bus, opts ...Option) *Dev {
	d := &Dev{
		dev:            i2c.Dev{Bus: bus, Addr: DefaultAddress},
		sleep:          time.Sleep,
		heaterTemp:     320,
		heaterDuration: 150,
		pollAttempts:   10,
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

func (d *Dev) Init() error {
	id, err := d.readReg(regChipID)
	if err != nil {
		return err
	}
	if id != chipID {
		return errFactory.WithData(ErrChipID, struct {
			Want, Got byte
		}{
			Want: chipID,
			Got:  id,
		})
	}

	if err := d.writeReg(regSoftReset, softResetCmd); err != nil {
		return err
	}
	d.sleep(5 * time.Millisecond)

	if err := d.readCalibration(); err != nil {
		return err
	}

	return d.configure()
}

func (d *Dev) readCalibration() error {
	block1 := make([]byte, calib1Len)
	block2 := make([]byte, calib2Len)
	block3 := make([]byte, calib3Len)

	for _, b := range []struct {
		reg byte
		buf []byte
	}{
		{regCalib1, block1},
		{regCalib2, block2},
		{regCalib3, block3},
	} {
		if err := d.dev.Tx([]byte{b.reg}, b.buf); err != nil {
			return errFactory.Wrap(ErrCalibration, err)
		}
	}

	d.cal = parseCalibration(block1, block2, block3)

	return nil
}

func (d *Dev) configure() error {
	writes := []struct{ reg, val byte }{
		{regCtrlHum, oversampleHum},
		{regCtrlMeas, oversampleTemp<<5 | oversamplePress<<2},
		{regConfig, filterSize3 << 2},
		{regResHeat0, d.cal.heaterResistance(d.heaterTemp, 25)},
		{regGasWait0, gasWait(d.heaterDuration)},
		{regCtrlGas1, runGas},
	}

	for _, w := range writes {
		if err := d.writeReg(w.reg, w.val); err != nil {
			return err
		}
	}

	return nil
}

// DataReady is always true: every Read triggers its own forced conversion.
func (*Dev) DataReady() (bool, error) {
	return true, nil
}

func (d *Dev) Read() (sensor.Sample, error) {
	if err := d.writeReg(regCtrlMeas, oversampleTemp<<5|oversamplePress<<2|modeForced); err != nil {
		return nil, err
	}
	d.sleep(time.Duration(d.heaterDuration)*time.Millisecond + 40*time.Millisecond)

	data := make([]byte, dataLen)
	for attempt := 0; ; attempt++ {
		if err := d.dev.Tx([]byte{regStatus}, data); err != nil {
			return nil, err
		}
		if data[0]&statusNewData != 0 {
			break
		}
		if attempt >= d.pollAttempts {
			return nil, errFactory.New(ErrTimeout)
		}
		d.sleep(5 * time.Millisecond)
	}

	r := decodeRaw(data)
	temp, fine := d.cal.temperature(r.temperature)

	return sensor.Sample{
		sensor.Temperature: temp,
		sensor.Humidity:    d.cal.humidity(r.humidity, fine),
		sensor.Pressure:    d.cal.pressure(r.pressure, fine),
		sensor.Gas:         d.cal.gas(r.gas, r.gasRange),
	}, nil
}

func (*Dev) Identity() measurement.Labels {
	return measurement.Pairs(measurement.LabelSensorName, "BME680")
}

func (*Dev) Fields() []sensor.Field {
	return fields
}

func (*Dev) String() string {
	return "BME680"
}

func (d *Dev) readReg(reg byte) (byte, error) {
	var b [1]byte
	if err := d.dev.Tx([]byte{reg}, b[:]); err != nil {
		return 0, err
	}

	return b[0], nil
}

func (d *Dev) writeReg(reg, val byte) error {
	return d.dev.Tx([]byte{reg, val}, nil)
}
