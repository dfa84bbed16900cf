package bme680

import "math"

// calibration holds the factory trimming parameters.
type calibration struct {
	t1 uint16
	t2 int16
	t3 int8

	p1  uint16
	p2  int16
	p3  int8
	p4  int16
	p5  int16
	p6  int8
	p7  int8
	p8  int16
	p9  int16
	p10 uint8

	h1 uint16
	h2 uint16
	h3 int8
	h4 int8
	h5 int8
	h6 uint8
	h7 int8

	g1 int8
	g2 int16
	g3 int8

	resHeatRange uint8
	resHeatVal   int8
	rangeSwErr   int8
}

// raw is one undecoded data block.
type raw struct {
	temperature uint32
	pressure    uint32
	humidity    uint16
	gas         uint16
	gasRange    uint8
}

func decodeRaw(d []byte) raw {
	return raw{
		pressure:    uint32(d[2])<<12 | uint32(d[3])<<4 | uint32(d[4])>>4,
		temperature: uint32(d[5])<<12 | uint32(d[6])<<4 | uint32(d[7])>>4,
		humidity:    uint16(d[8])<<8 | uint16(d[9]),
		gas:         uint16(d[13])<<2 | uint16(d[14])>>6,
		gasRange:    d[14] & 0x0F,
	}
}

func parseCalibration(block1, block2, block3 []byte) calibration {
	// block1 starts at 0x8A, block2 at 0xE1, block3 at 0x00.
	at1 := func(reg byte) byte { return block1[reg-0x8A] }
	at2 := func(reg byte) byte { return block2[reg-0xE1] }
	u16 := func(lsb, msb byte) uint16 { return uint16(msb)<<8 | uint16(lsb) }

	return calibration{
		t1: u16(at2(0xE9), at2(0xEA)),
		t2: int16(u16(at1(0x8A), at1(0x8B))),
		t3: int8(at1(0x8C)),

		p1:  u16(at1(0x8E), at1(0x8F)),
		p2:  int16(u16(at1(0x90), at1(0x91))),
		p3:  int8(at1(0x92)),
		p4:  int16(u16(at1(0x94), at1(0x95))),
		p5:  int16(u16(at1(0x96), at1(0x97))),
		p6:  int8(at1(0x99)),
		p7:  int8(at1(0x98)),
		p8:  int16(u16(at1(0x9C), at1(0x9D))),
		p9:  int16(u16(at1(0x9E), at1(0x9F))),
		p10: at1(0xA0),

		h1: uint16(at2(0xE3))<<4 | uint16(at2(0xE2)&0x0F),
		h2: uint16(at2(0xE1))<<4 | uint16(at2(0xE2)>>4),
		h3: int8(at2(0xE4)),
		h4: int8(at2(0xE5)),
		h5: int8(at2(0xE6)),
		h6: at2(0xE7),
		h7: int8(at2(0xE8)),

		g1: int8(at2(0xED)),
		g2: int16(u16(at2(0xEB), at2(0xEC))),
		g3: int8(at2(0xEE)),

		resHeatRange: (block3[0x02] & 0x30) >> 4,
		resHeatVal:   int8(block3[0x00]),
		rangeSwErr:   int8(block3[0x04]&0xF0) / 16,
	}
}

// temperature returns degrees Celsius and the fine temperature used by the
// other compensations.
func (c calibration) temperature(adc uint32) (celsius, fine float64) {
	a := float64(adc)
	t1 := float64(c.t1)

	var1 := (a/16384.0 - t1/1024.0) * float64(c.t2)
	d := a/131072.0 - t1/8192.0
	var2 := d * d * float64(c.t3) * 16.0

	fine = var1 + var2

	return fine / 5120.0, fine
}

// pressure returns hectopascal.
func (c calibration) pressure(adc uint32, fine float64) float64 {
	var1 := fine/2.0 - 64000.0
	var2 := var1 * var1 * (float64(c.p6) / 131072.0)
	var2 += var1 * float64(c.p5) * 2.0
	var2 = var2/4.0 + float64(c.p4)*65536.0
	var1 = (float64(c.p3)*var1*var1/16384.0 + float64(c.p2)*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * float64(c.p1)

	if var1 == 0 {
		return 0
	}

	pa := 1048576.0 - float64(adc)
	pa = (pa - var2/4096.0) * 6250.0 / var1
	var1 = float64(c.p9) * pa * pa / 2147483648.0
	var2 = pa * (float64(c.p8) / 32768.0)
	var3 := math.Pow(pa/256.0, 3) * (float64(c.p10) / 131072.0)
	pa += (var1 + var2 + var3 + float64(c.p7)*128.0) / 16.0

	return pa / 100.0
}

// humidity returns relative humidity in percent, clamped to [0, 100].
func (c calibration) humidity(adc uint16, fine float64) float64 {
	temp := fine / 5120.0

	var1 := float64(adc) - (float64(c.h1)*16.0 + float64(c.h3)/2.0*temp)
	var2 := var1 * (float64(c.h2) / 262144.0 *
		(1.0 + float64(c.h4)/16384.0*temp + float64(c.h5)/1048576.0*temp*temp))
	var3 := float64(c.h6) / 16384.0
	var4 := float64(c.h7) / 2097152.0

	h := var2 + (var3+var4*temp)*var2*var2

	return math.Max(0, math.Min(100, h))
}

var (
	gasRange1 = [16]float64{1, 1, 1, 1, 1, 0.99, 1, 0.992, 1, 1, 0.998, 0.995, 1, 0.99, 1, 1}
	gasRange2 = [16]float64{
		8000000, 4000000, 2000000, 1000000, 499500.4995, 248262.1648, 125000, 63004.03226,
		31281.28128, 15625, 7812.5, 3906.25, 1953.125, 976.5625, 488.28125, 244.140625,
	}
)

// gas returns the heater plate resistance in ohms.
func (c calibration) gas(adc uint16, gasRange uint8) float64 {
	r := gasRange & 0x0F
	var1 := (1340.0 + 5.0*float64(c.rangeSwErr)) * gasRange1[r]

	return var1 * gasRange2[r] / (float64(adc) - 512.0 + var1)
}

// heaterResistance encodes a heater target temperature for res_heat_x.
func (c calibration) heaterResistance(target, ambient float64) uint8 {
	target = math.Min(target, 400)

	var1 := float64(c.g1)/16.0 + 49.0
	var2 := float64(c.g2)/32768.0*0.0005 + 0.00235
	var3 := float64(c.g3) / 1024.0
	var4 := var1 * (1.0 + var2*target)
	var5 := var4 + var3*ambient

	res := 3.4 * (var5*(4.0/(4.0+float64(c.resHeatRange)))*(1.0/(1.0+float64(c.resHeatVal)*0.002)) - 25)

	return uint8(math.Max(0, math.Min(255, res)))
}

// gasWait encodes a heater duration in milliseconds for gas_wait_x.
func gasWait(ms uint16) uint8 {
	if ms >= 0xFC0 {
		return 0xFF
	}

	var factor uint8
	for ms > 0x3F {
		ms /= 4
		factor++
	}

	return uint8(ms) + factor*64
}
