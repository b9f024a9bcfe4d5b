package sample

import (
	"time"

	"github.com/chewxy/math32"
)

// Point is a converted sample placed on the time axis.
type Point struct {
	Time  time.Time
	Volts float32
}

// Volts converts an ADC reading to voltage for the given reference and resolution.
func Volts(r Record, vref float32, bits int) float32 {
	if bits <= 0 {
		bits = 12
	}
	full := math32.Exp2(float32(bits)) - 1
	v := float32(r)
	if v > full {
		v = full
	}
	return v / full * vref
}

// FromVolts converts a voltage to the ADC reading it would produce, clipped to
// the converter range.
func FromVolts(v, vref float32, bits int) Record {
	if bits <= 0 {
		bits = 12
	}
	if vref <= 0 {
		return 0
	}
	full := math32.Exp2(float32(bits)) - 1
	r := math32.Floor(v/vref*full + 0.5)
	if r < 0 {
		return 0
	}
	if r > full {
		r = full
	}
	return Record(r)
}

// Points places records on the time axis starting at start, one every step.
// Destination-based: reuses dst when its capacity suffices.
func Points(dst []Point, records []Record, start time.Time, step time.Duration, vref float32, bits int) []Point {
	if cap(dst) >= len(records) {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, len(records))
	}

	for i, r := range records {
		dst = append(dst, Point{
			Time:  start.Add(time.Duration(i) * step),
			Volts: Volts(r, vref, bits),
		})
	}

	return dst
}

// Bounds returns the smallest and largest voltage in points.
func Bounds(points []Point) (lo, hi float32) {
	if len(points) == 0 {
		return 0, 0
	}
	lo, hi = math32.Inf(1), math32.Inf(-1)
	for _, p := range points {
		lo = math32.Min(lo, p.Volts)
		hi = math32.Max(hi, p.Volts)
	}
	return lo, hi
}
