package sim

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/sample"
)

// lag is the time constant of the sensor response (seconds).
const lag = 60.0

// Sensor simulates a light sensor: brightness follows the sun over the day of
// the simulated clock, with a first-order lag and a little noise.
type Sensor struct {
	clock func() time.Time
	level float64
	noise float64
	vref  float32
	bits  int

	mu    sync.Mutex
	start time.Time
	last  time.Time
	value float64 // V
}

// NewSensor creates a sensor reading the time of day from clock.
func NewSensor(clock func() time.Time, cfg config.SimConfig, adc config.ADCConfig) *Sensor {
	return &Sensor{
		clock: clock,
		level: cfg.Level,
		noise: cfg.NoiseLevel,
		vref:  adc.VRef,
		bits:  adc.Resolution,
	}
}

// Read implements engine.Sensor.
func (s *Sensor) Read() sample.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	target := Daylight(now) * s.level

	if s.last.IsZero() {
		s.start = now
		s.value = target
	} else {
		dt := now.Sub(s.last).Seconds()
		if dt > 0 {
			alpha := dt / (dt + lag)
			s.value += alpha * (target - s.value)
		}
	}
	s.last = now

	elapsed := float64(now.Sub(s.start).Nanoseconds())
	noise := (math.Sin(elapsed*0.001) + math.Cos(elapsed*0.0013)) * s.noise * 0.5

	return sample.FromVolts(float32(s.value+noise), s.vref, s.bits)
}

// Daylight returns the relative brightness at t: zero at night and a half
// sine between 06:00 and 18:00 peaking at noon.
func Daylight(t time.Time) float64 {
	h, m, sec := t.Clock()
	hours := float64(h) + float64(m)/60 + float64(sec)/3600
	if hours <= 6 || hours >= 18 {
		return 0
	}
	return math.Sin(math.Pi * (hours - 6) / 12)
}
