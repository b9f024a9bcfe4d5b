//go:build tinygo

package main

import (
	"machine"
	"time"

	"github.com/itohio/picolog/pkg/engine"
	"github.com/itohio/picolog/pkg/sample"
)

var (
	_ engine.Sensor   = (*adcSensor)(nil)
	_ engine.Signaler = led{}
	_ engine.Button   = button{}
)

// adcSensor reads the light sensor divider on ADC0.
type adcSensor struct {
	adc machine.ADC
}

func newADCSensor() *adcSensor {
	machine.InitADC()
	s := &adcSensor{adc: machine.ADC{Pin: ADC_PIN}}
	s.adc.Configure(machine.ADCConfig{Resolution: ADC_RESOLUTION})
	return s
}

// Read returns a 12-bit reading. Get scales to 16 bits.
func (s *adcSensor) Read() sample.Record {
	return sample.Record(s.adc.Get() >> (16 - ADC_RESOLUTION))
}

// led blinks codes on the on-board LED.
type led struct {
	pin machine.Pin
}

func newLED() led {
	LED_PIN.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return led{pin: LED_PIN}
}

func (l led) Blink(n int) {
	for i := range n {
		l.pin.High()
		time.Sleep(BLINK_ON_MS * time.Millisecond)
		l.pin.Low()
		if i != n-1 {
			time.Sleep(BLINK_GAP_MS * time.Millisecond)
		}
	}
}

func (l led) Set(on bool) {
	l.pin.Set(on)
}

// button is the start button; pressed pulls the pin low.
type button struct {
	pin machine.Pin
}

func newButton() button {
	START_PIN.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return button{pin: START_PIN}
}

func (b button) Pressed() bool {
	return !b.pin.Get()
}

// serialReader makes the non-blocking serial console readable by a scanner.
type serialReader struct {
	port machine.Serialer
}

func (r serialReader) Read(p []byte) (int, error) {
	for r.port.Buffered() == 0 {
		time.Sleep(SERIAL_POLL_MS * time.Millisecond)
	}

	n := 0
	for n < len(p) && r.port.Buffered() > 0 {
		b, err := r.port.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}
