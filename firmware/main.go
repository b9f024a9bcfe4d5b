//go:build tinygo

//go:generate tinygo flash -target=pico

package main

import (
	"context"
	"log"
	"machine"
	"time"

	"github.com/itohio/picolog/pkg/console"
	"github.com/itohio/picolog/pkg/engine"
	"github.com/itohio/picolog/pkg/schedule"
	"github.com/itohio/picolog/pkg/store"
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: SERIAL_BAUD_RATE})

	status := newLED()
	status.Set(true) // constantly on while in the console
	start := newButton()
	sensor := newADCSensor()

	time.Sleep(STARTUP_DELAY)

	st := store.New(newFlashVolume(flashDevice))
	e, err := engine.New(engine.Deps{
		Sensor:    sensor,
		Log:       st,
		Scheduler: schedule.New(newPicoRTC(), &power{status: status}, schedule.WithIdle(nap)),
		Signal:    status,
		Button:    start,
	})
	if err != nil {
		log.Printf("Failed to create engine: %v", err)
		return
	}

	ctx := context.Background()

	cfg, err := e.Boot()
	if err != nil {
		status.Set(false)
		e.Halt(ctx, engine.CodeFor(err))
	}

	// Start button held at power up starts sampling without a host.
	if start.Pressed() {
		status.Set(false)
		err := e.Run(ctx, cfg)
		log.Printf("Sampling stopped: %v", err)
		status.Set(true)
	}

	c := console.New(e, st, cfg)
	for {
		if err := c.Serve(ctx, serialReader{port: machine.Serial}, machine.Serial); err != nil {
			log.Printf("Console stopped: %v", err)
		}
	}
}
