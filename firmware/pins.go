//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Startup
	STARTUP_DELAY = 3 * time.Second // Time for the USB serial to enumerate

	// ADC configuration
	ADC_PIN        = machine.ADC0 // GP26
	ADC_RESOLUTION = 12           // ADC resolution in bits (12-bit = 0-4095)

	// Start button between pin and ground, pulled up
	START_PIN = machine.GP2

	// LED blink timing
	BLINK_ON_MS  = 10  // On time of a single blink
	BLINK_GAP_MS = 250 // Pause between blinks of one code

	// Serial console
	SERIAL_BAUD_RATE = 115200
	SERIAL_POLL_MS   = 10 // Idle time while no console input is buffered

	// Sleep
	SLEEP_POLL_MS = 20 // Nap between wake flag checks

	// Flash filesystem
	LFS_CACHE_SIZE     = 512
	LFS_LOOKAHEAD_SIZE = 512
	LFS_BLOCK_CYCLES   = 100

	// On-board LED
	LED_PIN = machine.LED
)
