package device

import (
	"fmt"
	"strconv"

	"github.com/itohio/picolog/pkg/dump"
	"github.com/itohio/picolog/pkg/sample"
)

// Device is a connection to a data logger (real or mocked).
type Device interface {
	Connect() error
	Close() error
	IsConnected() bool
	// Command sends "<cmd> <par>" and returns the response line.
	Command(cmd string, par uint32) (string, error)
	// Dump downloads the sample log.
	Dump() (*dump.File, error)
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)

// Run sends a command that is acknowledged with OK.
func Run(d Device, cmd string, par uint32) error {
	resp, err := d.Command(cmd, par)
	if err != nil {
		return err
	}
	if resp != "OK" {
		return fmt.Errorf("%s failed: %s", cmd, resp)
	}
	return nil
}

// ReadADC takes a single reading.
func ReadADC(d Device) (sample.Record, error) {
	resp, err := d.Command("checkadc", 0)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(resp, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid ADC response %q: %w", resp, err)
	}
	return sample.Record(v), nil
}
