package device

import (
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/itohio/picolog/pkg/dump"
)

const (
	// DefaultBaudRate is the baud rate of the logger's USB serial console.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds the wait for each response line.
	DefaultTimeout = time.Second
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a connection to a logger over a serial port.
type Serial struct {
	port     string
	baudRate int
	timeout  time.Duration

	mu        sync.RWMutex
	conn      serial.Port
	link      *link
	connected bool
}

// New creates a Serial device for the port. Zero baud rate means DefaultBaudRate.
func New(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		timeout:  DefaultTimeout,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, p := range ports {
		desc := p.Name
		if p.IsUSB {
			desc = fmt.Sprintf("USB %s:%s %s", p.VID, p.PID, p.Product)
		}
		result = append(result, Port{
			Name:        p.Name,
			Description: desc,
		})
	}

	return result, nil
}

// Connect opens the serial port and synchronizes with the logger console.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{
		BaudRate: d.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}
	if err := port.SetReadTimeout(d.timeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	l := newLink(port, d.timeout)
	if err := l.sync(); err != nil {
		port.Close()
		return fmt.Errorf("logger on %s: %w", d.port, err)
	}

	d.conn = port
	d.link = l
	d.connected = true

	return nil
}

// Close closes the connection.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	if err := d.conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	d.conn = nil
	d.link = nil
	d.connected = false

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Command implements Device.
func (d *Serial) Command(cmd string, par uint32) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return "", fmt.Errorf("not connected")
	}
	return d.link.command(cmd, par)
}

// Dump implements Device.
func (d *Serial) Dump() (*dump.File, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return nil, fmt.Errorf("not connected")
	}
	return d.link.dump()
}
