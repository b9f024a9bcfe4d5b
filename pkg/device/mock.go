package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/console"
	"github.com/itohio/picolog/pkg/dump"
	"github.com/itohio/picolog/pkg/sim"
	"github.com/itohio/picolog/pkg/store"
)

// shutdownTimeout bounds the wait for the simulated logger to stop.
const shutdownTimeout = 5 * time.Second

// Mock is a simulated logger running in-process, reached through a pipe with
// the same line protocol as the serial console. The flash volume survives
// reconnects, like a real device across resets.
type Mock struct {
	cfg *config.Config
	vol *store.MemVolume

	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan error
	conn      net.Conn
	link      *link
	logger    *sim.Logger
	connected bool
}

// NewMock creates a mocked device. A nil cfg uses the defaults.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Mock{
		cfg: cfg,
		vol: store.NewMemVolume(cfg.Sim.BlockSize, cfg.Sim.BlockCount),
	}
}

// Volume returns the simulated flash.
func (m *Mock) Volume() *store.MemVolume {
	return m.vol
}

// Logger returns the running simulated logger, nil when disconnected.
func (m *Mock) Logger() *sim.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

// Connect powers up the simulated logger and synchronizes with its console.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	logger, err := sim.NewLogger(m.vol, m.cfg)
	if err != nil {
		return fmt.Errorf("failed to create simulated logger: %w", err)
	}

	host, dev := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		defer dev.Close()
		done <- logger.Serve(ctx, dev, dev)
	}()

	l := newLink(host, DefaultTimeout)
	err = l.expect(console.Ready)
	if err == nil {
		err = l.sync()
	}
	if err != nil {
		cancel()
		host.Close()
		<-done
		return fmt.Errorf("simulated logger: %w", err)
	}

	m.cancel = cancel
	m.done = done
	m.conn = host
	m.link = l
	m.logger = logger
	m.connected = true

	return nil
}

// Close stops the simulated logger and waits for it to shut down.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	if err := m.conn.Close(); err != nil {
		log.Printf("Error closing mock connection: %v", err)
	}

	var err error
	select {
	case serr := <-m.done:
		if serr != nil && !errors.Is(serr, context.Canceled) {
			log.Printf("Simulated logger stopped: %v", serr)
		}
	case <-time.After(shutdownTimeout):
		err = fmt.Errorf("simulated logger did not stop within %s", shutdownTimeout)
	}

	m.conn = nil
	m.link = nil
	m.logger = nil
	m.connected = false

	return err
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Command implements Device.
func (m *Mock) Command(cmd string, par uint32) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return "", fmt.Errorf("not connected")
	}
	return m.link.command(cmd, par)
}

// Dump implements Device.
func (m *Mock) Dump() (*dump.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, fmt.Errorf("not connected")
	}
	return m.link.dump()
}
