package device

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/itohio/picolog/pkg/dump"
)

// ErrTimeout is returned when the logger does not answer in time.
var ErrTimeout = errors.New("device did not respond")

const (
	syncToken    = 12345
	maxSyncLines = 16
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// link speaks the logger's line protocol. A read that returns no data and no
// error is a timeout, which is how serial ports report it.
type link struct {
	rw      io.ReadWriter
	timeout time.Duration

	mu      sync.Mutex
	buf     []byte
	pending []byte
}

func newLink(rw io.ReadWriter, timeout time.Duration) *link {
	return &link{
		rw:      rw,
		timeout: timeout,
		buf:     make([]byte, 256),
	}
}

func (l *link) readLine() (string, error) {
	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(l.pending[:i]))
			l.pending = l.pending[i+1:]
			return line, nil
		}

		if d, ok := l.rw.(readDeadliner); ok && l.timeout > 0 {
			d.SetReadDeadline(time.Now().Add(l.timeout))
		}
		n, err := l.rw.Read(l.buf)
		if n > 0 {
			l.pending = append(l.pending, l.buf[:n]...)
			continue
		}
		if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}
}

func (l *link) send(cmd string, par uint32) error {
	if d, ok := l.rw.(writeDeadliner); ok && l.timeout > 0 {
		d.SetWriteDeadline(time.Now().Add(l.timeout))
	}
	if _, err := fmt.Fprintf(l.rw, "%s %d\n", cmd, par); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}
	return nil
}

func (l *link) command(cmd string, par uint32) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.send(cmd, par); err != nil {
		return "", err
	}
	line, err := l.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read response to %s: %w", cmd, err)
	}
	return line, nil
}

// expect reads one line and checks it.
func (l *link) expect(want string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := l.readLine()
	if err != nil {
		return err
	}
	if line != want {
		return fmt.Errorf("unexpected %q, want %q", line, want)
	}
	return nil
}

// sync echoes a token through the logger and discards everything received
// before the echo, e.g. the boot greeting.
func (l *link) sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.send("test", syncToken); err != nil {
		return err
	}
	want := fmt.Sprintf("cmd=test par=%d", syncToken)
	for i := 0; i < maxSyncLines; i++ {
		line, err := l.readLine()
		if err != nil {
			return fmt.Errorf("failed to synchronize: %w", err)
		}
		if line == want {
			return nil
		}
	}
	return fmt.Errorf("failed to synchronize: no echo within %d lines", maxSyncLines)
}

func (l *link) dump() (*dump.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.send("dump", 0); err != nil {
		return nil, err
	}

	var p dump.Parser
	for {
		line, err := l.readLine()
		if err != nil {
			return nil, fmt.Errorf("failed to read dump: %w", err)
		}
		done, err := p.Line(line)
		if err != nil {
			return nil, err
		}
		if done {
			return p.File(), nil
		}
	}
}
