package sim

import (
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/itohio/picolog/pkg/engine"
)

// LED counts blink codes and logs everything but the plain sample blink.
type LED struct {
	mu     sync.Mutex
	counts map[int]int
}

// Blink implements engine.Signaler.
func (l *LED) Blink(n int) {
	l.mu.Lock()
	if l.counts == nil {
		l.counts = make(map[int]int)
	}
	l.counts[n]++
	l.mu.Unlock()

	if n != engine.CodeOK {
		log.Printf("LED: blink code %d", n)
	}
}

// Count returns how often code was shown.
func (l *LED) Count(code int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[code]
}

// FileButton is pressed while a file exists. An empty path is never pressed.
type FileButton struct {
	Path string
}

// Pressed implements engine.Button.
func (b FileButton) Pressed() bool {
	if b.Path == "" {
		return false
	}
	_, err := os.Stat(b.Path)
	return err == nil
}

// Power counts sleeps.
type Power struct {
	parks    atomic.Int64
	restores atomic.Int64
}

// Park implements schedule.Power.
func (p *Power) Park() {
	p.parks.Add(1)
}

// Restore implements schedule.Power.
func (p *Power) Restore() {
	p.restores.Add(1)
}

// Parked reports whether the processor is asleep.
func (p *Power) Parked() bool {
	return p.parks.Load() > p.restores.Load()
}

// Sleeps returns the number of completed sleeps.
func (p *Power) Sleeps() int64 {
	return p.restores.Load()
}
