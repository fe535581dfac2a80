// services/supervisor/internal/platform/factories_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"sentinel-go/services/supervisor/internal/halcore"
)

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements GPIOPin for host runs and tests. Every level written is
// appended to a history so tests can check pulse shapes.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	history []bool
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.history = append(p.history, level)
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

// IsOutput reports whether the pin was configured as an output.
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// History returns a copy of every level written through Set.
func (p *FakePin) History() []bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]bool(nil), p.history...)
}

// RisingEdges counts low→high transitions in the history.
func (p *FakePin) RisingEdges() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	prev := false
	for _, l := range p.history {
		if l && !prev {
			n++
		}
		prev = l
	}
	return n
}

// ResetHistory clears the recorded levels.
func (p *FakePin) ResetHistory() {
	p.mu.Lock()
	p.history = nil
	p.mu.Unlock()
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func (f *HostPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	if n < 0 {
		return nil, false
	}
	return f.Get(n), true
}

// Get exposes the underlying *FakePin, creating it on first use.
func (f *HostPinFactory) Get(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}

// DefaultPinFactory provides a host GPIO factory.
func DefaultPinFactory() *HostPinFactory {
	return &HostPinFactory{pins: make(map[int]*FakePin)}
}
