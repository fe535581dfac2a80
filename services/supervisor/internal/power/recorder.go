package power

import (
	"sync"

	"sentinel-go/services/supervisor/internal/halcore"
)

// Recorder is a Controller that only logs the calls it receives.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *Recorder) PowerOn()         { r.add("power_on") }
func (r *Recorder) PowerOff()        { r.add("power_off") }
func (r *Recorder) PowerOffKeepBus() { r.add("power_off_keep_bus") }
func (r *Recorder) RebootPrimary()   { r.add("reboot_primary") }

func (r *Recorder) RebootSelf() error {
	r.add("reboot_self")
	return halcore.ErrHalted
}

// Calls returns the call log in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how many times name was called.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (r *Recorder) add(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}
