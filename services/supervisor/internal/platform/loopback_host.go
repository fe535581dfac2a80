//go:build !rp2040 && !rp2350

package platform

import (
	"sync"
	"time"

	"sentinel-go/services/supervisor/internal/halcore"
)

const defaultLoopbackTimeout = time.Second

// Loopback is an in-process command bus. The supervisor side consumes it as
// a halcore.Transport; the primary side drives it through Tx, which makes it
// a tinygo.org/x/drivers.I2C so the real primary-side driver can be used
// against a simulated coprocessor.
type Loopback struct {
	addr    uint16
	timeout time.Duration
	queue   chan halcore.Transaction

	mu      sync.Mutex
	enabled bool
	reinits int
	last    replySlot
}

// NewLoopback creates an enabled bus answering at addr.
func NewLoopback(addr uint16, depth int) *Loopback {
	if depth <= 0 {
		depth = 4
	}
	return &Loopback{
		addr:    addr,
		timeout: defaultLoopbackTimeout,
		queue:   make(chan halcore.Transaction, depth),
		enabled: true,
	}
}

// SetTimeout changes how long Tx waits for the supervisor to service a
// transaction.
func (l *Loopback) SetTimeout(d time.Duration) { l.timeout = d }

// ---- halcore.Transport ----

func (l *Loopback) Enable() {
	l.mu.Lock()
	l.enabled = true
	l.mu.Unlock()
}

func (l *Loopback) Disable() {
	l.mu.Lock()
	l.enabled = false
	l.mu.Unlock()
}

func (l *Loopback) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *Loopback) Reinit() error {
	l.mu.Lock()
	l.reinits++
	l.mu.Unlock()
	return nil
}

// Reinits returns how many times Reinit was called.
func (l *Loopback) Reinits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reinits
}

func (l *Loopback) Poll() (halcore.Transaction, bool) {
	select {
	case tx := <-l.queue:
		if !l.Enabled() {
			tx.Respond(nil)
			return halcore.Transaction{}, false
		}
		return tx, true
	default:
		return halcore.Transaction{}, false
	}
}

// ---- drivers.I2C (primary side) ----

// Tx writes w as one transaction and reads the response into r. A read with
// no write returns the previous response, like a repeated I2C read. A
// response shorter than r, including a dropped transaction, fails with
// halcore.ErrTimeout.
func (l *Loopback) Tx(addr uint16, w, r []byte) error {
	if addr != l.addr || !l.Enabled() {
		return halcore.ErrNACK
	}
	if len(w) == 0 {
		return fill(r, l.last.get())
	}

	gen := l.last.begin()
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case resp := <-l.submit(w, timer.C):
		if resp == nil {
			return halcore.ErrTimeout
		}
		l.last.set(gen, resp)
		return fill(r, resp)
	case <-timer.C:
		return halcore.ErrTimeout
	}
}

// Submit queues w without waiting for the supervisor. The returned channel
// receives the response once the transaction is serviced. It returns
// halcore.ErrNACK when the bus is disabled and halcore.ErrTimeout when the
// queue is full.
func (l *Loopback) Submit(w []byte) (<-chan []byte, error) {
	if !l.Enabled() {
		return nil, halcore.ErrNACK
	}
	done := make(chan []byte, 1)
	select {
	case l.queue <- l.transaction(w, done):
		return done, nil
	default:
		return nil, halcore.ErrTimeout
	}
}

// submit blocks until the transaction is queued or give fires. A nil
// response on the returned channel means the queue never accepted it.
func (l *Loopback) submit(w []byte, give <-chan time.Time) <-chan []byte {
	done := make(chan []byte, 1)
	select {
	case l.queue <- l.transaction(w, done):
	case <-give:
		done <- nil
	}
	return done
}

func (l *Loopback) transaction(w []byte, done chan<- []byte) halcore.Transaction {
	return halcore.Transaction{
		Data: append([]byte(nil), w...),
		Respond: func(resp []byte) {
			out := make([]byte, len(resp))
			copy(out, resp)
			done <- out
		},
	}
}

func fill(dst, src []byte) error {
	if len(src) < len(dst) {
		return halcore.ErrTimeout
	}
	copy(dst, src)
	return nil
}
