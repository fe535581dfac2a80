//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"sync"
	"time"

	"sentinel-go/services/supervisor/internal/halcore"
)

// responseWait bounds how long a read from the primary is stretched while
// the scheduler services the preceding write.
const responseWait = 50 * time.Millisecond

// I2CTarget answers the primary as an I2C target. Writes become queued
// transactions; a read returns the response to the latest one. A read the
// scheduler did not answer within responseWait gets an empty reply, never
// an earlier transaction's response.
type I2CTarget struct {
	bus  *machine.I2C
	cfg  machine.I2CConfig
	addr uint16

	queue chan halcore.Transaction

	mu      sync.Mutex
	enabled bool
	last    replySlot
}

// I2CForPins picks the controller that owns the given SDA pin.
func I2CForPins(sda int) *machine.I2C {
	if (sda/2)%2 == 0 {
		return machine.I2C0
	}
	return machine.I2C1
}

// NewI2CTarget configures bus in target mode at addr and starts serving.
func NewI2CTarget(bus *machine.I2C, sda, scl machine.Pin, addr uint16, depth int) (*I2CTarget, error) {
	if depth <= 0 {
		depth = 1
	}
	t := &I2CTarget{
		bus:     bus,
		addr:    addr,
		queue:   make(chan halcore.Transaction, depth),
		enabled: true,
		cfg: machine.I2CConfig{
			Frequency: 100 * machine.KHz,
			SDA:       sda,
			SCL:       scl,
			Mode:      machine.I2CModeTarget,
		},
	}
	if err := t.configure(); err != nil {
		return nil, err
	}
	go t.serve()
	return t, nil
}

func (t *I2CTarget) configure() error {
	if err := t.bus.Configure(t.cfg); err != nil {
		return err
	}
	return t.bus.Listen(t.addr)
}

func (t *I2CTarget) Enable() {
	t.mu.Lock()
	t.enabled = true
	t.mu.Unlock()
}

func (t *I2CTarget) Disable() {
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()
}

func (t *I2CTarget) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *I2CTarget) Reinit() error { return t.configure() }

func (t *I2CTarget) Poll() (halcore.Transaction, bool) {
	select {
	case tx := <-t.queue:
		if !t.Enabled() {
			tx.Respond(nil)
			return halcore.Transaction{}, false
		}
		return tx, true
	default:
		return halcore.Transaction{}, false
	}
}

func (t *I2CTarget) serve() {
	buf := make([]byte, 32)
	var (
		pending []byte
		resp    <-chan []byte
	)
	for {
		evt, n, err := t.bus.WaitForEvent(buf)
		if err != nil {
			continue
		}
		switch evt {
		case machine.I2CReceive:
			pending = append(pending, buf[:n]...)
		case machine.I2CRequest:
			if len(pending) > 0 {
				resp, pending = t.submit(pending), nil
			}
			if resp != nil {
				select {
				case <-resp:
				case <-time.After(responseWait):
				}
				resp = nil
			}
			_ = t.bus.Reply(t.last.get())
		case machine.I2CFinish:
			if len(pending) > 0 {
				resp, pending = t.submit(pending), nil
			}
		}
	}
}

// submit queues data and returns a channel that receives the answer. A
// full queue drops the write.
func (t *I2CTarget) submit(data []byte) <-chan []byte {
	done := make(chan []byte, 1)
	gen := t.last.begin()
	tx := halcore.Transaction{
		Data: data,
		Respond: func(r []byte) {
			t.last.set(gen, r)
			done <- r
		},
	}
	select {
	case t.queue <- tx:
	default:
		done <- nil
	}
	return done
}
