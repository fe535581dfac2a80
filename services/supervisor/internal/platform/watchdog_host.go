//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sentinel-go/services/supervisor/internal/halcore"
)

// SelfResetError is the cancellation cause when the supervisor asked for
// its own reset.
type SelfResetError struct{}

func (SelfResetError) Error() string { return "supervisor requested self reset" }

// WatchdogExpiredError is the cancellation cause when the tick loop failed
// to feed the watchdog in time.
type WatchdogExpiredError struct {
	Timeout time.Duration
}

func (e WatchdogExpiredError) Error() string {
	return "self watchdog not fed within " + e.Timeout.String()
}

// HostWatchdog emulates the coprocessor's hardware watchdog by cancelling a
// context. A reset on the device becomes a context cancellation whose cause
// tells the caller what happened; the caller then decides whether to boot
// again.
type HostWatchdog struct {
	log    *slog.Logger
	cancel context.CancelCauseFunc
	cause  halcore.ResetCause

	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
}

// NewHostWatchdog returns a watchdog and a context that is cancelled when it
// fires. cause is what Cause reports for this boot.
func NewHostWatchdog(ctx context.Context, log *slog.Logger, cause halcore.ResetCause) (*HostWatchdog, context.Context) {
	wCtx, cancel := context.WithCancelCause(ctx)
	return &HostWatchdog{log: log, cancel: cancel, cause: cause}, wCtx
}

func (w *HostWatchdog) Start(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timeout = timeout
	w.timer = time.AfterFunc(timeout, func() {
		w.log.Error("Self watchdog expired", "timeout", timeout)
		w.cancel(WatchdogExpiredError{Timeout: timeout})
	})
	return nil
}

func (w *HostWatchdog) Update() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
	w.mu.Unlock()
}

func (w *HostWatchdog) Reset() error {
	w.Stop()
	w.cancel(SelfResetError{})
	return halcore.ErrHalted
}

func (w *HostWatchdog) Cause() halcore.ResetCause { return w.cause }

// Stop disarms the watchdog without cancelling the context.
func (w *HostWatchdog) Stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

// ResetCauseOf maps the cancellation cause of a watchdog context to the reset
// cause the next boot should see.
func ResetCauseOf(ctx context.Context) halcore.ResetCause {
	switch context.Cause(ctx).(type) {
	case WatchdogExpiredError:
		return halcore.ResetWatchdog
	case SelfResetError:
		return halcore.ResetOther
	}
	return halcore.ResetPowerOn
}

// HostLowPower sleeps on the given clock. The running clock keeps counting,
// so the reported duration equals the request.
type HostLowPower struct {
	Clock halcore.Clock
}

func (l HostLowPower) Sleep(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	l.Clock.Sleep(max)
	return max
}
