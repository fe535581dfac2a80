// Package gtest holds helpers shared by the repository's tests.
package gtest

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger that writes through t.Log.
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t, slogt.Text())
}

// TimeFactor scales every timeout produced by ScaleMs. It is read from
// SENTINEL_TEST_TIME_FACTOR so slow CI machines can stretch waits.
var TimeFactor ScaledDuration = 1

func init() {
	f := os.Getenv("SENTINEL_TEST_TIME_FACTOR")
	if f == "" {
		return
	}
	n, err := strconv.Atoi(f)
	if err != nil {
		panic(fmt.Errorf("failed to parse SENTINEL_TEST_TIME_FACTOR (%q): %w", f, err))
	}
	if n <= 0 {
		panic(fmt.Errorf("SENTINEL_TEST_TIME_FACTOR must be positive; got %d", n))
	}
	TimeFactor = ScaledDuration(n)
}

type ScaledDuration time.Duration

// ScaleMs returns ms milliseconds multiplied by TimeFactor.
func ScaleMs(ms int64) ScaledDuration {
	return TimeFactor * ScaledDuration(ms) * ScaledDuration(time.Millisecond)
}

// ReceiveSoon receives from ch or fails the test after a short timeout.
func ReceiveSoon[T any](tb testing.TB, ch <-chan T) T {
	tb.Helper()
	return ReceiveOrTimeout(tb, ch, ScaleMs(200))
}

// ReceiveOrTimeout receives from ch or fails the test once timeout passes.
func ReceiveOrTimeout[T any](tb testing.TB, ch <-chan T, timeout ScaledDuration) T {
	tb.Helper()
	if ch == nil {
		tb.Fatalf("immediate failure to avoid blocking receive from nil channel %T", ch)
	}
	timer := time.NewTimer(time.Duration(timeout))
	defer timer.Stop()
	select {
	case <-timer.C:
		tb.Fatalf("timed out receiving from %T; set SENTINEL_TEST_TIME_FACTOR above %d if this is flaky", ch, TimeFactor)
		panic("unreachable")
	case x := <-ch:
		return x
	}
}

// NotSending fails the test if ch has a value ready.
func NotSending[T any](tb testing.TB, ch <-chan T) {
	tb.Helper()
	select {
	case x := <-ch:
		tb.Fatalf("expected no value on %T, got %v", ch, x)
	default:
	}
}
