//go:build rp2040

// Command sentinel-pico is the supervisor firmware for a Raspberry Pi Pico.
// Logs go out on UART0 and telemetry frames on UART1.
package main

import (
	"context"
	"io"
	"log/slog"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"sentinel-go/bus"
	"sentinel-go/services/bridge"
	"sentinel-go/services/config"
	"sentinel-go/services/heartbeat"
	"sentinel-go/services/supervisor"
)

const (
	logBaud    = 115200
	bridgeBaud = 115200
)

func main() {
	// Give a USB or UART console time to attach.
	time.Sleep(500 * time.Millisecond)

	logUART := uartx.UART0
	_ = logUART.Configure(uartx.UARTConfig{BaudRate: logBaud, TX: machine.UART0_TX_PIN, RX: machine.UART0_RX_PIN})

	cfg, err := config.Load("pico", "")
	if err != nil {
		halt(err)
	}
	log := slog.New(slog.NewTextHandler(logUART, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))

	ctx := context.Background()
	b := bus.NewBus(4)

	bridge.UARTDial = dialUART1
	bconn := b.NewConnection("bridge")
	go bridge.Start(ctx, bconn)
	bconn.Publish(bconn.NewMessage(bus.T("config", "bridge"), bridge.Config{
		Transport: bridge.TransportConfig{Type: "uart", UART: &bridge.UARTConfig{
			Baud: bridgeBaud, TxPin: int(machine.UART1_TX_PIN), RxPin: int(machine.UART1_RX_PIN),
		}},
	}, true))

	hs := &heartbeat.Service{Interval: 30 * time.Second, Log: log.With("component", "heartbeat")}
	if err := hs.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		log.Error("Heartbeat start failed", "err", err)
	}

	board, err := supervisor.NewPicoBoard(cfg, log)
	if err != nil {
		log.Error("Board bring-up failed", "err", err)
		halt(err)
	}
	sv, err := supervisor.New(supervisor.Options{
		Config: cfg,
		Board:  board,
		Conn:   b.NewConnection("supervisor"),
		Log:    log,
	})
	if err != nil {
		log.Error("Supervisor init failed", "err", err)
		halt(err)
	}
	// Run only returns when the watchdog is about to reset the chip.
	err = sv.Run(ctx)
	log.Error("Supervisor stopped", "err", err)
	halt(err)
}

// halt parks the core. An armed watchdog resets the chip; otherwise the
// board waits for a power cycle.
func halt(error) {
	for {
		time.Sleep(time.Second)
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// uartLink adapts a uartx port to io.ReadWriteCloser for the bridge.
type uartLink struct {
	ctx context.Context
	hw  *uartx.UART
}

func (u uartLink) Read(p []byte) (int, error)  { return u.hw.RecvSomeContext(u.ctx, p) }
func (u uartLink) Write(p []byte) (int, error) { return u.hw.Write(p) }
func (u uartLink) Close() error                { return nil }

func dialUART1(ctx context.Context, c bridge.UARTConfig) (io.ReadWriteCloser, error) {
	hw := uartx.UART1
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: uint32(c.Baud),
		TX:       machine.Pin(c.TxPin),
		RX:       machine.Pin(c.RxPin),
	}); err != nil {
		return nil, err
	}
	return uartLink{ctx: ctx, hw: hw}, nil
}
