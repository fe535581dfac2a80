//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"sentinel-go/bus"
	"sentinel-go/drivers/sentinel"
	"sentinel-go/errcode"
	"sentinel-go/services/bridge"
	"sentinel-go/services/heartbeat"
	"sentinel-go/services/supervisor"
)

// primaryPlan describes how the simulated primary behaves.
type primaryPlan struct {
	Timer     int
	Base      int
	Mult      int
	KickEvery time.Duration
	PingEvery time.Duration
	// HangAfter stops kicking once the primary has been up this long.
	HangAfter time.Duration
}

func newRunCommand() *cobra.Command {
	var (
		plan        primaryPlan
		statusEvery time.Duration
		bridgeAddr  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the supervisor with a simulated primary",
		Long: `Run the supervisor with a simulated primary controller.

The primary arms one watchdog timer and kicks it periodically. With
--hang-after it stops kicking, the timer expires and the supervisor
power-cycles it; the primary then arms the timer again. A self reset of the
supervisor boots it again from the persisted store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			hb, err := supervisor.NewHostBoard(cfg, log)
			if err != nil {
				return err
			}
			defer hb.Close()

			b := bus.NewBus(16)
			hs := &heartbeat.Service{Interval: statusEvery, Log: log.With("component", "heartbeat")}
			if err := hs.Start(ctx, b.NewConnection("heartbeat")); err != nil {
				return err
			}
			if bridgeAddr != "" {
				startBridge(ctx, b, bridgeAddr)
			}

			go simulatePrimary(ctx, sentinel.New(hb.Primary, cfg.Bus.Address), plan, log.With("component", "primary"))

			for boots := 1; ; boots++ {
				board, wctx := hb.PowerUp(ctx)
				sv, err := supervisor.New(supervisor.Options{
					Config: cfg,
					Board:  board,
					Conn:   b.NewConnection("supervisor"),
					Log:    log,
				})
				if err != nil {
					return err
				}
				err = sv.Run(wctx)
				if ctx.Err() != nil {
					return nil
				}
				log.Warn("Supervisor reset, booting again", "boots", boots, "reason", err)
			}
		},
	}
	f := cmd.Flags()
	f.IntVar(&plan.Timer, "timer", 0, "Watchdog timer the primary arms (0-2)")
	f.IntVar(&plan.Base, "base", 2, "Interval base selector (0-6 into 1,5,10,15,30,60,90 s)")
	f.IntVar(&plan.Mult, "mult", 3, "Interval multiplier (1-20)")
	f.DurationVar(&plan.KickEvery, "kick-every", 10*time.Second, "Kick period")
	f.DurationVar(&plan.PingEvery, "ping-every", time.Minute, "Heartbeat ping period (keep above 30s to stay clear of the fuse)")
	f.DurationVar(&plan.HangAfter, "hang-after", 0, "Stop kicking after this long (0 never hangs)")
	f.DurationVar(&statusEvery, "status-every", 5*time.Second, "Status log period")
	f.StringVar(&bridgeAddr, "bridge", "", "Forward telemetry frames to this TCP address")
	return cmd
}

func startBridge(ctx context.Context, b *bus.Bus, addr string) {
	bridge.RegisterTransport("tcp", func(tc bridge.TransportConfig) (bridge.Transport, error) {
		return tcpTransport{addr: tc.Addr}, nil
	})
	conn := b.NewConnection("bridge")
	go bridge.Start(ctx, conn)
	conn.Publish(conn.NewMessage(bus.T("config", "bridge"), bridge.Config{
		Transport: bridge.TransportConfig{Type: "tcp", Addr: addr},
	}, true))
}

type tcpTransport struct{ addr string }

func (t tcpTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", t.addr)
}

func (t tcpTransport) String() string { return "tcp" }

// simulatePrimary plays the primary controller against the driver until ctx
// ends.
func simulatePrimary(ctx context.Context, d *sentinel.Device, p primaryPlan, log *slog.Logger) {
	kick := time.NewTicker(p.KickEvery)
	defer kick.Stop()
	ping := time.NewTicker(p.PingEvery)
	defer ping.Stop()

	armed := false
	var up time.Time
	arm := func() {
		if err := d.SetInterval(p.Timer, p.Base, p.Mult); err != nil {
			log.Debug("Set interval failed", "err", err)
			return
		}
		if err := d.EnableTimer(p.Timer); err != nil && !errors.Is(err, errcode.AlreadyEnabled) {
			log.Debug("Enable failed", "err", err)
			return
		}
		armed, up = true, time.Now()
		log.Info("Primary armed watchdog", "timer", p.Timer, "base", sentinel.Bases[p.Base], "mult", p.Mult)
	}
	arm()

	hung := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := d.Ping(); err != nil {
				log.Debug("Ping failed", "err", err)
			}
		case <-kick.C:
			if !armed {
				arm()
				continue
			}
			if p.HangAfter > 0 && time.Since(up) > p.HangAfter {
				if !hung {
					log.Warn("Primary hung, no more kicks")
					hung = true
				}
				// A power-cycled primary comes back and re-arms.
				if _, _, err := d.Version(); err == nil && hungTimerOff(d, p.Timer) {
					log.Info("Primary came back after power cycle")
					armed, hung = false, false
				}
				continue
			}
			err := d.Kick(p.Timer)
			switch errcode.Of(err) {
			case errcode.Success:
			case errcode.InvalidAction:
				armed = false
			default:
				log.Debug("Kick failed", "err", err)
			}
		}
	}
}

// hungTimerOff reports whether the supervisor disabled timer id, which it
// does when it reboots the primary.
func hungTimerOff(d *sentinel.Device, id int) bool {
	v, err := d.DumpSlot(sentinel.TimerEnabledSlot(id))
	return err == nil && v == 0
}
