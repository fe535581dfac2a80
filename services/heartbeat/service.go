// Package heartbeat logs a periodic summary of the supervisor's retained
// state and every event it publishes.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"sentinel-go/bus"
	"sentinel-go/types"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicState           = bus.T("sentinel", "state")
	topicEvents          = bus.T("sentinel", "event", "#")
)

// Config is accepted on config/heartbeat.
type Config struct {
	Interval time.Duration
}

type Service struct {
	Interval time.Duration
	Log      *slog.Logger
}

type subscriptions struct {
	cfg, state, events *bus.Subscription
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, subs subscriptions) {
	defer conn.Unsubscribe(subs.cfg)
	defer conn.Unsubscribe(subs.state)
	defer conn.Unsubscribe(subs.events)

	interval := s.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var (
		last types.State
		seen bool
	)
	for {
		select {
		case <-ctx.Done():
			s.Log.Info("Heartbeat service stopping")
			return
		case msg := <-subs.state.Channel():
			if st, ok := msg.Payload.(types.State); ok {
				last, seen = st, true
			}
		case msg := <-subs.events.Channel():
			s.Log.Warn("Supervisor event", "topic", msg.Topic.String(), "payload", msg.Payload)
		case <-tick.C:
			if !seen {
				s.Log.Info("Heartbeat", "state", "none")
				continue
			}
			s.Log.Info("Heartbeat", append(summary(last), "bus_dropped", conn.Dropped())...)
		case msg := <-subs.cfg.Channel():
			if c, ok := msg.Payload.(Config); ok && c.Interval > 0 {
				tick.Reset(c.Interval)
				s.Log.Info("Heartbeat interval set", "interval", c.Interval)
			}
		}
	}
}

func summary(st types.State) []any {
	args := []any{
		"uptime_s", st.UptimeS,
		"fuse_blown", st.FuseBlown,
		"primary_faults", st.PrimaryFaults,
		"secondary_faults", st.SecondaryFaults,
	}
	for _, t := range st.Timers {
		if t.Phase == types.PhaseDisabled {
			continue
		}
		args = append(args, slog.Group("timer"+string(rune('0'+t.ID)),
			"phase", string(t.Phase),
			"elapsed_s", t.ElapsedS,
			"threshold_s", t.ThresholdS))
	}
	return args
}

// Start subscribes, then runs the heartbeat loop in the background. Anything
// published after Start returns is seen by the loop.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Log == nil {
		s.Log = slog.New(slog.DiscardHandler)
	}
	subs := subscriptions{
		cfg:    conn.Subscribe(topicConfigHeartbeat),
		state:  conn.Subscribe(topicState),
		events: conn.Subscribe(topicEvents),
	}
	go s.serviceLoop(ctx, conn, subs)
	return nil
}
