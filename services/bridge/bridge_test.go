package bridge

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"sentinel-go/bus"
	"sentinel-go/internal/gtest"
	"sentinel-go/types"
)

func TestBridge_ForwardsTelemetryAndReportsLinkLoss(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("bridge_test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Start(ctx, conn)

	stateSub := conn.Subscribe(bus.T("bridge", "state"))
	defer conn.Unsubscribe(stateSub)
	assertLevelStatus(t, nextStatePayload(t, stateSub), "idle", "awaiting_config")

	prevDial := UARTDial
	defer func() { UARTDial = prevDial }()
	frames := make(chan Frame, 8)
	hellos := make(chan Frame, 4)
	var remote net.Conn
	UARTDial = func(ctx context.Context, _ UARTConfig) (io.ReadWriteCloser, error) {
		lc, rc := net.Pipe()
		remote = rc
		go remotePeer(rc, frames, hellos)
		return lc, nil
	}

	conn.Publish(conn.NewMessage(bus.T("config", "bridge"), Config{
		Transport: TransportConfig{Type: "uart", UART: &UARTConfig{Baud: 115200, RxPin: 1, TxPin: 0}},
	}, false))
	up := nextStatePayload(t, stateSub)
	assertLevelStatus(t, up, "up", "link_established")
	hello := gtest.ReceiveOrTimeout(t, hellos, gtest.ScaleMs(1000))
	require.Equal(t, up["session"], string(hello.Payload))
	_, err := uuid.Parse(string(hello.Payload))
	require.NoError(t, err)

	conn.Publish(conn.NewMessage(bus.T("sentinel", "event", "fuse"), types.FuseEvent{Blown: true, UptimeS: 12}, false))
	conn.Publish(conn.NewMessage(bus.T("other", "topic"), "ignored", false))

	f := gtest.ReceiveOrTimeout(t, frames, gtest.ScaleMs(1000))
	require.Equal(t, framePub, f.Type)
	var got struct {
		Topic   string          `json:"topic"`
		Payload types.FuseEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(f.Payload, &got))
	require.Equal(t, "sentinel/event/fuse", got.Topic)
	require.Equal(t, types.FuseEvent{Blown: true, UptimeS: 12}, got.Payload)

	require.NoError(t, remote.Close())
	assertLevelStatus(t, nextStatePayload(t, stateSub), "degraded", "link_lost_retrying")
}

func TestBridge_UnknownTransportYieldsErrorState(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("bridge_test_bad")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Start(ctx, conn)

	stateSub := conn.Subscribe(bus.T("bridge", "state"))
	defer conn.Unsubscribe(stateSub)
	_ = nextStatePayload(t, stateSub)

	conn.Publish(conn.NewMessage(bus.T("config", "bridge"), `{"transport":{"type":"bogus"}}`, false))
	assertLevelStatus(t, nextStatePayload(t, stateSub), "error", "transport_init_failed")
}

func TestConfig_Filters(t *testing.T) {
	require.Equal(t, []bus.Topic{{"sentinel", "#"}}, Config{}.filters())
	require.Equal(t, []bus.Topic{{"sentinel", "state"}, {"bridge", "+"}},
		Config{Forward: []string{"sentinel/state", "bridge/+"}}.filters())
}

func TestFraming_RoundTrip(t *testing.T) {
	lc, rc := net.Pipe()
	defer lc.Close()
	defer rc.Close()

	go func() { _ = newFramedWriter(lc).WriteFrame(Frame{Type: framePub, Payload: []byte("hello")}) }()
	f, err := newFramedReader(rc).ReadFrame()
	require.NoError(t, err)
	require.Equal(t, Frame{Type: framePub, Payload: []byte("hello")}, f)

	require.Error(t, newFramedWriter(io.Discard).WriteFrame(Frame{Payload: make([]byte, 0x10000)}))
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// remotePeer reads frames until the link fails and hands publications and
// hellos to their channels.
func remotePeer(c io.ReadWriteCloser, pubs, hellos chan<- Frame) {
	defer c.Close()
	rd := newFramedReader(c)
	for {
		f, err := rd.ReadFrame()
		if err != nil {
			return
		}
		switch f.Type {
		case framePub:
			pubs <- f
		case frameHello:
			hellos <- f
		}
	}
}

func nextStatePayload(t *testing.T, sub *bus.Subscription) map[string]any {
	t.Helper()
	m := gtest.ReceiveOrTimeout(t, sub.Channel(), gtest.ScaleMs(1000))
	p, ok := m.Payload.(map[string]any)
	require.True(t, ok, "state payload type %T", m.Payload)
	return p
}

func assertLevelStatus(t *testing.T, payload map[string]any, wantLevel, wantStatus string) {
	t.Helper()
	require.Equal(t, wantLevel, payload["level"], "payload=%v", payload)
	require.Equal(t, wantStatus, payload["status"], "payload=%v", payload)
}
