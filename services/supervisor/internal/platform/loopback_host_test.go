//go:build !rp2040 && !rp2350

package platform_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentinel-go/services/supervisor/internal/halcore"
	"sentinel-go/services/supervisor/internal/platform"
)

// serve answers the next transaction on lb with resp.
func serve(t *testing.T, lb *platform.Loopback, resp []byte) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if tx, ok := lb.Poll(); ok {
				tx.Respond(resp)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func TestLoopbackTx_FullReply(t *testing.T) {
	lb := platform.NewLoopback(0x08, 1)
	serve(t, lb, []byte{0xA5, 0x00})

	r := make([]byte, 2)
	require.NoError(t, lb.Tx(0x08, []byte{0}, r))
	require.Equal(t, []byte{0xA5, 0x00}, r)

	// A bare read repeats the last reply.
	r2 := make([]byte, 2)
	require.NoError(t, lb.Tx(0x08, nil, r2))
	require.Equal(t, r, r2)
}

func TestLoopbackTx_ShortReplyTimesOut(t *testing.T) {
	lb := platform.NewLoopback(0x08, 1)
	serve(t, lb, nil)
	require.ErrorIs(t, lb.Tx(0x08, []byte{1, 30}, make([]byte, 4)), halcore.ErrTimeout)

	serve(t, lb, []byte{0, 0})
	require.ErrorIs(t, lb.Tx(0x08, []byte{1, 30}, make([]byte, 4)), halcore.ErrTimeout)

	// No bytes asked for, none needed.
	serve(t, lb, nil)
	require.NoError(t, lb.Tx(0x08, []byte{1, 30}, nil))
}

func TestLoopbackTx_WrongAddressNACKs(t *testing.T) {
	lb := platform.NewLoopback(0x08, 1)
	require.ErrorIs(t, lb.Tx(0x09, []byte{0}, make([]byte, 2)), halcore.ErrNACK)
}

func TestLoopbackTx_LateAnswerNotReplayed(t *testing.T) {
	lb := platform.NewLoopback(0x08, 2)
	serve(t, lb, []byte{0xA5, 0x00})
	require.NoError(t, lb.Tx(0x08, []byte{0}, make([]byte, 2)))

	lb.SetTimeout(20 * time.Millisecond)
	require.ErrorIs(t, lb.Tx(0x08, []byte{9}, make([]byte, 2)), halcore.ErrTimeout)

	tx, ok := lb.Poll()
	require.True(t, ok)
	tx.Respond([]byte{4, 0})

	// Neither the late answer nor the earlier ping reply is served.
	require.ErrorIs(t, lb.Tx(0x08, nil, make([]byte, 2)), halcore.ErrTimeout)
}
