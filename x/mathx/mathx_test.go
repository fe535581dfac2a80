package mathx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentinel-go/x/mathx"
)

func TestClamp(t *testing.T) {
	require.Equal(t, uint16(20), mathx.Clamp[uint16](21, 1, 20))
	require.Equal(t, uint16(1), mathx.Clamp[uint16](0, 1, 20))
	require.Equal(t, 7, mathx.Clamp(7, 1, 20))
	// Swapped bounds.
	require.Equal(t, 5, mathx.Clamp(9, 5, 0))
	require.Equal(t, 3*time.Second, mathx.Clamp(10*time.Second, 0, 3*time.Second))
	require.Equal(t, int64(0), mathx.Clamp[int64](-4, 0, 0xFFFF))
}

func TestMinMax(t *testing.T) {
	require.Equal(t, int64(2), mathx.Min[int64](2, 3))
	require.Equal(t, "b", mathx.Max("a", "b"))
}
