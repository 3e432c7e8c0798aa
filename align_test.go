package dio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 0},
		{1, Align},
		{Align - 1, Align},
		{Align, Align},
		{Align + 1, 2 * Align},
		{5 * Align, 5 * Align},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, alignUp(tc.in), "alignUp(%d)", tc.in)
	}
}

func TestIsAligned(t *testing.T) {
	block := alignedBlock(2 * Align)
	require.True(t, isAligned(block))
	require.True(t, isAligned(block[Align:]))
	require.False(t, isAligned(block[1:]))
	require.False(t, isAligned(block[Align-1:]))

	// Empty slices never reach the kernel with an address
	require.True(t, isAligned(nil))
	require.True(t, isAligned(block[1:1]))
}

func TestIsAlignedLen(t *testing.T) {
	require.True(t, isAlignedLen(0))
	require.True(t, isAlignedLen(Align))
	require.True(t, isAlignedLen(3*Align))
	require.False(t, isAlignedLen(1))
	require.False(t, isAlignedLen(Align+1))
}

func TestAlignForHolePunch(t *testing.T) {
	t.Run("aligned range", func(t *testing.T) {
		off, length, ok := alignForHolePunch(Align, 2*Align)
		require.True(t, ok)
		require.EqualValues(t, Align, off)
		require.EqualValues(t, 2*Align, length)
	})

	t.Run("shrinks to inner blocks", func(t *testing.T) {
		off, length, ok := alignForHolePunch(Align/2, 3*Align)
		require.True(t, ok)
		require.EqualValues(t, Align, off)
		require.EqualValues(t, 2*Align, length)
	})

	t.Run("no whole block", func(t *testing.T) {
		_, _, ok := alignForHolePunch(Align/2, Align)
		require.False(t, ok)
	})
}
