package splinter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timpost/splinter/pkg/splinter"
)

func Test_AutoScrub_Defaults_Off(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 32)

	on, err := region.AutoScrub()
	require.NoError(t, err)
	require.False(t, on)

	hybrid, err := region.HybridScrub()
	require.NoError(t, err)
	require.False(t, hybrid)
}

func Test_SetHybridScrub_Sets_Both_Bits(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 32)

	require.NoError(t, region.SetHybridScrub())

	on, err := region.AutoScrub()
	require.NoError(t, err)
	require.True(t, on)

	hybrid, err := region.HybridScrub()
	require.NoError(t, err)
	require.True(t, hybrid)
}

func Test_SetAutoScrub_False_Also_Clears_Hybrid_Bit(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 32)

	require.NoError(t, region.SetHybridScrub())
	require.NoError(t, region.SetAutoScrub(false))

	hybrid, err := region.HybridScrub()
	require.NoError(t, err)
	require.False(t, hybrid)
}

func Test_AutoScrub_Zeroes_Unwritten_Tail_On_Shrinking_Overwrite(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	require.NoError(t, region.SetAutoScrub(true))
	require.NoError(t, region.Set("k", []byte("0123456789012345")[:16]))
	require.NoError(t, region.Set("k", []byte("ab")))

	raw, err := region.GetRawPointer("k")
	require.NoError(t, err)
	require.Equal(t, uint32(2), raw.Len)
	require.Equal(t, append([]byte("ab"), make([]byte, 14)...), raw.Bytes[:16])

	buf := make([]byte, 16)
	out, n, err := region.Get("k", buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "ab", string(out))
}

func Test_Purge_Leaves_Live_Values_Intact(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)

	require.NoError(t, region.Set("a", []byte("alpha")))
	require.NoError(t, region.Set("b", []byte("bravo")))

	require.NoError(t, region.Purge())

	buf := make([]byte, 32)

	out, _, err := region.Get("a", buf)
	require.NoError(t, err)
	require.Equal(t, "alpha", string(out))

	out, _, err = region.Get("b", buf)
	require.NoError(t, err)
	require.Equal(t, "bravo", string(out))
}

func Test_Purge_Does_Not_Run_Concurrently_With_Itself(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)

	require.NoError(t, region.Set("a", []byte("alpha")))

	done := make(chan error, 1)

	go func() {
		done <- region.Purge()
	}()

	err := region.Purge()
	if err != nil {
		require.ErrorIs(t, err, splinter.ErrRetry)
	}

	otherErr := <-done
	if otherErr != nil {
		require.ErrorIs(t, otherErr, splinter.ErrRetry)
	}

	require.False(t, err != nil && otherErr != nil, "one of the two purges must complete")
}
