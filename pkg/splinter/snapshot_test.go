package splinter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timpost/splinter/pkg/splinter"
)

func Test_GetHeaderSnapshot_Reflects_Configuration(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 16, 64)

	snap, err := region.GetHeaderSnapshot()
	require.NoError(t, err)
	require.Equal(t, uint32(16), snap.Slots)
	require.Equal(t, uint32(64), snap.MaxValSz)
	require.Zero(t, snap.ParseFailures)
	require.Zero(t, snap.LastFailureEpoch)
}

func Test_GetHeaderSnapshot_Epoch_Advances_On_Write(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	before, err := region.GetHeaderSnapshot()
	require.NoError(t, err)

	require.NoError(t, region.Set("k", []byte("v")))

	after, err := region.GetHeaderSnapshot()
	require.NoError(t, err)

	require.Greater(t, after.Epoch, before.Epoch)
}

func Test_RecordParseFailure_Updates_Counters_Only_When_Called(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	snap, err := region.GetHeaderSnapshot()
	require.NoError(t, err)
	require.Zero(t, snap.ParseFailures)

	require.NoError(t, region.RecordParseFailure())

	snap, err = region.GetHeaderSnapshot()
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.ParseFailures)
}

func Test_GetSlotSnapshot_Reflects_Default_Type_And_Labels(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	require.NoError(t, region.Set("k", []byte("hello")))
	require.NoError(t, region.SetLabel("k", 1<<3))

	snap, err := region.GetSlotSnapshot("k")
	require.NoError(t, err)
	require.Equal(t, uint32(5), snap.ValLen)
	require.Equal(t, uint64(1<<3), snap.Bloom)
	require.Equal(t, splinter.TypeVoid, snap.TypeFlag)
}

func Test_GetRawPointer_Returns_Borrowed_View_With_Even_Epoch(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	require.NoError(t, region.Set("k", []byte("view-me")))

	raw, err := region.GetRawPointer("k")
	require.NoError(t, err)
	require.Equal(t, uint32(7), raw.Len)
	require.Equal(t, "view-me", string(raw.Bytes))
	require.Zero(t, raw.Epoch%2, "epoch must be even (quiescent) for a valid snapshot")
}
