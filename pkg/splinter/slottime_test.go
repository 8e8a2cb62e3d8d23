package splinter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timpost/splinter/pkg/splinter"
)

func Test_SetSlotTime_Stores_Ctime_And_Atime_Independently(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	require.NoError(t, region.Set("k", []byte("v")))

	require.NoError(t, region.SetSlotTime("k", splinter.TimeCtime, 1_000, 10))
	require.NoError(t, region.SetSlotTime("k", splinter.TimeAtime, 2_000, 50))

	snap, err := region.GetSlotSnapshot("k")
	require.NoError(t, err)
	require.Equal(t, uint64(990), snap.Ctime)
	require.Equal(t, uint64(1950), snap.Atime)
}

func Test_SetSlotTime_Rejects_Unknown_Mode(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	require.NoError(t, region.Set("k", []byte("v")))

	err := region.SetSlotTime("k", splinter.TimeMode(99), 0, 0)
	require.ErrorIs(t, err, splinter.ErrInvalidInput)
}

func Test_SetSlotTime_Returns_ErrNotFound_For_Missing_Key(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 4, 16)

	err := region.SetSlotTime("missing", splinter.TimeCtime, 0, 0)
	require.ErrorIs(t, err, splinter.ErrNotFound)
}
