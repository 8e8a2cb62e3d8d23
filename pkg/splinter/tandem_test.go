package splinter_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_SetTandem_Writes_Base_And_Ordinal_Keys(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)

	require.NoError(t, region.SetTandem("order", [][]byte{
		[]byte("base-value"),
		[]byte("first-suffix"),
		[]byte("second-suffix"),
	}))

	buf := make([]byte, 32)

	out, _, err := region.Get("order", buf)
	require.NoError(t, err)
	require.Equal(t, "base-value", string(out))

	out, _, err = region.Get("order.1", buf)
	require.NoError(t, err)
	require.Equal(t, "first-suffix", string(out))

	out, _, err = region.Get("order.2", buf)
	require.NoError(t, err)
	require.Equal(t, "second-suffix", string(out))
}

func Test_UnsetTandem_Removes_Base_And_Ordinal_Keys(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)

	require.NoError(t, region.SetTandem("order", [][]byte{
		[]byte("base"),
		[]byte("one"),
	}))

	require.NoError(t, region.UnsetTandem("order", 2))

	buf := make([]byte, 32)

	_, _, err := region.Get("order", buf)
	require.Error(t, err)

	_, _, err = region.Get("order.1", buf)
	require.Error(t, err)
}
