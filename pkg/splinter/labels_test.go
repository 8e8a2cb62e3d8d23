package splinter_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timpost/splinter/pkg/splinter"
)

func Test_LabelRegistry_Register_Then_Bit_RoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "labels.json")

	reg, err := splinter.OpenLabelRegistry(path)
	require.NoError(t, err)

	require.NoError(t, reg.Register("urgent", 5))

	bit, err := reg.Bit("urgent")
	require.NoError(t, err)
	require.Equal(t, uint(5), bit)
}

func Test_LabelRegistry_Persists_Across_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "labels.json")

	reg, err := splinter.OpenLabelRegistry(path)
	require.NoError(t, err)
	require.NoError(t, reg.Register("alert", 2))

	reopened, err := splinter.OpenLabelRegistry(path)
	require.NoError(t, err)

	bit, err := reopened.Bit("alert")
	require.NoError(t, err)
	require.Equal(t, uint(2), bit)
}

func Test_LabelRegistry_Bit_Returns_ErrNotFound_For_Unregistered_Name(t *testing.T) {
	t.Parallel()

	reg, err := splinter.OpenLabelRegistry(filepath.Join(t.TempDir(), "labels.json"))
	require.NoError(t, err)

	_, err = reg.Bit("unknown")
	require.ErrorIs(t, err, splinter.ErrNotFound)
}

func Test_LabelRegistry_Register_Rejects_OutOfRange_Bit(t *testing.T) {
	t.Parallel()

	reg, err := splinter.OpenLabelRegistry(filepath.Join(t.TempDir(), "labels.json"))
	require.NoError(t, err)

	err = reg.Register("too-big", 64)
	require.ErrorIs(t, err, splinter.ErrInvalidInput)
}

func Test_OpenLabelRegistry_Tolerates_Missing_File(t *testing.T) {
	t.Parallel()

	reg, err := splinter.OpenLabelRegistry(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	require.NotNil(t, reg)
}
