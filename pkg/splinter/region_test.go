package splinter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timpost/splinter/pkg/splinter"
)

func newTestRegion(t *testing.T, slots, maxValSz uint32) *splinter.Region {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.splinter")

	region, err := splinter.Create(path, slots, maxValSz)
	require.NoError(t, err)

	t.Cleanup(func() { _ = region.Close() })

	return region
}

func Test_Create_Returns_ErrExists_When_File_Already_Present(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dup.splinter")

	region, err := splinter.Create(path, 16, 64)
	require.NoError(t, err)

	defer region.Close()

	_, err = splinter.Create(path, 16, 64)
	require.ErrorIs(t, err, splinter.ErrExists)
}

func Test_Open_Returns_ErrNotFound_When_File_Missing(t *testing.T) {
	t.Parallel()

	_, err := splinter.Open(filepath.Join(t.TempDir(), "missing.splinter"))
	require.ErrorIs(t, err, splinter.ErrNotFound)
}

func Test_Open_Returns_ErrFormat_When_Magic_Is_Wrong(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.splinter")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o644))

	_, err := splinter.Open(path)
	require.ErrorIs(t, err, splinter.ErrFormat)
}

func Test_Open_Returns_ErrFormat_When_File_Too_Small(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tiny.splinter")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := splinter.Open(path)
	require.ErrorIs(t, err, splinter.ErrFormat)
}

func Test_Open_Succeeds_After_Create_And_Preserves_Written_Value(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roundtrip.splinter")

	region, err := splinter.Create(path, 32, 128)
	require.NoError(t, err)

	require.NoError(t, region.Set("alpha", []byte("hello")))
	require.NoError(t, region.Close())

	reopened, err := splinter.Open(path)
	require.NoError(t, err)

	defer reopened.Close()

	buf := make([]byte, 128)
	out, n, err := reopened.Get("alpha", buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out))
}

func Test_OpenOrCreate_Creates_When_Missing_Then_Opens_When_Present(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ooc.splinter")

	region, err := splinter.OpenOrCreate(path, 16, 64)
	require.NoError(t, err)
	require.NoError(t, region.Close())

	region2, err := splinter.OpenOrCreate(path, 16, 64)
	require.NoError(t, err)
	defer region2.Close()
}

func Test_CreateOrOpen_Opens_Existing_Without_Losing_Data(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coo.splinter")

	region, err := splinter.CreateOrOpen(path, 16, 64)
	require.NoError(t, err)
	require.NoError(t, region.Set("k", []byte("v")))
	require.NoError(t, region.Close())

	region2, err := splinter.CreateOrOpen(path, 16, 64)
	require.NoError(t, err)
	defer region2.Close()

	buf := make([]byte, 16)
	out, _, err := region2.Get("k", buf)
	require.NoError(t, err)
	require.Equal(t, "v", string(out))
}

func Test_Close_Then_Set_Returns_ErrClosed(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)
	require.NoError(t, region.Close())

	err := region.Set("k", []byte("v"))
	require.ErrorIs(t, err, splinter.ErrClosed)
}
