package splinter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timpost/splinter/pkg/splinter"
)

// Test_Poll_Returns_When_Concurrent_Set_Changes_Key covers end-to-end
// scenario 5: a poller blocks on a key, a concurrent writer commits a
// change, and the poller returns promptly without timing out.
func Test_Poll_Returns_When_Concurrent_Set_Changes_Key(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)

	require.NoError(t, region.Set("k", []byte("v1")))

	done := make(chan error, 1)

	go func() {
		done <- region.Poll("k", 2*time.Second)
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, region.Set("k", []byte("v2")))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not return after the key changed")
	}
}

func Test_Poll_Times_Out_When_Key_Never_Changes(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)

	require.NoError(t, region.Set("k", []byte("v1")))

	err := region.Poll("k", 50*time.Millisecond)
	require.ErrorIs(t, err, splinter.ErrTimeout)
}

func Test_Poll_Returns_ErrNotFound_For_Missing_Key(t *testing.T) {
	t.Parallel()

	region := newTestRegion(t, 8, 32)

	err := region.Poll("missing", 50*time.Millisecond)
	require.ErrorIs(t, err, splinter.ErrNotFound)
}
