package goalarm

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSetInvalidArgument(t *testing.T) {
	s := newTestService(t)

	fn := func(arg any) {}
	require.ErrorIs(t, s.Set(0, fn, nil), ErrInvalidArgument)
	require.ErrorIs(t, s.Set(10, nil, nil), ErrInvalidArgument)
	require.ErrorIs(t, s.Set(maxDelayUs+1, fn, nil), ErrInvalidArgument)
	require.Equal(t, 0, s.Pending())
}

func TestFireOrder(t *testing.T) {
	s := newTestService(t)

	fired := make(chan string, 2)
	fn := func(arg any) { fired <- arg.(string) }

	// X first, then Y with the earlier deadline: Y must become the new head,
	// the countdown must be reprogrammed, and Y must fire before X.
	require.NoError(t, s.Set(50_000, fn, "X"))
	require.NoError(t, s.Set(10_000, fn, "Y"))

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case v := <-fired:
			got = append(got, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for alarm %d", i)
		}
	}
	require.Equal(t, []string{"Y", "X"}, got)
}

func TestFiresExactlyOnce(t *testing.T) {
	s := newTestService(t)

	var count atomic.Int32
	require.NoError(t, s.Set(5_000, func(arg any) { count.Add(1) }, nil))

	require.Eventually(t, func() bool { return count.Load() == 1 },
		2*time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int32(1), count.Load())
	require.Equal(t, 0, s.Pending())
}

func TestCallbackCanReschedule(t *testing.T) {
	s := newTestService(t)

	var count atomic.Int32
	done := make(chan struct{})
	var fn AlarmFunc
	fn = func(arg any) {
		if count.Add(1) < 3 {
			if err := s.Set(2_000, fn, arg); err != nil {
				t.Error(err)
			}
			return
		}
		close(done)
	}
	require.NoError(t, s.Set(2_000, fn, nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rescheduling chain never completed")
	}
	require.Equal(t, int32(3), count.Load())
}

func TestSetAfterClose(t *testing.T) {
	s, err := NewService()
	require.NoError(t, err)
	s.Close()
	s.Close() // idempotent

	require.ErrorIs(t, s.Set(1_000, func(arg any) {}, nil), ErrClosed)
}

func TestPackageLevelLifecycle(t *testing.T) {
	require.ErrorIs(t, Set(1_000, func(arg any) {}, nil), ErrNotInitialized)
	_, err := Cancel(func(arg any) {}, AnyArg)
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, Init())
	require.NoError(t, Init()) // second Init is a no-op
	defer Cleanup()

	fired := make(chan struct{})
	require.NoError(t, Set(2_000, func(arg any) { close(fired) }, nil))
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("default-service alarm never fired")
	}

	Cleanup()
	require.ErrorIs(t, Set(1_000, func(arg any) {}, nil), ErrNotInitialized)
}
