package goalarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeadlineCarry(t *testing.T) {
	t.Parallel()

	// 2µs past x.999999s must wrap into the next second.
	now := absTime{sec: 5, usec: 999_999}
	d := deadlineAfter(now, 2)
	require.Equal(t, int64(6), d.sec)
	require.Equal(t, int64(1), d.usec)

	// No carry when the sub-second field stays in range.
	d = deadlineAfter(absTime{sec: 5, usec: 100}, 200)
	require.Equal(t, int64(5), d.sec)
	require.Equal(t, int64(300), d.usec)

	// Multi-second delays land whole seconds in the sec field.
	d = deadlineAfter(absTime{sec: 5, usec: 500_000}, 2_700_000)
	require.Equal(t, int64(8), d.sec)
	require.Equal(t, int64(200_000), d.usec)
}

func TestSubBorrow(t *testing.T) {
	t.Parallel()

	dl := absTime{sec: 10, usec: 100}
	now := absTime{sec: 9, usec: 999_900}
	sec, nsec := dl.sub(now)
	require.Equal(t, int64(0), sec)
	require.Equal(t, int64(200_000), nsec)
}

func TestSubSaturatesAtZero(t *testing.T) {
	t.Parallel()

	dl := absTime{sec: 3, usec: 0}
	now := absTime{sec: 5, usec: 1}
	sec, nsec := dl.sub(now)
	require.Equal(t, int64(0), sec)
	require.Equal(t, int64(0), nsec)
}

func TestDeadlineRoundTrip(t *testing.T) {
	t.Parallel()

	now, err := monoNow()
	require.NoError(t, err)

	dl := deadlineAfter(now, 1500)
	sec, nsec := dl.sub(now)
	require.Equal(t, int64(0), sec)
	require.Equal(t, int64(1_500_000), nsec)
}

func TestAfter(t *testing.T) {
	t.Parallel()

	a := absTime{sec: 1, usec: 500}
	require.True(t, absTime{sec: 2, usec: 0}.after(a))
	require.True(t, absTime{sec: 1, usec: 501}.after(a))
	require.False(t, a.after(a)) // equal is due, not after
	require.False(t, absTime{sec: 1, usec: 499}.after(a))
}

func TestMonoNowAdvances(t *testing.T) {
	t.Parallel()

	a, err := monoNow()
	require.NoError(t, err)
	b, err := monoNow()
	require.NoError(t, err)
	require.False(t, a.after(b))
}
