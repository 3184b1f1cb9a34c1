package goalarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func deadlines(l *alarmList) []int64 {
	var out []int64
	for a := l.head; a != nil; a = a.next {
		out = append(out, a.deadline.sec)
	}
	return out
}

func TestInsertKeepsOrder(t *testing.T) {
	t.Parallel()

	var l alarmList
	require.True(t, l.insert(&alarm{deadline: absTime{sec: 30}}))
	require.True(t, l.insert(&alarm{deadline: absTime{sec: 10}}))
	require.False(t, l.insert(&alarm{deadline: absTime{sec: 20}}))
	require.False(t, l.insert(&alarm{deadline: absTime{sec: 40}}))

	require.Equal(t, []int64{10, 20, 30, 40}, deadlines(&l))
	require.Equal(t, 4, l.size)
}

func TestInsertMicrosecondOrdering(t *testing.T) {
	t.Parallel()

	var l alarmList
	l.insert(&alarm{deadline: absTime{sec: 1, usec: 500}})
	require.True(t, l.insert(&alarm{deadline: absTime{sec: 1, usec: 400}}))
	require.False(t, l.insert(&alarm{deadline: absTime{sec: 1, usec: 450}}))

	var usecs []int64
	for a := l.head; a != nil; a = a.next {
		usecs = append(usecs, a.deadline.usec)
	}
	require.Equal(t, []int64{400, 450, 500}, usecs)
}

func TestInsertFIFOOnEqualDeadlines(t *testing.T) {
	t.Parallel()

	var l alarmList
	dl := absTime{sec: 7, usec: 7}
	require.True(t, l.insert(&alarm{deadline: dl, arg: 1}))
	require.False(t, l.insert(&alarm{deadline: dl, arg: 2}))
	require.False(t, l.insert(&alarm{deadline: dl, arg: 3}))

	var args []any
	for a := l.head; a != nil; a = a.next {
		args = append(args, a.arg)
	}
	require.Equal(t, []any{1, 2, 3}, args)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	var l alarmList
	a := &alarm{deadline: absTime{sec: 1}}
	b := &alarm{deadline: absTime{sec: 2}}
	c := &alarm{deadline: absTime{sec: 3}}
	l.insert(a)
	l.insert(b)
	l.insert(c)

	l.remove(b) // middle
	require.Equal(t, []int64{1, 3}, deadlines(&l))

	l.remove(a) // head
	require.Equal(t, []int64{3}, deadlines(&l))
	require.Same(t, c, l.front())

	l.remove(c) // tail, now empty
	require.Nil(t, l.front())
	require.Equal(t, 0, l.size)
}
