package goalarm

// AlarmFunc is the callback signature for a scheduled alarm. The argument is
// the value passed to Set, never touched by the queue.
type AlarmFunc func(arg any)

// alarm is one scheduled callback instance. It is owned by the alarmList;
// the only reference that survives an unlock is the dispatcher's while it
// runs the callback.
type alarm struct {
	next, prev *alarm

	deadline absTime
	fn       AlarmFunc
	fnPC     uintptr // callback identity for cancellation matching
	arg      any

	// executing is set only by the dispatcher while fn runs, under the lock,
	// together with the pinned OS thread id of the dispatch goroutine.
	executing bool
	ownerTID  int64
}

// alarmList keeps entries sorted ascending by deadline, insertion order on
// ties. A plain linked list: alarm counts are small, the cancellation scan
// walks everything anyway, and all mutation happens under one lock.
type alarmList struct {
	head, tail *alarm
	size       int
}

// insert places a in deadline order, before the first strictly-later entry so
// equal deadlines keep FIFO order. Reports whether a became the new head.
func (l *alarmList) insert(a *alarm) bool {
	at := l.head
	for at != nil && !at.deadline.after(a.deadline) {
		at = at.next
	}
	if at == nil { // empty list or append at tail
		a.prev = l.tail
		if l.tail != nil {
			l.tail.next = a
		} else {
			l.head = a
		}
		l.tail = a
	} else {
		a.prev = at.prev
		a.next = at
		if at.prev != nil {
			at.prev.next = a
		} else {
			l.head = a
		}
		at.prev = a
	}
	l.size++
	return l.head == a
}

func (l *alarmList) front() *alarm {
	return l.head
}

func (l *alarmList) remove(a *alarm) {
	if a.prev != nil {
		a.prev.next = a.next
	} else {
		l.head = a.next
	}
	if a.next != nil {
		a.next.prev = a.prev
	} else {
		l.tail = a.prev
	}
	a.next, a.prev = nil, nil
	l.size--
}
