package goalarm

import (
	"reflect"

	"golang.org/x/sys/unix"
)

// wildcard is deliberately unexported: no legitimate argument value can
// collide with AnyArg.
type wildcard struct{}

// AnyArg, passed as Cancel's argument, matches alarms by callback identity
// alone, ignoring the argument they were scheduled with.
var AnyArg any = wildcard{}

// matchArg compares a scheduled argument with the one being cancelled.
// Comparing interface values panics only when both dynamic types are the
// same non-comparable type, so rejecting non-comparable wanted values keeps
// this safe.
func matchArg(have, want any) bool {
	if want == AnyArg {
		return true
	}
	if want == nil {
		return have == nil
	}
	if !reflect.TypeOf(want).Comparable() {
		return false
	}
	return have == want
}

// Cancel removes every alarm whose callback (and argument, unless AnyArg)
// matches, and returns how many were removed.
//
// Callback identity is the function's code pointer: distinct closures built
// from the same literal compare equal, use the argument to tell them apart.
// Arguments are compared with ==, so values used for matching should be
// comparable (as with map keys).
//
// If a matching callback is currently running on another thread, Cancel
// blocks until that run completes; the waited-out entry counts as removed
// since it can never fire again. If the matching callback is the caller
// itself (self-cancellation from inside its own invocation), Cancel returns
// ErrInProgress immediately instead of deadlocking, leaving the entry for
// the dispatcher to reap when the callback returns.
func (s *Service) Cancel(fn AlarmFunc, arg any) (int, error) {
	if fn == nil {
		return 0, ErrInvalidArgument
	}
	pc := reflect.ValueOf(fn).Pointer()
	tid := int64(unix.Gettid())

	removed := 0
	inProgress := false
	var waited map[*alarm]struct{}

	s.mtx.Lock()
	for {
		foreign := false
		for a := s.list.head; a != nil; {
			next := a.next
			if a.fnPC == pc && matchArg(a.arg, arg) {
				switch {
				case !a.executing:
					s.list.remove(a)
					removed++
				case a.ownerTID == tid:
					// Cancelling ourselves mid-callback: the executing marker
					// is ours, waiting for it to clear would never end.
					inProgress = true
				default:
					if waited == nil {
						waited = make(map[*alarm]struct{})
					}
					waited[a] = struct{}{}
					foreign = true
				}
			}
			a = next
		}
		if !foreign {
			break
		}
		s.cond.Wait() // until the dispatcher finishes a run and reaps it
	}
	s.mtx.Unlock()

	removed += len(waited)

	if inProgress {
		return removed, ErrInProgress
	}
	if removed == 0 {
		return 0, ErrNotFound
	}
	return removed, nil
}
