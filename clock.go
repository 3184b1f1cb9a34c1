package goalarm

import (
	"golang.org/x/sys/unix"
)

const (
	nsPerUs int64 = 1000
	usPerS  int64 = 1000 * 1000
)

// clockID is the monotonic clock alarms are measured against. RAW is immune
// to NTP slewing; older kernels without it fall back to CLOCK_MONOTONIC.
var clockID = func() int32 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err == nil {
		return unix.CLOCK_MONOTONIC_RAW
	}
	return unix.CLOCK_MONOTONIC
}()

// absTime is an absolute monotonic-clock instant with microsecond precision.
type absTime struct {
	sec  int64
	usec int64 // always in [0, usPerS)
}

func monoNow() (absTime, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(clockID, &ts); err != nil {
		return absTime{}, err
	}
	return absTime{sec: int64(ts.Sec), usec: int64(ts.Nsec) / nsPerUs}, nil
}

// after reports whether t is strictly later than o. An entry is due when
// its deadline is NOT after now.
func (t absTime) after(o absTime) bool {
	return t.sec > o.sec || (t.sec == o.sec && t.usec > o.usec)
}

// sub returns t-now as a relative (sec, nsec) pair for timerfd arming,
// borrowing across the sub-second boundary and saturating at zero.
func (t absTime) sub(now absTime) (sec, nsec int64) {
	sec = t.sec
	usec := t.usec
	if usec < now.usec {
		sec--
		usec += usPerS
	}
	sec -= now.sec
	usec -= now.usec
	if sec < 0 {
		return 0, 0
	}
	return sec, usec * nsPerUs
}

// deadlineAfter computes now+us with carry into the seconds field.
func deadlineAfter(now absTime, us uint64) absTime {
	total := uint64(now.usec) + us
	return absTime{
		sec:  now.sec + int64(total/uint64(usPerS)),
		usec: int64(total % uint64(usPerS)),
	}
}
