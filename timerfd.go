package goalarm

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// timerFd wraps the one-shot OS countdown object. It becomes readable exactly
// once per arm; not rearming after the queue drains leaves it disarmed.
type timerFd struct {
	fd int
}

func newTimerFd() (*timerFd, error) {
	// timerfd does not accept CLOCK_MONOTONIC_RAW; arming is always relative,
	// so mixing domains with the RAW deadline clock only costs slew drift.
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		if err == unix.ENOSYS {
			return nil, errors.New("timerfd_create not implemented")
		}
		return nil, errors.New("timerfd_create: " + err.Error())
	}
	return &timerFd{fd: fd}, nil
}

// arm schedules a single, non-repeating expiration after the given relative
// duration. An all-zero it_value would disarm instead, so the duration is
// clamped to 1ns.
func (t *timerFd) arm(sec, nsec int64) error {
	if nsec >= usPerS*nsPerUs {
		sec += nsec / (usPerS * nsPerUs)
		nsec %= usPerS * nsPerUs
	}
	if sec == 0 && nsec == 0 {
		nsec = 1
	}
	ts := unix.ItimerSpec{
		Value: unix.Timespec{Sec: sec, Nsec: nsec},
	}
	if err := unix.TimerfdSettime(t.fd, 0 /*relative*/, &ts, nil); err != nil {
		return err
	}
	return nil
}

func (t *timerFd) armUs(us uint64) error {
	return t.arm(int64(us)/usPerS, (int64(us)%usPerS)*nsPerUs)
}

// drain consumes the 8-byte expiration counter so level-triggered polling
// does not re-report a fired timer.
func (t *timerFd) drain() {
	var buf [8]byte
	for {
		_, err := syscall.Read(t.fd, buf[:])
		if err == syscall.EINTR {
			continue
		}
		return // EAGAIN when a racing arm cleared readability; both fine
	}
}

func (t *timerFd) close() {
	if t.fd != -1 {
		syscall.Close(t.fd)
		t.fd = -1
	}
}
