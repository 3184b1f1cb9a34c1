package goalarm

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// maxDelayUs bounds Set's delay so deadline arithmetic cannot overflow the
// clock's representable range.
const maxDelayUs uint64 = 1<<63 - 1 - 1000*1000

// Service is a one-shot alarm scheduler backed by a single timerfd. Multiple
// goroutines may call Set/Cancel concurrently; callbacks run one at a time on
// the service's pinned dispatch thread with no lock held, so a callback may
// itself call Set or Cancel (including cancelling itself).
type Service struct {
	mtx  sync.Mutex
	cond *sync.Cond // signaled each time a callback run completes

	list       alarmList
	tfd        *timerFd
	poller     *poller
	registered bool // dispatcher attached to the poller, set lazily by Set
	closed     bool

	armLeewayNs int64
	log         *zap.SugaredLogger
}

// NewService creates the timer source and starts the dispatch goroutine.
func NewService(optL ...Option) (*Service, error) {
	opts := setOptions(optL...)
	p, err := newPoller(opts.evPollSize, opts.logger)
	if err != nil {
		return nil, err
	}
	go p.run()
	tfd, err := newTimerFd()
	if err != nil {
		p.shutdown()
		return nil, err
	}
	s := &Service{
		tfd:         tfd,
		poller:      p,
		armLeewayNs: int64(opts.armLeeway),
		log:         opts.logger,
	}
	s.cond = sync.NewCond(&s.mtx)
	return s, nil
}

// Set schedules fn(arg) to run once, us microseconds from now. us must be at
// least 1. A returned ErrArmFailed means the OS countdown could not be
// reprogrammed; the alarm stays scheduled and arming is retried on the next
// Set or dispatch pass.
func (s *Service) Set(us uint64, fn AlarmFunc, arg any) error {
	if us < 1 || us > maxDelayUs || fn == nil {
		return ErrInvalidArgument
	}
	now, err := monoNow()
	if err != nil {
		return fmt.Errorf("goalarm: clock read: %w", err)
	}
	a := &alarm{
		deadline: deadlineAfter(now, us),
		fn:       fn,
		fnPC:     reflect.ValueOf(fn).Pointer(),
		arg:      arg,
	}

	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return ErrClosed
	}
	if !s.registered {
		// Registration can fail; it is simply retried on a later Set.
		if err := s.poller.add(s.tfd.fd, s); err == nil {
			s.registered = true
		} else {
			s.log.Warnw("dispatcher registration failed, will retry", "err", err)
		}
	}
	var armErr error
	if s.list.insert(a) {
		// New earliest deadline, reprogram the countdown.
		armErr = s.tfd.arm(int64(us)/usPerS, (int64(us)%usPerS)*nsPerUs+s.armLeewayNs)
	}
	s.mtx.Unlock()

	if armErr != nil {
		return fmt.Errorf("%w: %v", ErrArmFailed, armErr)
	}
	return nil
}

// Pending returns the number of scheduled (not yet completed) alarms.
func (s *Service) Pending() int {
	s.mtx.Lock()
	n := s.list.size
	s.mtx.Unlock()
	return n
}

// OnRead is the dispatch pass, invoked by the poll goroutine when the
// countdown expires. One clock snapshot drives both the drain decision and
// the rearm math.
func (s *Service) OnRead(fd int) bool {
	s.tfd.drain()
	now, err := monoNow()
	if err != nil {
		s.log.Errorw("clock read failed, skipping dispatch pass", "err", err)
		return true
	}
	tid := int64(unix.Gettid())

	s.mtx.Lock()
	for a := s.list.front(); a != nil && !a.deadline.after(now); a = s.list.front() {
		a.executing = true
		a.ownerTID = tid
		s.mtx.Unlock()

		a.fn(a.arg)

		s.mtx.Lock()
		s.list.remove(a)
		s.cond.Broadcast() // wake cancellers waiting out this run
	}
	if head := s.list.front(); head != nil {
		sec, nsec := head.deadline.sub(now)
		if err := s.tfd.arm(sec, nsec+s.armLeewayNs); err != nil {
			s.log.Warnw("rearm failed, next Set or firing recovers", "err", err)
		}
	}
	s.mtx.Unlock()
	return true
}

func (s *Service) OnClose(fd int) {
	s.log.Debugw("timerfd detached from poller", "fd", fd)
}

// Close stops the dispatch goroutine and releases the timer source. Pending
// alarms never fire. Must not be called from inside a callback.
func (s *Service) Close() {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return
	}
	s.closed = true
	s.mtx.Unlock()

	s.poller.shutdown()
	s.tfd.close()
}

// Process-wide default service for programs that want a single shared
// scheduler behind an explicit Init/Cleanup lifecycle.
var (
	defaultMtx sync.Mutex
	defaultSvc *Service
)

// Init sets up the process-wide alarm service. Calling it again after a
// successful Init is a no-op.
func Init(optL ...Option) error {
	defaultMtx.Lock()
	defer defaultMtx.Unlock()
	if defaultSvc != nil {
		return nil
	}
	s, err := NewService(optL...)
	if err != nil {
		return err
	}
	defaultSvc = s
	return nil
}

// Cleanup tears down the process-wide service created by Init.
func Cleanup() {
	defaultMtx.Lock()
	s := defaultSvc
	defaultSvc = nil
	defaultMtx.Unlock()
	if s != nil {
		s.Close()
	}
}

func defaultService() *Service {
	defaultMtx.Lock()
	s := defaultSvc
	defaultMtx.Unlock()
	return s
}

// Set schedules an alarm on the process-wide service.
func Set(us uint64, fn AlarmFunc, arg any) error {
	s := defaultService()
	if s == nil {
		return ErrNotInitialized
	}
	return s.Set(us, fn, arg)
}

// Cancel removes alarms from the process-wide service.
func Cancel(fn AlarmFunc, arg any) (int, error) {
	s := defaultService()
	if s == nil {
		return 0, ErrNotInitialized
	}
	return s.Cancel(fn, arg)
}
