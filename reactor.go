package goalarm

import (
	"errors"
	"runtime"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// evHandler is the readiness contract between the poller and the objects it
// watches. OnRead returning false unregisters the fd and triggers OnClose.
type evHandler interface {
	OnRead(fd int) bool
	OnClose(fd int)
}

// poller is the notification subsystem: a single epoll instance plus the
// goroutine that waits on it and invokes handlers. Only this goroutine ever
// dispatches, so a handler is never reentered concurrently with itself.
type poller struct {
	efd int // epoll fd

	evReadyNum int // fixed batch size per epoll_wait round

	mtx      sync.Mutex
	handlers map[int]evHandler

	wakeup *notify
	done   chan struct{}

	log *zap.SugaredLogger
}

func newPoller(evReadyNum int, log *zap.SugaredLogger) (*poller, error) {
	if evReadyNum < 1 {
		return nil, errors.New("EvPollSize < 1")
	}
	efd, err := syscall.EpollCreate1(syscall.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.New("epoll_create1: " + err.Error())
	}
	p := &poller{
		efd:        efd,
		evReadyNum: evReadyNum,
		handlers:   make(map[int]evHandler, 4),
		done:       make(chan struct{}),
		log:        log,
	}
	// Must be in place before run() so shutdown can always interrupt the wait.
	p.wakeup, err = newNotify(p)
	if err != nil {
		syscall.Close(efd)
		return nil, err
	}
	return p, nil
}

func (p *poller) add(fd int, eh evHandler) error {
	p.mtx.Lock()
	p.handlers[fd] = eh
	p.mtx.Unlock()

	ev := syscall.EpollEvent{
		Events: syscall.EPOLLIN | syscall.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	if err := syscall.EpollCtl(p.efd, syscall.EPOLL_CTL_ADD, fd, &ev); err != nil {
		p.mtx.Lock()
		delete(p.handlers, fd)
		p.mtx.Unlock()
		return errors.New("epoll_ctl add: " + err.Error())
	}
	return nil
}

func (p *poller) del(fd int) {
	p.mtx.Lock()
	delete(p.handlers, fd)
	p.mtx.Unlock()
	// The events arg may be nil for DEL on kernels > 2.6.9
	syscall.EpollCtl(p.efd, syscall.EPOLL_CTL_DEL, fd, nil)
}

func (p *poller) handler(fd int) evHandler {
	p.mtx.Lock()
	eh := p.handlers[fd]
	p.mtx.Unlock()
	return eh
}

// run is the dispatch loop. The goroutine is pinned to its OS thread so that
// per-alarm executing-thread markers can compare kernel tids: nothing else
// can ever be scheduled onto the pinned thread.
func (p *poller) run() {
	runtime.LockOSThread()
	defer close(p.done)
	defer syscall.Close(p.efd)

	events := make([]syscall.EpollEvent, p.evReadyNum)
	for {
		nfds, err := syscall.EpollWait(p.efd, events, -1)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			p.log.Errorw("epoll_wait failed, poll loop exiting", "err", err)
			return
		}
		for i := 0; i < nfds; i++ {
			ev := &events[i]
			fd := int(ev.Fd)
			eh := p.handler(fd)
			if eh == nil {
				continue
			}
			closed := ev.Events&(syscall.EPOLLHUP|syscall.EPOLLERR) != 0
			if !closed && ev.Events&syscall.EPOLLIN != 0 {
				closed = !eh.OnRead(fd)
			}
			if closed {
				p.del(fd)
				eh.OnClose(fd)
				if eh == p.wakeup {
					return
				}
			}
		}
	}
}

// shutdown wakes the loop and blocks until it has exited and released the
// epoll fd.
func (p *poller) shutdown() {
	p.wakeup.close()
	<-p.done
}
