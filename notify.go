package goalarm

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

const closeMagic uint64 = 31415927

// closeV is the eventfd payload that tells the poll loop to exit.
var closeV = func() []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], closeMagic)
	return b[:]
}()

// notify is an eventfd wired into the poller, used to break the loop out of
// epoll_wait for shutdown.
type notify struct {
	efd       int
	closeOnce atomic.Int32 // avoid duplicate close writes
}

func newNotify(p *poller) (*notify, error) {
	// since Linux 2.6.27
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, errors.New("eventfd: " + err.Error())
	}
	nt := &notify{efd: fd}
	if err = p.add(fd, nt); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	return nt, nil
}

func (nt *notify) close() {
	if !nt.closeOnce.CompareAndSwap(0, 1) {
		return
	}
	for {
		n, err := syscall.Write(nt.efd, closeV) // man 2 eventfd
		if n == 8 || err != syscall.EINTR {
			return
		}
	}
}

func (nt *notify) OnRead(fd int) bool {
	var tmp [8]byte
	for {
		n, err := syscall.Read(nt.efd, tmp[:])
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return err == syscall.EAGAIN
		}
		if n == 8 && binary.LittleEndian.Uint64(tmp[:]) == closeMagic {
			return false // poll loop exits
		}
	}
}

func (nt *notify) OnClose(fd int) {
	syscall.Close(nt.efd)
	nt.efd = -1
}
