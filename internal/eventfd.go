//go:build linux

package internal

import (
	"os"
	"syscall"
	"unsafe"
)

var _ Waker = &EventFd{}

// EventFd is the Linux Waker: a single descriptor holding a kernel counter.
// Writes add to the counter, a read returns and resets it, so any number of
// notifications collapses into one readable event.
type EventFd struct {
	fd int
}

func NewEventFd(nonBlocking bool) (*EventFd, error) {
	var nonBlock uintptr = 0
	if nonBlocking {
		nonBlock = syscall.O_NONBLOCK
	}

	fd, _, err := syscall.Syscall(syscall.SYS_EVENTFD2, 0, nonBlock, 0)
	if err != 0 {
		_ = syscall.Close(int(fd))
		return nil, os.NewSyscallError("eventfd", err)
	}
	return &EventFd{fd: int(fd)}, nil
}

func NewWaker() (Waker, error) {
	efd, err := NewEventFd(true)
	if err != nil {
		return nil, err
	}
	return efd, nil
}

func (e *EventFd) Write(x uint64) (int, error) {
	/* #nosec G103 -- the use of unsafe has been audited */
	return syscall.Write(e.fd, (*(*[8]byte)(unsafe.Pointer(&x)))[:])
}

func (e *EventFd) Read(b []byte) (int, error) {
	return syscall.Read(e.fd, b)
}

func (e *EventFd) Notify() error {
	_, err := e.Write(1)
	if err == syscall.EAGAIN {
		// counter saturated, the pending wakeup covers this one
		return nil
	}
	return err
}

func (e *EventFd) Drain() {
	var b [8]byte
	for {
		if _, err := e.Read(b[:]); err != nil {
			return
		}
	}
}

func (e *EventFd) ReadFd() int {
	return e.fd
}

func (e *EventFd) Close() error {
	return syscall.Close(e.fd)
}
