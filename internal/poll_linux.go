//go:build linux

package internal

import (
	"errors"
	"os"
	"syscall"
	"time"
	"unsafe"

	"go.uber.org/atomic"
)

type PollFlags uint32

const (
	ReadFlags  = PollFlags(syscall.EPOLLIN)
	WriteFlags = PollFlags(syscall.EPOLLOUT)
)

type Event struct {
	Flags uint32
	Data  [8]byte
}

func createEvent(flags PollFlags, slot *Slot) Event {
	ev := Event{
		Flags: uint32(flags),
	}
	*(**Slot)(unsafe.Pointer(&ev.Data)) = slot

	return ev
}

// Poller is the epoll engine. Slots are level-triggered: a registration stays
// in the epoll set until Deregister, and a descriptor that stays ready fires
// on every cycle. The poller owns a single timer which bounds blocking waits
// as one more readable source.
type Poller struct {
	// fd is the file descriptor returned by epoll_create1(0).
	fd int

	// events is the buffer handed to epoll_wait. A cycle with more ready
	// slots than fit here picks up the rest on the next cycle since
	// registrations are level-triggered.
	events []Event

	// timer bounds blocking waits when armed. Its descriptor is registered
	// like any other slot so timeouts, wakeups and readiness share one path.
	timer *Timer

	closed atomic.Bool
}

func NewPoller() (*Poller, error) {
	epollFd, err := syscall.EpollCreate1(0)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}

	timer, err := newTimer()
	if err != nil {
		syscall.Close(epollFd)
		return nil, err
	}

	p := &Poller{
		fd:     epollFd,
		events: make([]Event, 128),
		timer:  timer,
	}

	if err := p.Register(&timer.slot); err != nil {
		timer.Close()
		syscall.Close(epollFd)
		return nil, err
	}

	return p, nil
}

func (p *Poller) Close() error {
	if !p.closed.CAS(false, true) {
		return nil
	}

	p.timer.Close()
	return syscall.Close(p.fd)
}

func (p *Poller) Closed() bool {
	return p.closed.Load()
}

// Register adds the slot's descriptor to the epoll set with the slot's
// interest flags. The slot must stay reachable while registered: the epoll
// event payload carries a raw pointer to it.
func (p *Poller) Register(slot *Slot) error {
	if err := p.add(slot.Fd, createEvent(slot.Flags, slot)); err != nil {
		return err
	}
	slot.registered = true
	return nil
}

// Deregister removes the slot from the epoll set. Events already collected
// for this slot in the current cycle will not be dispatched.
func (p *Poller) Deregister(slot *Slot) error {
	if !slot.registered {
		return nil
	}
	slot.registered = false

	err := p.del(slot.Fd)
	if err != nil && (errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.EBADF)) {
		// a descriptor closed by the caller is already gone from the set
		return nil
	}
	return err
}

// ArmTimer bounds subsequent waits: after d the timer fires and the cycle
// returns even if no other slot did.
func (p *Poller) ArmTimer(d time.Duration) error {
	return p.timer.Arm(d)
}

func (p *Poller) DisarmTimer() error {
	return p.timer.Disarm()
}

// RunOne blocks until at least one slot fires, dispatches every collected
// event and returns the number of slots dispatched.
func (p *Poller) RunOne() (int, error) {
	return p.Poll(-1)
}

// Poll waits up to timeoutMs milliseconds for registered slots to fire and
// dispatches them, returning the number of slots dispatched. A negative
// timeout blocks indefinitely, zero polls without blocking. ErrTimeout is
// returned if the timeout expires with nothing ready. Interrupted waits are
// retried, so EINTR never surfaces.
func (p *Poller) Poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	var n uintptr
	for {
		var errno syscall.Errno
		n, _, errno = syscall.RawSyscall6(
			syscall.SYS_EPOLL_WAIT,
			uintptr(p.fd),
			uintptr(unsafe.Pointer(&p.events[0])),
			uintptr(len(p.events)),
			uintptr(timeoutMs),
			0, 0,
		)
		if errno == syscall.EINTR {
			continue
		}
		if errno != 0 {
			return 0, os.NewSyscallError("epoll_wait", errno)
		}
		break
	}

	if n == 0 && timeoutMs >= 0 {
		return 0, ErrTimeout
	}

	fired := 0
	for i := 0; i < int(n); i++ {
		event := &p.events[i]

		slot := *(**Slot)(unsafe.Pointer(&event.Data))
		if !slot.registered {
			continue
		}

		flags := PollFlags(event.Flags)
		if flags&PollFlags(syscall.EPOLLERR|syscall.EPOLLHUP) != 0 {
			// report errors and hangups as whatever the slot asked for so
			// the caller's read or write surfaces the condition
			flags |= slot.Flags
		}
		flags &= slot.Flags
		if flags == 0 {
			continue
		}

		slot.Cb(flags)
		fired++
	}

	return fired, nil
}

func (p *Poller) add(fd int, event Event) error {
	_, _, errno := syscall.RawSyscall6(
		syscall.SYS_EPOLL_CTL,
		uintptr(p.fd),
		uintptr(syscall.EPOLL_CTL_ADD),
		uintptr(fd),
		uintptr(unsafe.Pointer(&event)),
		0, 0,
	)
	if errno != 0 {
		return os.NewSyscallError("epoll_ctl_add", errno)
	}
	return nil
}

func (p *Poller) del(fd int) error {
	_, _, errno := syscall.RawSyscall6(
		syscall.SYS_EPOLL_CTL,
		uintptr(p.fd),
		uintptr(syscall.EPOLL_CTL_DEL),
		uintptr(fd),
		0, 0, 0,
	)
	if errno != 0 {
		return os.NewSyscallError("epoll_ctl_del", errno)
	}
	return nil
}
