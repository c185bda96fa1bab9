//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package internal

import (
	"errors"
	"os"
	"syscall"
	"time"
	"unsafe"

	"go.uber.org/atomic"
)

// Filters are negated so they can be combined as bits: kqueue registers reads
// and writes as distinct filters, not as a mask.
type PollFlags int16

const (
	ReadFlags  = -PollFlags(syscall.EVFILT_READ)
	WriteFlags = -PollFlags(syscall.EVFILT_WRITE)
)

func createEvent(ident uint64, filter int16, flags uint16, data int64, slot *Slot) syscall.Kevent_t {
	ev := syscall.Kevent_t{
		Ident:  ident,
		Filter: filter,
		Flags:  flags,
		Data:   data,
	}
	if slot != nil {
		ev.Udata = (*byte)(unsafe.Pointer(slot))
	}
	return ev
}

// Poller is the kqueue engine. Slots are level-triggered: a registration
// stays in the kqueue until Deregister, and a descriptor that stays ready
// fires on every cycle. The poller owns a single timer which bounds blocking
// waits as one more watched source.
type Poller struct {
	kq int

	// eventlist is the buffer handed to kevent. A cycle with more ready
	// slots than fit here picks up the rest on the next cycle since
	// registrations are level-triggered.
	eventlist []syscall.Kevent_t

	timer *Timer

	closed atomic.Bool
}

func NewPoller() (*Poller, error) {
	kq, err := syscall.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}

	p := &Poller{
		kq:        kq,
		eventlist: make([]syscall.Kevent_t, 128),
	}
	p.timer = newTimer(p)

	return p, nil
}

func (p *Poller) Close() error {
	if !p.closed.CAS(false, true) {
		return nil
	}

	p.timer.Close()
	return syscall.Close(p.kq)
}

func (p *Poller) Closed() bool {
	return p.closed.Load()
}

// Register adds the slot's descriptor to the kqueue with one change per
// interest flag. Changes are submitted immediately so a registration failure
// surfaces here rather than on a later wait. The slot must stay reachable
// while registered: kevent's udata carries a raw pointer to it.
func (p *Poller) Register(slot *Slot) error {
	var changes [2]syscall.Kevent_t
	n := 0
	if slot.Flags&ReadFlags == ReadFlags {
		changes[n] = createEvent(uint64(slot.Fd), syscall.EVFILT_READ, syscall.EV_ADD, 0, slot)
		n++
	}
	if slot.Flags&WriteFlags == WriteFlags {
		changes[n] = createEvent(uint64(slot.Fd), syscall.EVFILT_WRITE, syscall.EV_ADD, 0, slot)
		n++
	}

	if n > 0 {
		if err := p.submit(changes[:n]); err != nil {
			return err
		}
	}
	slot.registered = true
	return nil
}

// Deregister removes the slot from the kqueue. Events already collected for
// this slot in the current cycle will not be dispatched.
func (p *Poller) Deregister(slot *Slot) error {
	if !slot.registered {
		return nil
	}
	slot.registered = false

	var changes [2]syscall.Kevent_t
	n := 0
	if slot.Flags&ReadFlags == ReadFlags {
		changes[n] = createEvent(uint64(slot.Fd), syscall.EVFILT_READ, syscall.EV_DELETE, 0, nil)
		n++
	}
	if slot.Flags&WriteFlags == WriteFlags {
		changes[n] = createEvent(uint64(slot.Fd), syscall.EVFILT_WRITE, syscall.EV_DELETE, 0, nil)
		n++
	}
	if n == 0 {
		return nil
	}

	err := p.submit(changes[:n])
	if err != nil && (errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.EBADF)) {
		// a descriptor closed by the caller is already gone from the kqueue
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

	var timeout *syscall.Timespec
	if timeoutMs >= 0 { // 0 does a poll
		ts := syscall.NsecToTimespec(int64(timeoutMs) * 1e6)
		timeout = &ts
	}

	var n int
	for {
		var err error
		n, err = syscall.Kevent(p.kq, nil, p.eventlist, timeout)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("kevent", err)
		}
		break
	}

	if n == 0 && timeoutMs >= 0 {
		return 0, ErrTimeout
	}

	fired := 0
	for i := 0; i < n; i++ {
		event := &p.eventlist[i]

		if event.Filter == syscall.EVFILT_TIMER {
			// the one-shot timer deleted itself on firing
			p.timer.armed = false
			fired++
			continue
		}

		slot := (*Slot)(unsafe.Pointer(event.Udata))
		if slot == nil || !slot.registered {
			continue
		}

		flags := -PollFlags(event.Filter)
		if event.Flags&syscall.EV_ERROR != 0 {
			// report errors as whatever the slot asked for so the caller's
			// read or write surfaces the condition
			flags = slot.Flags
		}

		// kqueue reports read and write readiness as two list entries. Fold
		// the paired entry into this one so a slot fires at most once per
		// cycle, with the combined flags.
		if slot.Flags&(ReadFlags|WriteFlags) == ReadFlags|WriteFlags {
			for j := i + 1; j < n; j++ {
				pair := &p.eventlist[j]
				if (*Slot)(unsafe.Pointer(pair.Udata)) != slot {
					continue
				}
				if pair.Flags&syscall.EV_ERROR != 0 {
					flags = slot.Flags
				} else {
					flags |= -PollFlags(pair.Filter)
				}
				pair.Udata = nil
				break
			}
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

func (p *Poller) submit(changes []syscall.Kevent_t) error {
	if _, err := syscall.Kevent(p.kq, changes, nil, nil); err != nil {
		return os.NewSyscallError("kevent", err)
	}
	return nil
}
