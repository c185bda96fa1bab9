//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package internal

import (
	"syscall"
	"time"
)

// Timer is the engine timeout source, an EVFILT_TIMER one-shot kevent. The
// kq descriptor doubles as the timer's ident: idents are scoped per filter,
// so it cannot collide with a registered descriptor.
type Timer struct {
	ident  uint64
	poller *Poller
	armed  bool
}

func newTimer(p *Poller) *Timer {
	return &Timer{
		ident:  uint64(p.kq),
		poller: p,
	}
}

// Arm schedules a single fire after d, replacing whatever was armed before.
func (t *Timer) Arm(d time.Duration) error {
	// An armed or expired-but-uncollected predecessor must go first, or its
	// stale event would end the next wait early.
	if err := t.Disarm(); err != nil {
		return err
	}

	// EVFILT_TIMER counts milliseconds; round up so a short timeout never
	// fires early.
	ms := int64((d + time.Millisecond - 1) / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}

	err := t.poller.submit([]syscall.Kevent_t{createEvent(
		t.ident,
		syscall.EVFILT_TIMER,
		syscall.EV_ADD|syscall.EV_ENABLE|syscall.EV_ONESHOT,
		ms,
		nil,
	)})
	if err == nil {
		t.armed = true
	}
	return err
}

func (t *Timer) Disarm() error {
	if !t.armed {
		return nil
	}
	t.armed = false

	return t.poller.submit([]syscall.Kevent_t{createEvent(
		t.ident,
		syscall.EVFILT_TIMER,
		syscall.EV_DELETE|syscall.EV_DISABLE,
		0,
		nil,
	)})
}

func (t *Timer) Close() error {
	// The ident is the kq descriptor, owned by the poller; disarming is all
	// the cleanup there is.
	return t.Disarm()
}
