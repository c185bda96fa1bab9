//go:build linux

package internal

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Timer is the engine timeout source, a timerfd registered for reads like
// any other slot. Arming it bounds the next wait; the fire callback clears
// the expiration count so a level-triggered poll does not see it again.
type Timer struct {
	fd   int
	slot Slot
}

func newTimer() (*Timer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME, unix.TFD_NONBLOCK)
	if err != nil {
		return nil, os.NewSyscallError("timerfd_create", err)
	}

	t := &Timer{fd: fd}
	t.slot = Slot{
		Fd:    fd,
		Flags: ReadFlags,
		Cb:    t.onFire,
	}
	return t, nil
}

func (t *Timer) onFire(PollFlags) {
	var b [8]byte
	syscall.Read(t.fd, b[:]) // clear the expiration count
}

// Arm schedules a single fire after d, replacing whatever was armed before.
func (t *Timer) Arm(d time.Duration) error {
	if d <= 0 {
		// a zero value would disarm the timer instead of firing it at once
		d = time.Nanosecond
	}

	err := unix.TimerfdSettime(t.fd, 0, &unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}, nil)
	if err != nil {
		return os.NewSyscallError("timerfd_settime", err)
	}
	return nil
}

func (t *Timer) Disarm() error {
	err := unix.TimerfdSettime(t.fd, 0, &unix.ItimerSpec{}, nil)
	if err != nil {
		return os.NewSyscallError("timerfd_settime", err)
	}
	return nil
}

func (t *Timer) Close() error {
	return syscall.Close(t.fd)
}
