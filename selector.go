package nio

import (
	"time"

	"go.uber.org/atomic"

	"github.com/meridiantrading/nio/internal"
	"github.com/meridiantrading/nio/nioerrors"
)

// readyBufferSize is the initial capacity of the batch returned by Select.
const readyBufferSize = 32

// timerSlack is added to finite timeouts so that a zero or near-zero timeout
// still arms a real timer instead of a degenerate one.
const timerSlack = 100 * time.Microsecond

// Selector multiplexes readiness over registered file descriptors. It owns a
// platform poller and a wakeup channel whose read side is registered with the
// poller for the selector's lifetime, so timeouts, cross-goroutine wakeups
// and real readiness all arrive through the same wait.
//
// All methods are safe for concurrent use. Wakeup is lock-free; the rest
// serialize on a reentrant lock, so per-event callbacks may call back into
// the selector they were fired from.
type Selector struct {
	poller *internal.Poller
	waker  internal.Waker

	// wakerSlot keeps the waker's read side registered for the selector's
	// lifetime. Its callback drains the channel and marks the cycle
	// interrupted rather than data-ready.
	wakerSlot internal.Slot

	mu       reentrantLock
	registry map[int]*Monitor

	// selecting is true while a wait cycle is blocked in the poller; the
	// waker callback clears it to mark the cycle interrupted.
	selecting atomic.Bool
	closed    atomic.Bool

	// Wait-cycle state, touched only under mu. inCycle owns the busy check
	// and spans the whole cycle, unlike selecting, which a wakeup dispatched
	// earlier in the same cycle may already have cleared.
	inCycle    bool
	readyCount int
	ready      []*Monitor
	cb         func(*Monitor)
}

func NewSelector() (*Selector, error) {
	poller, err := internal.NewPoller()
	if err != nil {
		return nil, err
	}

	waker, err := internal.NewWaker()
	if err != nil {
		poller.Close()
		return nil, err
	}

	s := &Selector{
		poller:   poller,
		waker:    waker,
		registry: make(map[int]*Monitor),
	}
	s.wakerSlot = internal.Slot{
		Fd:    waker.ReadFd(),
		Flags: internal.ReadFlags,
		Cb:    s.onWake,
	}

	if err := poller.Register(&s.wakerSlot); err != nil {
		waker.Close()
		poller.Close()
		return nil, err
	}

	return s, nil
}

// MustSelector panics if the selector cannot be constructed.
func MustSelector() *Selector {
	s, err := NewSelector()
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Selector) onWake(internal.PollFlags) {
	s.waker.Drain()
	s.selecting.Store(false)
}

// Register creates a Monitor watching fd for the given interests and stores
// it in the registry. The descriptor's lifecycle stays with the caller; only
// the registration is owned here. Register fails with ErrAlreadyRegistered
// if fd already has a Monitor and with ErrSelectorClosed after Close.
func (s *Selector) Register(fd int, interests Interest) (*Monitor, error) {
	s.mu.lock()
	defer s.mu.unlock()

	if s.closed.Load() {
		return nil, nioerrors.ErrSelectorClosed
	}
	if _, ok := s.registry[fd]; ok {
		return nil, nioerrors.ErrAlreadyRegistered
	}

	m := &Monitor{
		fd:        fd,
		interests: interests,
		selector:  s,
	}
	m.slot = internal.Slot{
		Fd:    fd,
		Flags: interests,
		Cb:    m.onReady,
	}

	if err := s.poller.Register(&m.slot); err != nil {
		return nil, err
	}
	s.registry[fd] = m
	return m, nil
}

// Deregister removes fd's Monitor from the registry and the poller, marks it
// closed and returns it. Deregistering an unknown descriptor returns nil
// without error. After Close the registry entry is still removed but the
// poller, already torn down, is left alone.
func (s *Selector) Deregister(fd int) (*Monitor, error) {
	s.mu.lock()
	defer s.mu.unlock()

	m, ok := s.registry[fd]
	if !ok {
		return nil, nil
	}

	delete(s.registry, fd)
	m.closed = true

	if s.closed.Load() {
		return m, nil
	}
	if err := s.poller.Deregister(&m.slot); err != nil {
		return m, err
	}
	return m, nil
}

// Registered reports whether fd currently has a Monitor.
func (s *Selector) Registered(fd int) bool {
	s.mu.lock()
	defer s.mu.unlock()

	_, ok := s.registry[fd]
	return ok
}

// Select blocks until at least one registered descriptor becomes ready and
// returns the ready Monitors, each with its Readiness refreshed. It returns
// nil Monitors and a nil error when the wait was interrupted by Wakeup
// before anything fired.
func (s *Selector) Select() ([]*Monitor, error) {
	return s.selectBatch(-1)
}

// SelectFor is Select with a bounded wait: nil Monitors and a nil error mean
// the timeout elapsed, or a wakeup arrived, with nothing ready. A negative
// timeout fails with ErrInvalidTimeout.
func (s *Selector) SelectFor(timeout time.Duration) ([]*Monitor, error) {
	if timeout < 0 {
		return nil, nioerrors.ErrInvalidTimeout
	}
	return s.selectBatch(timeout)
}

// SelectEach blocks like Select but hands each ready Monitor to fn as it is
// collected instead of accumulating a batch, and returns the number of
// descriptors that fired.
func (s *Selector) SelectEach(fn func(*Monitor)) (int, error) {
	return s.wait(-1, fn)
}

// SelectEachFor is SelectEach with a bounded wait. A negative timeout fails
// with ErrInvalidTimeout.
func (s *Selector) SelectEachFor(timeout time.Duration, fn func(*Monitor)) (int, error) {
	if timeout < 0 {
		return 0, nioerrors.ErrInvalidTimeout
	}
	return s.wait(timeout, fn)
}

func (s *Selector) selectBatch(timeout time.Duration) ([]*Monitor, error) {
	s.mu.lock()
	defer s.mu.unlock()

	n, err := s.wait(timeout, nil)
	if err != nil || n == 0 {
		return nil, err
	}

	ready := s.ready
	s.ready = nil
	return ready, nil
}

// wait runs one wait cycle. A negative timeout waits indefinitely. With a
// nil fn, fired monitors accumulate in s.ready.
func (s *Selector) wait(timeout time.Duration, fn func(*Monitor)) (int, error) {
	s.mu.lock()
	defer s.mu.unlock()

	if s.closed.Load() {
		return 0, nioerrors.ErrSelectorClosed
	}
	if s.inCycle {
		// only reachable from a per-event callback re-entering select
		return 0, nioerrors.ErrSelectorBusy
	}

	s.cb = fn
	if fn == nil {
		s.ready = make([]*Monitor, 0, readyBufferSize)
	}

	if timeout >= 0 {
		if err := s.poller.ArmTimer(timeout + timerSlack); err != nil {
			return 0, err
		}
	} else if err := s.poller.DisarmTimer(); err != nil {
		return 0, err
	}

	s.readyCount = 0
	s.inCycle = true
	s.selecting.Store(true)
	// The cycle state must clear even if a per-event callback panics, or
	// the selector would report busy forever after the caller recovers.
	defer func() {
		s.inCycle = false
		s.selecting.Store(false)
		s.cb = nil
	}()

	_, err := s.poller.RunOne()

	n := s.readyCount
	s.readyCount = 0
	if err != nil {
		return 0, err
	}
	return n, nil
}

// monitorReady records one fired monitor during a wait cycle. It runs with
// the lock held, inside the poller dispatch.
func (s *Selector) monitorReady(m *Monitor) {
	s.readyCount++
	if s.cb != nil {
		s.cb(m)
	} else {
		s.ready = append(s.ready, m)
	}
}

// Wakeup unblocks a pending or future wait cycle. It is safe to call from
// any goroutine and never takes the selector lock; multiple wakeups between
// two cycles coalesce into a single interruption.
func (s *Selector) Wakeup() error {
	if s.closed.Load() {
		return nioerrors.ErrSelectorClosed
	}
	return s.waker.Notify()
}

// Close releases the poller and the wakeup channel. It is idempotent. A
// goroutine blocked in a wait cycle is woken first so teardown never
// deadlocks against it; registered descriptors themselves are left
// untouched.
func (s *Selector) Close() error {
	if !s.closed.CAS(false, true) {
		return nil
	}

	// Unblock a cycle in progress before taking the lock it holds.
	s.waker.Notify()

	s.mu.lock()
	defer s.mu.unlock()

	err := s.poller.Close()
	if werr := s.waker.Close(); err == nil {
		err = werr
	}
	return err
}

// Closed reports whether Close has run.
func (s *Selector) Closed() bool {
	return s.closed.Load()
}
