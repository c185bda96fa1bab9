package internal

// Handler is invoked by the Poller with the readiness observed on a slot
// during a poll cycle. The observed flags are always a subset of the slot's
// interest flags.
type Handler func(PollFlags)

// Slot is one watched descriptor: the file descriptor, the interest flags it
// was registered with and the callback dispatched when it fires. Fd, Flags and
// Cb must be set before Register and must not change while registered.
//
// Registrations are level-triggered and persist until Deregister: a slot whose
// descriptor stays ready fires on every poll cycle.
type Slot struct {
	Fd    int
	Flags PollFlags
	Cb    Handler

	// Maintained by the Poller. Events already collected for a slot that was
	// deregistered in the same cycle are dropped on dispatch.
	registered bool
}

// Waker unblocks a Poller some other goroutine is waiting on. Its read side is
// an ordinary descriptor meant to be registered for reads; Notify makes it
// readable from any goroutine without locks. The waker stays readable until
// drained, so pending notifications coalesce.
type Waker interface {
	// Notify wakes the poller. Safe for concurrent use. A waker whose channel
	// is already saturated reports success: the pending wakeup covers it.
	Notify() error

	// Drain consumes everything written since the last drain, clearing the
	// read side's readiness.
	Drain()

	// ReadFd returns the descriptor to register for read readiness.
	ReadFd() int

	Close() error
}
