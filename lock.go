package nio

import (
	"sync"

	"github.com/petermattis/goid"
	"go.uber.org/atomic"
)

// reentrantLock is a mutex the holding goroutine may acquire again without
// deadlocking, so a per-event callback can call back into the selector that
// invoked it. Ownership is tracked by goroutine id; depth is only ever
// touched by the owner.
type reentrantLock struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

func (l *reentrantLock) lock() {
	id := goid.Get()
	if l.owner.Load() == id {
		l.depth++
		return
	}

	l.mu.Lock()
	l.owner.Store(id)
	l.depth = 1
}

func (l *reentrantLock) unlock() {
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.mu.Unlock()
	}
}
