// Package nio multiplexes readiness over raw file descriptors. A Selector
// owns a platform poller (epoll on Linux, kqueue on the BSDs); callers
// register descriptors with an interest mask and block in Select until one
// or more become ready, a timeout expires or another goroutine calls Wakeup.
//
//	selector := nio.MustSelector()
//	defer selector.Close()
//
//	monitor, err := selector.Register(fd, nio.Readable)
//	if err != nil {
//		// fd is already registered or the selector is closed
//	}
//	_ = monitor
//
//	ready, err := selector.SelectFor(time.Second)
//	if err != nil {
//		// engine failure
//	}
//	for _, m := range ready {
//		if m.IsReadable() {
//			// a read on m.Fd() will not block
//		}
//	}
//
// Selectors are safe for concurrent use. Wakeup is lock-free; every other
// operation serializes on a reentrant lock, so callbacks passed to
// SelectEach may register and deregister freely.
package nio
