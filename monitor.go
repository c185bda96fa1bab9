package nio

import (
	"github.com/meridiantrading/nio/internal"
	"github.com/meridiantrading/nio/nioerrors"
)

// Monitor is one registered resource: the watched descriptor, the interests
// it was registered with and the readiness observed on the most recent wait
// cycle. Monitors are created by Selector.Register and stay valid until
// deregistered. The selector never owns the descriptor itself; closing a
// Monitor only ends the registration.
type Monitor struct {
	fd        int
	interests Interest
	revents   Interest
	selector  *Selector
	slot      internal.Slot
	value     any
	closed    bool
}

// onReady runs inside a wait cycle with the selector lock held.
func (m *Monitor) onReady(fired internal.PollFlags) {
	m.revents = fired
	m.selector.monitorReady(m)
}

// Fd returns the registered descriptor.
func (m *Monitor) Fd() int {
	return m.fd
}

// Interests returns the conditions the descriptor was registered for. They
// are fixed at registration; changing them means deregistering and
// registering again.
func (m *Monitor) Interests() Interest {
	return m.interests
}

// Readiness returns the conditions observed on the last wait cycle that
// reported this Monitor. It is only meaningful right after such a cycle.
func (m *Monitor) Readiness() Interest {
	return m.revents
}

func (m *Monitor) IsReadable() bool {
	return m.revents&Readable != 0
}

func (m *Monitor) IsWritable() bool {
	return m.revents&Writable != 0
}

// Value returns the caller attachment, if any.
func (m *Monitor) Value() any {
	return m.value
}

// SetValue attaches an arbitrary caller value to the Monitor.
func (m *Monitor) SetValue(v any) error {
	if m.closed {
		return nioerrors.ErrMonitorClosed
	}
	m.value = v
	return nil
}

// Close deregisters the descriptor from the owning selector. Closing an
// already closed Monitor is a no-op.
func (m *Monitor) Close() error {
	if m.closed {
		return nil
	}
	_, err := m.selector.Deregister(m.fd)
	return err
}

// Closed reports whether the Monitor was deregistered.
func (m *Monitor) Closed() bool {
	return m.closed
}
