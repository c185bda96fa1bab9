package nio

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meridiantrading/nio/nioerrors"
)

func TestMonitorAccessors(t *testing.T) {
	assert := assert.New(t)

	s := MustSelector()
	defer s.Close()

	r, _ := testPipe(t)

	m, err := s.Register(r, Readable|Writable)
	assert.NoError(err)
	assert.Equal(r, m.Fd())
	assert.Equal(Readable|Writable, m.Interests())
	assert.Equal(Interest(0), m.Readiness())
	assert.False(m.IsReadable())
	assert.False(m.IsWritable())
	assert.False(m.Closed())
}

func TestMonitorValue(t *testing.T) {
	assert := assert.New(t)

	s := MustSelector()
	defer s.Close()

	r, _ := testPipe(t)

	m, err := s.Register(r, Readable)
	assert.NoError(err)
	assert.Nil(m.Value())

	assert.NoError(m.SetValue("session-42"))
	assert.Equal("session-42", m.Value())

	assert.NoError(m.Close())
	assert.ErrorIs(m.SetValue("closed"), nioerrors.ErrMonitorClosed)

	// the old attachment survives the failed update
	assert.Equal("session-42", m.Value())
}

func TestMonitorCloseDeregisters(t *testing.T) {
	assert := assert.New(t)

	s := MustSelector()
	defer s.Close()

	r, _ := testPipe(t)

	m, err := s.Register(r, Readable)
	assert.NoError(err)

	assert.NoError(m.Close())
	assert.True(m.Closed())
	assert.False(s.Registered(r))

	// closing again is a no-op
	assert.NoError(m.Close())
}

func TestMonitorWritableReadiness(t *testing.T) {
	assert := assert.New(t)

	s := MustSelector()
	defer s.Close()

	_, w := testPipe(t)

	m, err := s.Register(w, Writable)
	assert.NoError(err)

	// an empty pipe is writable at once
	ready, err := s.SelectFor(time.Second)
	assert.NoError(err)
	assert.Len(ready, 1)
	assert.Same(m, ready[0])
	assert.True(m.IsWritable())
	assert.False(m.IsReadable())
}

func TestMonitorReadinessRefreshesPerCycle(t *testing.T) {
	assert := assert.New(t)

	s := MustSelector()
	defer s.Close()

	r, w := testPipe(t)

	m, err := s.Register(r, Readable)
	assert.NoError(err)

	_, err = syscall.Write(w, []byte{1})
	assert.NoError(err)

	ready, err := s.SelectFor(time.Second)
	assert.NoError(err)
	assert.Len(ready, 1)
	assert.True(m.IsReadable())

	// drain the pipe and fire another cycle via wakeup: the monitor must
	// not be reported again
	var b [8]byte
	_, err = syscall.Read(r, b[:])
	assert.NoError(err)

	assert.NoError(s.Wakeup())
	ready, err = s.SelectFor(100 * time.Millisecond)
	assert.NoError(err)
	assert.Nil(ready)
}
