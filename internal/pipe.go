//go:build darwin || netbsd || freebsd || openbsd || dragonfly

package internal

import (
	"os"
	"syscall"
)

var _ Waker = &Pipe{}

// Pipe is the BSD Waker: a nonblocking self-pipe. Notify writes a single byte
// to the write end; the read end stays readable until drained.
type Pipe struct {
	pipe [2]int
}

func NewPipe() (*Pipe, error) {
	p := &Pipe{}
	if err := syscall.Pipe(p.pipe[:]); err != nil {
		return nil, os.NewSyscallError("pipe", err)
	}
	return p, nil
}

func NewWaker() (Waker, error) {
	p, err := NewPipe()
	if err != nil {
		return nil, err
	}
	if err := p.SetReadNonblock(); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.SetWriteNonblock(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pipe) SetReadNonblock() error {
	if err := syscall.SetNonblock(p.pipe[0], true); err != nil {
		return os.NewSyscallError("pipe read set_nonblock", err)
	}
	return nil
}

func (p *Pipe) SetWriteNonblock() error {
	if err := syscall.SetNonblock(p.pipe[1], true); err != nil {
		return os.NewSyscallError("pipe write set_nonblock", err)
	}
	return nil
}

func (p *Pipe) Write(b []byte) (int, error) {
	return syscall.Write(p.pipe[1], b)
}

func (p *Pipe) Read(b []byte) (int, error) {
	return syscall.Read(p.pipe[0], b)
}

func (p *Pipe) Notify() error {
	_, err := p.Write([]byte{0})
	if err == syscall.EAGAIN {
		// pipe full, the pending wakeups cover this one
		return nil
	}
	return err
}

func (p *Pipe) Drain() {
	var b [128]byte
	for {
		n, err := p.Read(b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (p *Pipe) ReadFd() int {
	return p.pipe[0]
}

func (p *Pipe) WriteFd() int {
	return p.pipe[1]
}

func (p *Pipe) Close() error {
	err := syscall.Close(p.pipe[0])
	if cerr := syscall.Close(p.pipe[1]); err == nil {
		err = cerr
	}
	return err
}
