//go:build !linux

package util

import "fmt"

// PinTo restricts the calling thread to the given CPUs. Thread affinity is
// only implemented on Linux.
func PinTo(cpus ...int) error {
	return fmt.Errorf("cpu pinning is not supported on this platform")
}
