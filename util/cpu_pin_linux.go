//go:build linux

package util

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PinTo restricts the calling thread to the given CPUs. Callers that want
// the pin to cover a particular goroutine must hold runtime.LockOSThread for
// its lifetime.
func PinTo(cpus ...int) error {
	if len(cpus) == 0 {
		return fmt.Errorf("no CPUs to pin to")
	}

	var set unix.CPUSet
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return err
	}

	var verify unix.CPUSet
	if err := unix.SchedGetaffinity(0, &verify); err != nil {
		return err
	}
	if verify.Count() != len(cpus) {
		return fmt.Errorf("thread affinity is wider than CPUs %v", cpus)
	}
	for _, cpu := range cpus {
		if !verify.IsSet(cpu) {
			return fmt.Errorf("thread affinity does not include CPU %d", cpu)
		}
	}

	return nil
}
