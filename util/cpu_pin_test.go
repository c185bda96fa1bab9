package util

import (
	"runtime"
	"testing"
)

func TestCPUPin(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("cpu pinning is linux only")
	}

	if err := PinTo(0); err != nil {
		t.Fatalf("could not pin to cpu 0 err=%v", err)
	}
	if runtime.NumCPU() > 1 {
		if err := PinTo(0, 1); err != nil {
			t.Fatalf("could not pin to cpus 0 and 1 err=%v", err)
		}
	}
}
