package util

import (
	"testing"
	"time"
)

func closeTo(a, b, eps time.Duration) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func TestOnlineStats(t *testing.T) {
	s := NewOnlineStats()

	check := func() {
		res := s.Result()
		if res.Min != 1*time.Millisecond {
			t.Fatalf("wrong min %v", res.Min)
		}
		if res.Max != 4*time.Millisecond {
			t.Fatalf("wrong max %v", res.Max)
		}
		if !closeTo(res.Avg, 2500*time.Microsecond, time.Microsecond) {
			t.Fatalf("wrong average %v", res.Avg)
		}
		if !closeTo(res.StdDev, 1290*time.Microsecond, 100*time.Microsecond) {
			t.Fatalf("wrong stddev %v", res.StdDev)
		}
		if s.Len() != 4 {
			t.Fatalf("wrong n %d", s.Len())
		}
	}

	s.Add(
		1*time.Millisecond,
		2*time.Millisecond,
		3*time.Millisecond,
		4*time.Millisecond,
	)
	check()

	s.Reset()
	s.Add(
		1*time.Millisecond,
		2*time.Millisecond,
		3*time.Millisecond,
		4*time.Millisecond,
	)
	check()
}

func TestOnlineStatsSingleSample(t *testing.T) {
	s := NewOnlineStats()
	s.Add(5 * time.Millisecond)

	res := s.Result()
	if res.Min != 5*time.Millisecond || res.Max != 5*time.Millisecond {
		t.Fatalf("wrong min/max %v/%v", res.Min, res.Max)
	}
	if res.Avg != 5*time.Millisecond {
		t.Fatalf("wrong average %v", res.Avg)
	}
	if res.StdDev != 0 {
		t.Fatalf("stddev of one sample is %v", res.StdDev)
	}
}
