package util

import (
	"math"
	"time"
)

// Result is one batch of latency statistics.
type Result struct {
	Min    time.Duration
	Max    time.Duration
	Avg    time.Duration
	StdDev time.Duration
}

func (r *Result) Reset() {
	r.Min = time.Duration(math.MaxInt64)
	r.Max = time.Duration(math.MinInt64)
	r.Avg = 0
	r.StdDev = 0
}

// OnlineStats gives you min/avg/max/stddev of latency samples in O(1) time
// and space, suitable for accumulating over a process lifetime. The standard
// deviation is Welford's, less exact than an offline pass but stable over
// billions of samples.
type OnlineStats struct {
	res *Result

	n      int
	mean   float64
	meanSq float64
}

func NewOnlineStats() *OnlineStats {
	res := &Result{}
	res.Reset()
	return &OnlineStats{res: res}
}

func (s *OnlineStats) Add(samples ...time.Duration) {
	for _, d := range samples {
		if d > s.res.Max {
			s.res.Max = d
		}
		if d < s.res.Min {
			s.res.Min = d
		}

		x := float64(d)
		s.n++
		delta := x - s.mean
		s.mean += delta / float64(s.n)
		s.meanSq += delta * (x - s.mean)
	}

	s.res.Avg = time.Duration(s.mean)
	if s.n >= 2 {
		s.res.StdDev = time.Duration(math.Sqrt(s.meanSq / float64(s.n-1)))
	}
}

func (s *OnlineStats) Result() *Result {
	return s.res
}

func (s *OnlineStats) Reset() {
	s.n = 0
	s.mean = 0
	s.meanSq = 0
	s.res.Reset()
}

func (s *OnlineStats) Len() int {
	return s.n
}
