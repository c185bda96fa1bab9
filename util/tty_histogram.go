package util

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

type TtyHistOpts struct {
	// Name tags every report.
	Name string

	// Unit is the scale samples are tracked at: every sample is divided by
	// it before recording. Typically time.Microsecond.
	Unit time.Duration

	// Window is the number of samples per report; the histogram resets
	// after each report.
	Window int64

	// MinPct hides distribution bins holding less than this percentage of
	// the window.
	MinPct float64

	// Min, Max and Precision bound the trackable values, expressed in Unit.
	Min, Max  int64
	Precision int

	// Writer receives the reports. With a nil Writer samples are still
	// tracked but nothing is printed.
	Writer io.Writer
}

// TtyHist tracks latency samples in an HDR histogram and prints percentiles
// plus an ascii distribution every Window samples.
type TtyHist struct {
	opts TtyHistOpts

	hdr  *hdrhistogram.Histogram
	tabw *tabwriter.Writer
	n    int
}

func NewTtyHist(opts TtyHistOpts) *TtyHist {
	if opts.Unit <= 0 {
		opts.Unit = time.Nanosecond
	}
	return &TtyHist{
		opts: opts,
		hdr:  hdrhistogram.New(opts.Min, opts.Max, opts.Precision),
		tabw: tabwriter.NewWriter(opts.Writer, 2, 2, 2, byte(' '), 0),
	}
}

// Add records latency samples, reporting and resetting on every full window.
func (h *TtyHist) Add(samples ...time.Duration) {
	for _, d := range samples {
		_ = h.hdr.RecordValue(int64(d / h.opts.Unit))
	}
	if h.hdr.TotalCount() >= h.opts.Window {
		h.n++
		h.report()
		h.hdr.Reset()
	}
}

// AddSince records the latency elapsed since start.
func (h *TtyHist) AddSince(start time.Time) {
	h.Add(time.Since(start))
}

// Reported returns the number of reports printed so far.
func (h *TtyHist) Reported() int {
	return h.n
}

func (h *TtyHist) unit() string {
	switch h.opts.Unit {
	case time.Nanosecond:
		return "ns"
	case time.Microsecond:
		return "us"
	case time.Millisecond:
		return "ms"
	case time.Second:
		return "s"
	}
	return h.opts.Unit.String()
}

func (h *TtyHist) report() {
	if h.opts.Writer == nil {
		return
	}

	unit := h.unit()

	fmt.Fprint(h.opts.Writer,
		"----------------------------------------------\n")
	fmt.Fprintf(h.opts.Writer,
		"%v latency report=%d name=%s window=%d unit=%s\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		h.n, h.opts.Name, h.opts.Window, unit,
	)
	fmt.Fprintf(h.opts.Writer,
		"summary min/avg/max/stddev = %d/%.3f/%d/%.3f %s\n",
		h.hdr.Min(), h.hdr.Mean(), h.hdr.Max(), h.hdr.StdDev(), unit)

	for _, pct := range []float64{50.0, 90.0, 95.0, 99.0, 99.9} {
		fmt.Fprintf(h.opts.Writer,
			"%vth percentile=%d %s\n", pct, h.hdr.ValueAtPercentile(pct), unit)
	}

	// bars are scaled to the spread between the fullest and emptiest
	// visible bin
	var minBinCount, maxBinCount int64 = math.MaxInt64, math.MinInt64
	for _, bin := range h.hdr.Distribution() {
		pct := float64(bin.Count) * 100.0 / float64(h.hdr.TotalCount())
		if pct < h.opts.MinPct {
			continue
		}

		if bin.Count < minBinCount {
			minBinCount = bin.Count
		}
		if bin.Count > maxBinCount {
			maxBinCount = bin.Count
		}
	}

	count := func(y int64) string {
		if y > 0 {
			return strconv.FormatInt(y, 10)
		}
		return ""
	}

	for _, bin := range h.hdr.Distribution() {
		pct := float64(bin.Count) * 100.0 / float64(h.hdr.TotalCount())
		if pct < h.opts.MinPct {
			continue
		}

		barSize := 1
		if maxBinCount > minBinCount {
			fraction := float64(bin.Count-minBinCount) /
				float64(maxBinCount-minBinCount)
			if size := int(math.Ceil(fraction * 10)); size > 1 {
				barSize = size
			}
		}

		from, to := bin.From, bin.To
		if from == to {
			to++
		}

		fmt.Fprintf(h.tabw,
			"%d-%d %s\t%.3g%%\t%s\n",
			from, to,
			unit,
			pct,
			strings.Repeat("|", barSize)+"\t"+count(bin.Count),
		)
	}

	_ = h.tabw.Flush()
}
