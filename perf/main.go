package main

import (
	"encoding/binary"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"time"

	_ "net/http/pprof"

	"github.com/felixge/fgprof"
	"github.com/meridiantrading/nio"
	"github.com/meridiantrading/nio/util"
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

var (
	mode = flag.String(
		"mode",
		"pipe",
		"latency path to measure: pipe or wakeup",
	)
	rate   = flag.Duration("rate", time.Millisecond, "interval between samples")
	window = flag.Int64("window", 1024, "samples per histogram report")
	cpu    = flag.Int("cpu", -1, "if >= 0, pin the measuring thread to this cpu")
	pprof  = flag.String("pprof", "", "address for pprof; if empty, no pprof")
)

func main() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	flag.Parse()

	if *cpu >= 0 {
		if err := util.PinTo(*cpu); err != nil {
			log.Fatal(err)
		}
		log.Printf("pinned to cpu %d", *cpu)
	}

	if *pprof != "" {
		http.Handle("/debug/fgprof", fgprof.Handler())
		go func() {
			if err := http.ListenAndServe(*pprof, nil); err != nil {
				log.Fatal(err)
			}
		}()
	}

	s := nio.MustSelector()
	defer s.Close()

	stop := atomic.NewBool(false)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		stop.Store(true)
		_ = s.Wakeup()
	}()

	hist := util.NewTtyHist(util.TtyHistOpts{
		Name:      *mode,
		Unit:      time.Microsecond,
		Window:    *window,
		MinPct:    0.1,
		Min:       1,
		Max:       10_000_000,
		Precision: 1,
		Writer:    os.Stdout,
	})
	lifetime := util.NewOnlineStats()

	log.Printf("measuring mode=%s rate=%s window=%d", *mode, *rate, *window)

	switch *mode {
	case "pipe":
		runPipe(s, stop, hist, lifetime)
	case "wakeup":
		runWakeup(s, stop, hist, lifetime)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}

	res := lifetime.Result()
	log.Printf(
		"lifetime samples=%d min/avg/max/stddev = %s/%s/%s/%s",
		lifetime.Len(), res.Min, res.Avg, res.Max, res.StdDev,
	)
}

// runPipe measures how long a byte takes to cross a pipe: a paced writer
// stamps each message with its send time and the selecting side records the
// stamp-to-read delay.
func runPipe(
	s *nio.Selector,
	stop *atomic.Bool,
	hist *util.TtyHist,
	lifetime *util.OnlineStats,
) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		log.Fatal(err)
	}
	defer unix.Close(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		log.Fatal(err)
	}

	m, err := s.Register(fds[0], nio.Readable)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()
	defer unix.Close(fds[0])

	go func() {
		var b [8]byte
		for !stop.Load() {
			binary.LittleEndian.PutUint64(b[:], uint64(time.Now().UnixNano()))
			if _, err := unix.Write(fds[1], b[:]); err != nil {
				return
			}
			time.Sleep(*rate)
		}
	}()

	var b [1024]byte
	for !stop.Load() {
		monitors, err := s.Select()
		if err != nil {
			log.Fatal(err)
		}

		now := time.Now()
		for _, m := range monitors {
			if !m.IsReadable() {
				continue
			}
			n, err := unix.Read(m.Fd(), b[:])
			if err != nil {
				continue
			}
			for i := 0; i+8 <= n; i += 8 {
				sent := int64(binary.LittleEndian.Uint64(b[i : i+8]))
				d := now.Sub(time.Unix(0, sent))
				hist.Add(d)
				lifetime.Add(d)
			}
		}
	}
}

// runWakeup measures the cross-goroutine wakeup path: a paced goroutine
// stamps a shared cell and calls Wakeup, and the selecting side records the
// stamp-to-return delay. Coalesced wakeups drop their sample.
func runWakeup(
	s *nio.Selector,
	stop *atomic.Bool,
	hist *util.TtyHist,
	lifetime *util.OnlineStats,
) {
	sentAt := atomic.NewInt64(0)

	go func() {
		for !stop.Load() {
			sentAt.Store(time.Now().UnixNano())
			if err := s.Wakeup(); err != nil {
				return
			}
			time.Sleep(*rate)
		}
	}()

	for !stop.Load() {
		if _, err := s.Select(); err != nil {
			log.Fatal(err)
		}

		sent := sentAt.Swap(0)
		if sent == 0 {
			continue
		}
		d := time.Since(time.Unix(0, sent))
		hist.Add(d)
		lifetime.Add(d)
	}
}
