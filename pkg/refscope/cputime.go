package refscope

import (
	"sync/atomic"
	"syscall"
	"time"
)

// Timing is the time spent rendering queries since the inspector was
// created.
type Timing struct {
	Queries uint64        `json:"queries"`
	Wall    time.Duration `json:"wall"`
	// CPU is process CPU time (user + system) measured across each query.
	// It falls back to wall-clock time where getrusage is unavailable.
	CPU time.Duration `json:"cpu"`
}

// timer accumulates query timings.
type timer struct {
	queries atomic.Uint64
	wall    atomic.Int64
	cpu     atomic.Int64
}

// span measures one query.
type span struct {
	startTime time.Time
	startCPU  time.Duration
	fallback  bool
}

func cpuTime() (time.Duration, bool) {
	var usage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &usage); err != nil {
		return 0, false
	}
	return time.Duration(usage.Utime.Sec)*time.Second +
		time.Duration(usage.Utime.Usec)*time.Microsecond +
		time.Duration(usage.Stime.Sec)*time.Second +
		time.Duration(usage.Stime.Usec)*time.Microsecond, true
}

func (t *timer) start() span {
	cpu, ok := cpuTime()
	return span{startTime: time.Now(), startCPU: cpu, fallback: !ok}
}

// stop records s and returns its wall time.
func (t *timer) stop(s span) time.Duration {
	wall := time.Since(s.startTime)
	cpu := wall
	if !s.fallback {
		if now, ok := cpuTime(); ok {
			cpu = now - s.startCPU
		}
	}
	t.queries.Add(1)
	t.wall.Add(int64(wall))
	t.cpu.Add(int64(cpu))
	return wall
}

func (t *timer) timing() Timing {
	return Timing{
		Queries: t.queries.Load(),
		Wall:    time.Duration(t.wall.Load()),
		CPU:     time.Duration(t.cpu.Load()),
	}
}
