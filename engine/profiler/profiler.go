package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frac/engine/frame"
	"go.uber.org/zap"
)

// Report holds the statistics of one profiling interval.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	// Skipped counts frames dropped during the interval.
	Skipped uint64
	// AvgCompute is the mean compute phase time of the frames presented during the interval.
	AvgCompute time.Duration
}

// Profiler tracks frame rate, compute time and memory statistics for performance monitoring.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastStats      frame.Stats
	logger         *zap.Logger
	now            func() time.Time
	last           Report
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with the current frame pipeline counters.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, skipped frames, average compute time, heap usage, allocation rate,
// GC count/pause times, total memory.
//
// Parameters:
//   - stats: the frame pipeline counters after this frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats frame.Stats) bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	r := Report{FPS: float64(p.frameCount) / elapsed.Seconds()}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if r.GCCount-startIdx > 256 {
			startIdx = r.GCCount - 256
		}
		for i := startIdx; i < r.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	r.Skipped = stats.Skipped - p.lastStats.Skipped
	if frames := stats.Frames - p.lastStats.Frames; frames > 0 {
		r.AvgCompute = (stats.ComputeTime - p.lastStats.ComputeTime) / time.Duration(frames)
	}

	p.logger.Info("profiler",
		zap.Float64("fps", r.FPS),
		zap.Uint64("skipped", r.Skipped),
		zap.Duration("avg_compute", r.AvgCompute),
		zap.Float64("heap_mb", r.HeapMB),
		zap.Float64("alloc_rate_mb_s", r.AllocRateMB),
		zap.Uint32("gc", r.GCCount),
		zap.Uint64("gc_last_pause_us", r.LastPauseUs),
		zap.Uint64("gc_max_pause_us", r.MaxPauseUs),
		zap.Float64("sys_mb", r.SysMB))

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastStats = stats
	p.last = r
	return true
}

// Last returns the most recently logged report.
func (p *Profiler) Last() Report {
	return p.last
}
