package profiler

import (
	"bytes"
	"fmt"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/log"

	"github.com/olekukonko/tablewriter"
)

var logger = log.New("profiler")

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	readMemStats   bool

	now func() time.Time

	// Whole-run statistics reported by Summary.
	start       time.Time
	lastFrame   time.Time
	totalFrames int
	minFrame    time.Duration
	maxFrame    time.Duration
}

// ProfilerOption is a functional option used to configure a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithUpdateInterval sets how often Tick logs statistics.
//
// Parameters:
//   - interval: the reporting interval; values <= 0 keep the default of one second
//
// Returns:
//   - ProfilerOption: option function to apply
func WithUpdateInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMemStats enables or disables the runtime memory statistics in interval reports.
func WithMemStats(enabled bool) ProfilerOption {
	return func(p *Profiler) {
		p.readMemStats = enabled
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options applied after the defaults
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		readMemStats:   true,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.start = p.now()
	p.lastTime = p.start
	p.lastFrame = p.start
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	currentTime := p.now()
	p.recordFrame(currentTime.Sub(p.lastFrame))
	p.lastFrame = currentTime

	p.frameCount++
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	if p.readMemStats {
		p.logWithMemStats(fps, elapsed)
	} else {
		logger.Infof("FPS: %.2f | frame: %s", fps, elapsed/time.Duration(p.frameCount))
	}

	p.frameCount = 0
	p.lastTime = currentTime
	return true
}

func (p *Profiler) recordFrame(frame time.Duration) {
	p.totalFrames++
	if p.totalFrames == 1 || frame < p.minFrame {
		p.minFrame = frame
	}
	if frame > p.maxFrame {
		p.maxFrame = frame
	}
}

func (p *Profiler) logWithMemStats(fps float64, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	logger.Infof("FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}

// Frames returns the number of frames ticked since the profiler was created.
func (p *Profiler) Frames() int {
	return p.totalFrames
}

// Summary renders the whole-run frame statistics as a table.
//
// Returns:
//   - string: the rendered table
func (p *Profiler) Summary() string {
	elapsed := p.lastFrame.Sub(p.start)
	var avgFPS float64
	var avgFrame time.Duration
	if p.totalFrames > 0 && elapsed > 0 {
		avgFPS = float64(p.totalFrames) / elapsed.Seconds()
		avgFrame = elapsed / time.Duration(p.totalFrames)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frames", "Elapsed", "Avg FPS", "Avg frame", "Min frame", "Max frame"})
	table.Append([]string{
		fmt.Sprintf("%d", p.totalFrames),
		elapsed.Round(time.Millisecond).String(),
		fmt.Sprintf("%.1f", avgFPS),
		avgFrame.String(),
		p.minFrame.String(),
		p.maxFrame.String(),
	})
	table.Render()
	return buf.String()
}
