package metrics

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

const bytesPerGB = 1024 * 1024 * 1024

// Sample is one reading of system and process resource usage
type Sample struct {
	Phase         string
	CPUPercent    float64 // system-wide, 0-100
	ProcessCPU    float64 // this process, can exceed 100 on several cores
	IOWaitPercent float64
	RSSBytes      uint64 // resident set of this process; the database lives here
	MemoryPercent float64
	DiskReadMBps  float64
	DiskWriteMBps float64
	Timestamp     time.Time
}

// Phase is a finished stage of a command run
type Phase struct {
	Name     string
	Duration time.Duration
	PeakRSS  uint64
}

// Collector samples resource usage while a command runs. Samples are
// attributed to the current phase (load, extract, close, write, ...) so the
// log shows which stage a memory or disk peak belongs to.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	metrics  *Metrics
	proc     *process.Process

	mu         sync.Mutex
	disk       diskBaseline
	cpuTimes   cpu.TimesStat
	hasCPU     bool
	phase      string
	phaseStart time.Time
	peakRSS    uint64
	last       *Sample
	phases     []Phase
}

type diskBaseline struct {
	at       time.Time
	counters map[string]disk.IOCountersStat
}

// NewCollector creates a collector. logger and m may be nil.
func NewCollector(interval time.Duration, logger *zap.Logger, m *Metrics) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Collector{
		interval:   interval,
		logger:     logger,
		metrics:    m,
		proc:       proc,
		phase:      "startup",
		phaseStart: time.Now(),
	}
}

// Start samples every interval until ctx is cancelled, then closes the
// current phase. Run it in its own goroutine.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample(false)
	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.endPhase(time.Now())
			c.mu.Unlock()
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.sample(true)
		}
	}
}

// StartPhase closes the current phase and begins name. A sample is taken
// at the boundary so short phases still record their memory use.
func (c *Collector) StartPhase(name string) {
	c.sample(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.endPhase(now)
	c.phase = name
	c.phaseStart = now
	c.peakRSS = 0
	c.logger.Debug("Phase started", zap.String("phase", name))
}

// endPhase records the current phase. Caller holds mu.
func (c *Collector) endPhase(now time.Time) {
	if c.phase == "" {
		return
	}
	p := Phase{Name: c.phase, Duration: now.Sub(c.phaseStart), PeakRSS: c.peakRSS}
	c.phases = append(c.phases, p)
	c.phase = ""
	if c.metrics != nil {
		c.metrics.setPhase(p)
	}
	c.logger.Info("Phase finished",
		zap.String("phase", p.Name),
		zap.Duration("duration", p.Duration.Round(time.Millisecond)),
		zap.String("peak_rss", formatGB(float64(p.PeakRSS)/bytesPerGB)))
}

// Last returns the most recent sample, or nil before the first one
func (c *Collector) Last() *Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Phases returns every finished phase in order
func (c *Collector) Phases() []Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Phase(nil), c.phases...)
}

func (c *Collector) sample(logIt bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Sample{Phase: c.phase, Timestamp: time.Now()}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPU = pct
		}
		if mi, err := c.proc.MemoryInfo(); err == nil {
			s.RSSBytes = mi.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vm.UsedPercent
	}
	s.IOWaitPercent = c.ioWait()
	s.DiskReadMBps, s.DiskWriteMBps = c.diskRates(s.Timestamp)

	c.peakRSS = max(c.peakRSS, s.RSSBytes)
	c.last = s
	if c.metrics != nil {
		c.metrics.setSystem(s)
	}
	if !logIt {
		return
	}
	c.logger.Info("System metrics",
		zap.String("phase", s.Phase),
		zap.Duration("in_phase", s.Timestamp.Sub(c.phaseStart).Round(time.Second)),
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPU),
		zap.Float64("iowait", s.IOWaitPercent),
		zap.String("rss", formatGB(float64(s.RSSBytes)/bytesPerGB)),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("disk_r", formatMBps(s.DiskReadMBps)),
		zap.String("disk_w", formatMBps(s.DiskWriteMBps)),
	)
}

// ioWait returns the share of CPU time spent waiting for I/O since the
// previous call. The first call only sets the baseline.
func (c *Collector) ioWait() float64 {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return 0
	}
	cur, last := times[0], c.cpuTimes
	c.cpuTimes = cur
	if !c.hasCPU {
		c.hasCPU = true
		return 0
	}

	total := (cur.User - last.User) + (cur.System - last.System) + (cur.Idle - last.Idle) +
		(cur.Iowait - last.Iowait) + (cur.Irq - last.Irq) + (cur.Softirq - last.Softirq) +
		(cur.Steal - last.Steal)
	if total <= 0 {
		return 0
	}
	return (cur.Iowait - last.Iowait) / total * 100
}

// diskRates returns read and write MB/s across all disks since the previous
// call. Counters that went backwards are ignored.
func (c *Collector) diskRates(now time.Time) (readMBps, writeMBps float64) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0
	}
	prev := c.disk
	c.disk = diskBaseline{at: now, counters: counters}

	elapsed := now.Sub(prev.at).Seconds()
	if prev.counters == nil || elapsed < 0.1 {
		return 0, 0
	}

	var read, written uint64
	for name, cur := range counters {
		last, ok := prev.counters[name]
		if !ok {
			continue
		}
		if cur.ReadBytes >= last.ReadBytes {
			read += cur.ReadBytes - last.ReadBytes
		}
		if cur.WriteBytes >= last.WriteBytes {
			written += cur.WriteBytes - last.WriteBytes
		}
	}
	const mb = 1024 * 1024
	return float64(read) / elapsed / mb, float64(written) / elapsed / mb
}

func formatGB(gb float64) string {
	return fmt.Sprintf("%.1f GB", gb)
}

func formatMBps(mbps float64) string {
	return fmt.Sprintf("%.1f MB/s", mbps)
}
