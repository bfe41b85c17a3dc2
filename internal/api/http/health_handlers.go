package http

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/resilience"
)

// cpuSampleWindow is how long the host CPU percentage is measured over
const cpuSampleWindow = 100 * time.Millisecond

// MemoryHealth is host memory usage
type MemoryHealth struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Percent   float64 `json:"percent"`
}

// DiskHealth is root filesystem usage
type DiskHealth struct {
	Total   uint64  `json:"total"`
	Free    uint64  `json:"free"`
	Used    uint64  `json:"used"`
	Percent float64 `json:"percent"`
}

// SystemHealth is the host part of the health report
type SystemHealth struct {
	CPUPercent float64      `json:"cpu_percent"`
	Memory     MemoryHealth `json:"memory"`
	Disk       DiskHealth   `json:"disk"`
}

// ProcessHealth is the application part of the health report
type ProcessHealth struct {
	PID        int32     `json:"process_id"`
	MemoryRSS  uint64    `json:"memory_rss"`
	MemoryVMS  uint64    `json:"memory_vms"`
	CPUPercent float64   `json:"cpu_percent"`
	Threads    int32     `json:"num_threads"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"-"`
}

// Prober reads host and process statistics for /health
type Prober interface {
	System(ctx context.Context) (SystemHealth, error)
	Process(ctx context.Context) (ProcessHealth, error)
}

// SystemProber reads statistics through gopsutil. Host probes go through a
// circuit breaker so a failing stat source is not hammered by health checks.
type SystemProber struct {
	pid     int32
	breaker *resilience.Breaker
}

// NewSystemProber creates a prober for the current process
func NewSystemProber(logger *zap.Logger) *SystemProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemProber{
		pid: int32(os.Getpid()),
		breaker: resilience.New("health-probe", resilience.Settings{
			FailureThreshold: 3,
			CoolDown:         30 * time.Second,
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Info("Health probe breaker state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
	}
}

// System reads CPU, memory and root disk usage
func (p *SystemProber) System(ctx context.Context) (SystemHealth, error) {
	var out SystemHealth
	err := p.breaker.Execute(func() error {
		percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
		if err != nil {
			return fmt.Errorf("cpu: %w", err)
		}
		if len(percents) > 0 {
			out.CPUPercent = percents[0]
		}

		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return fmt.Errorf("memory: %w", err)
		}
		out.Memory = MemoryHealth{Total: vm.Total, Available: vm.Available, Percent: vm.UsedPercent}

		du, err := disk.UsageWithContext(ctx, "/")
		if err != nil {
			return fmt.Errorf("disk: %w", err)
		}
		out.Disk = DiskHealth{Total: du.Total, Free: du.Free, Used: du.Used, Percent: du.UsedPercent}
		return nil
	})
	return out, err
}

// Process reads memory, CPU, threads and status of the current process
func (p *SystemProber) Process(ctx context.Context) (ProcessHealth, error) {
	proc, err := process.NewProcessWithContext(ctx, p.pid)
	if err != nil {
		return ProcessHealth{}, fmt.Errorf("process %d: %w", p.pid, err)
	}

	out := ProcessHealth{PID: p.pid}

	mi, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return ProcessHealth{}, fmt.Errorf("memory info: %w", err)
	}
	out.MemoryRSS = mi.RSS
	out.MemoryVMS = mi.VMS

	if out.CPUPercent, err = proc.CPUPercentWithContext(ctx); err != nil {
		return ProcessHealth{}, fmt.Errorf("cpu percent: %w", err)
	}
	if out.Threads, err = proc.NumThreadsWithContext(ctx); err != nil {
		return ProcessHealth{}, fmt.Errorf("threads: %w", err)
	}

	created, err := proc.CreateTimeWithContext(ctx)
	if err != nil {
		return ProcessHealth{}, fmt.Errorf("create time: %w", err)
	}
	out.StartTime = time.UnixMilli(created)

	// Status is not available on every platform
	if status, err := proc.StatusWithContext(ctx); err == nil && len(status) > 0 {
		out.Status = status[0]
	} else {
		out.Status = "unknown"
	}

	return out, nil
}

// Health reports host and process statistics. Probe failures produce an
// "unhealthy" report rather than an error status.
func (h *Handlers) Health(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now()

	sys, err := h.prober.System(ctx)
	if err == nil {
		var proc ProcessHealth
		proc, err = h.prober.Process(ctx)
		if err == nil {
			uptime := now.Sub(proc.StartTime).Seconds()
			if uptime < 0 {
				uptime = 0
			}
			c.JSON(http.StatusOK, gin.H{
				"status":      "healthy",
				"timestamp":   unixSeconds(now),
				"uptime":      uptime,
				"system":      sys,
				"application": proc,
			})
			return
		}
	}

	h.logger.Warn("Health check failed", zap.Error(err))
	c.JSON(http.StatusOK, gin.H{
		"status":      "unhealthy",
		"timestamp":   unixSeconds(now),
		"uptime":      0,
		"system":      gin.H{},
		"application": gin.H{"error": err.Error()},
	})
}

// Ready reports readiness
func (h *Handlers) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": h.timestamp(),
	})
}

// Live reports liveness
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": h.timestamp(),
	})
}
