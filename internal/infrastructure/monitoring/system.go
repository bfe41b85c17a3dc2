package monitoring

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/resilience"
)

// Process metric names
const (
	MetricProcessCPUSeconds    = "process_cpu_seconds_total"
	MetricProcessResidentBytes = "process_resident_memory_bytes"
	MetricProcessVirtualBytes  = "process_virtual_memory_bytes"
	MetricProcessStartTime     = "process_start_time_seconds"
	MetricProcessUptime        = "process_uptime_seconds"
	MetricProcessOpenFDs       = "process_open_fds"
	MetricProcessThreads       = "process_threads"
	MetricProcessGCCollections = "process_gc_collections_total"
	MetricAppInfo              = "app_info"
)

// gcGeneration labels the single GC series; Go's collector is not generational
const gcGeneration = "0"

// AppInfo is exposed once through the app_info metric
type AppInfo struct {
	Name      string
	Version   string
	GoVersion string
}

// SystemOption customizes a SystemCollector
type SystemOption func(*SystemCollector)

// WithClock replaces time.Now for uptime computation
func WithClock(now func() time.Time) SystemOption {
	return func(c *SystemCollector) {
		c.now = now
	}
}

// WithStatBreaker sets the breaker settings used for optional statistics
func WithStatBreaker(settings resilience.Settings) SystemOption {
	return func(c *SystemCollector) {
		c.breakerSettings = settings
	}
}

// SystemCollector samples process resource usage into a Registry
type SystemCollector struct {
	reg      *Registry
	provider ProcessProvider
	logger   *zap.Logger
	now      func() time.Time

	breakerSettings resilience.Settings
	fdBreaker       *resilience.Breaker
	gcBreaker       *resilience.Breaker

	startTime time.Time

	mu      sync.Mutex
	lastCPU float64
	lastGC  uint64
}

// NewSystemCollector registers the process metrics, records the process start
// time and sets the info metric
func NewSystemCollector(ctx context.Context, reg *Registry, provider ProcessProvider, info AppInfo, logger *zap.Logger, opts ...SystemOption) (*SystemCollector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SystemCollector{
		reg:      reg,
		provider: provider,
		logger:   logger,
		now:      time.Now,
		breakerSettings: resilience.Settings{
			FailureThreshold: 3,
			CoolDown:         5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	onChange := func(name string, from, to resilience.State) {
		c.logger.Info("Process statistic breaker changed state",
			zap.String("stat", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	fdSettings, gcSettings := c.breakerSettings, c.breakerSettings
	fdSettings.OnStateChange, gcSettings.OnStateChange = onChange, onChange
	c.fdBreaker = resilience.New(MetricProcessOpenFDs, fdSettings)
	c.gcBreaker = resilience.New(MetricProcessGCCollections, gcSettings)

	descs := []Descriptor{
		{Name: MetricProcessCPUSeconds, Help: "Total user and system CPU time spent in seconds", Kind: KindCounter},
		{Name: MetricProcessResidentBytes, Help: "Resident memory size in bytes", Kind: KindGauge},
		{Name: MetricProcessVirtualBytes, Help: "Virtual memory size in bytes", Kind: KindGauge},
		{Name: MetricProcessStartTime, Help: "Start time of the process since unix epoch in seconds", Kind: KindGauge},
		{Name: MetricProcessUptime, Help: "Seconds since the process started", Kind: KindGauge},
		{Name: MetricProcessOpenFDs, Help: "Number of open file descriptors", Kind: KindGauge},
		{Name: MetricProcessThreads, Help: "Number of OS threads", Kind: KindGauge},
		{Name: MetricProcessGCCollections, Help: "Garbage collection cycles completed", Kind: KindCounter, Labels: []string{"generation"}},
		{Name: MetricAppInfo, Help: "Application information", Kind: KindInfo, Labels: []string{"name", "version", "go_version"}},
	}
	for _, d := range descs {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}

	start, err := provider.StartTime(ctx)
	if err != nil {
		start = c.now()
		logger.Warn("Failed to read process start time, using collector start", zap.Error(err))
	}
	c.startTime = start
	c.setGauge(MetricProcessStartTime, float64(start.UnixNano())/1e9)

	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	if err := reg.SetInfo(MetricAppInfo, info.Name, info.Version, info.GoVersion); err != nil {
		return nil, fmt.Errorf("set app info: %w", err)
	}

	return c, nil
}

// StartTime returns the process start time captured at construction
func (c *SystemCollector) StartTime() time.Time {
	return c.startTime
}

// Collect takes one sample. It never returns an error: a vanished process is
// logged at debug, any other failure or panic is logged and the tick dropped.
func (c *SystemCollector) Collect(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic while collecting process metrics", zap.Any("panic", r))
		}
	}()

	snap, err := c.provider.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, ErrProcessGone) {
			c.logger.Debug("Process gone, skipping metrics sample", zap.Error(err))
			return
		}
		c.logger.Warn("Failed to sample process metrics", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if delta := snap.CPUSeconds - c.lastCPU; delta > 0 {
		c.addCounter(MetricProcessCPUSeconds, delta)
	}
	c.lastCPU = snap.CPUSeconds

	c.setGauge(MetricProcessResidentBytes, float64(snap.ResidentBytes))
	c.setGauge(MetricProcessVirtualBytes, float64(snap.VirtualBytes))
	c.setGauge(MetricProcessUptime, c.now().Sub(c.startTime).Seconds())
	c.setGauge(MetricProcessThreads, float64(snap.Threads))

	if snap.OpenFDs.Supported {
		c.optional(c.fdBreaker, snap.OpenFDs.Err, func() {
			c.setGauge(MetricProcessOpenFDs, float64(snap.OpenFDs.Value))
		})
	}

	if snap.GCCycles.Supported {
		c.optional(c.gcBreaker, snap.GCCycles.Err, func() {
			if snap.GCCycles.Value > c.lastGC {
				c.addCounter(MetricProcessGCCollections, float64(snap.GCCycles.Value-c.lastGC), gcGeneration)
			}
			c.lastGC = snap.GCCycles.Value
		})
	}
}

// optional applies a best-effort statistic through its breaker so a stat that
// keeps failing is skipped quietly until the cool-down ends
func (c *SystemCollector) optional(b *resilience.Breaker, readErr error, apply func()) {
	err := b.Execute(func() error {
		if readErr != nil {
			return readErr
		}
		apply()
		return nil
	})
	switch {
	case err == nil, errors.Is(err, resilience.ErrCircuitOpen):
	default:
		c.logger.Warn("Failed to read process statistic", zap.String("stat", b.Name()), zap.Error(err))
	}
}

func (c *SystemCollector) setGauge(name string, v float64, labelValues ...string) {
	s, err := c.reg.Series(name, labelValues...)
	if err == nil {
		err = s.Set(v)
	}
	if err != nil {
		c.logger.Warn("Failed to set process metric", zap.String("metric", name), zap.Error(err))
	}
}

func (c *SystemCollector) addCounter(name string, delta float64, labelValues ...string) {
	s, err := c.reg.Series(name, labelValues...)
	if err == nil {
		err = s.Add(delta)
	}
	if err != nil {
		c.logger.Warn("Failed to add process metric", zap.String("metric", name), zap.Error(err))
	}
}
