package monitoring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrProcessGone means the sampled process no longer exists
var ErrProcessGone = errors.New("process no longer exists")

// Optional is a statistic the platform may not provide
type Optional[T any] struct {
	Value     T
	Supported bool
	// Err is set when the platform supports the statistic but reading it failed
	Err error
}

// ProcessSnapshot is one reading of a process's resource usage
type ProcessSnapshot struct {
	CPUSeconds    float64
	ResidentBytes uint64
	VirtualBytes  uint64
	Threads       int32
	OpenFDs       Optional[int32]
	GCCycles      Optional[uint64]
}

// ProcessProvider reads resource statistics of one process
type ProcessProvider interface {
	Snapshot(ctx context.Context) (*ProcessSnapshot, error)
	StartTime(ctx context.Context) (time.Time, error)
}

// ProcessReader is the gopsutil-backed ProcessProvider
type ProcessReader struct {
	pid  int32
	proc *process.Process
	self bool
}

// NewProcessProvider opens the process with the given pid
func NewProcessProvider(ctx context.Context, pid int32) (*ProcessReader, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil, fmt.Errorf("%w: pid %d", ErrProcessGone, pid)
		}
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}
	return &ProcessReader{
		pid:  pid,
		proc: p,
		self: int(pid) == os.Getpid(),
	}, nil
}

// NewSelfProvider opens the current process
func NewSelfProvider(ctx context.Context) (*ProcessReader, error) {
	return NewProcessProvider(ctx, int32(os.Getpid()))
}

// Snapshot reads CPU, memory, thread, descriptor and GC statistics
func (r *ProcessReader) Snapshot(ctx context.Context) (*ProcessSnapshot, error) {
	times, err := r.proc.TimesWithContext(ctx)
	if err != nil {
		return nil, r.classify(ctx, "cpu times", err)
	}
	mem, err := r.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, r.classify(ctx, "memory info", err)
	}
	threads, err := r.proc.NumThreadsWithContext(ctx)
	if err != nil {
		return nil, r.classify(ctx, "thread count", err)
	}

	snap := &ProcessSnapshot{
		CPUSeconds:    times.User + times.System,
		ResidentBytes: mem.RSS,
		VirtualBytes:  mem.VMS,
		Threads:       threads,
	}

	fds, err := r.proc.NumFDsWithContext(ctx)
	switch {
	case err == nil:
		snap.OpenFDs = Optional[int32]{Value: fds, Supported: true}
	case unsupported(err):
	default:
		if gone := r.classify(ctx, "open fds", err); errors.Is(gone, ErrProcessGone) {
			return nil, gone
		}
		snap.OpenFDs = Optional[int32]{Supported: true, Err: err}
	}

	// Collector statistics are only visible from inside the process.
	if r.self {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		snap.GCCycles = Optional[uint64]{Value: uint64(ms.NumGC), Supported: true}
	}

	return snap, nil
}

// StartTime returns the creation time of the process
func (r *ProcessReader) StartTime(ctx context.Context) (time.Time, error) {
	ms, err := r.proc.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, r.classify(ctx, "create time", err)
	}
	return time.UnixMilli(ms), nil
}

func (r *ProcessReader) classify(ctx context.Context, what string, err error) error {
	if errors.Is(err, process.ErrorProcessNotRunning) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: pid %d", ErrProcessGone, r.pid)
	}
	if exists, perr := process.PidExistsWithContext(ctx, r.pid); perr == nil && !exists {
		return fmt.Errorf("%w: pid %d", ErrProcessGone, r.pid)
	}
	return fmt.Errorf("read %s of pid %d: %w", what, r.pid, err)
}

// unsupported reports whether err means the statistic is not available here.
// gopsutil keeps its not-implemented sentinel in an internal package, so it
// is matched by message.
func unsupported(err error) bool {
	if errors.Is(err, process.ErrorNotPermitted) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	return err.Error() == "not implemented yet"
}
