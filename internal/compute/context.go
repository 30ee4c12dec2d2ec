// Package compute holds the explicitly constructed compute context that is
// threaded through the trainable and the benchmark code: the device label,
// the worker pool configuration and a host resource report.
//
// Nothing here mutates process-wide state such as environment variables.
package compute

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/born-ml/superres/internal/fault"
)

// DeviceCPU is the only device the reference trainable runs on.
const DeviceCPU = "cpu"

// HostInfo describes the machine the run executes on.
type HostInfo struct {
	LogicalCPUs     int
	CPUModel        string
	MemoryTotal     uint64
	MemoryAvailable uint64
}

// Context is the compute context handed to components that do numeric work.
type Context struct {
	Device       string
	RequestedGPU string
	Parallel     Config
	Host         HostInfo

	probe func() (HostInfo, error)
}

// Option configures a Context.
type Option func(*Context)

// WithHostProbe replaces the gopsutil host probe. Tests use it to avoid
// depending on the machine.
func WithHostProbe(probe func() (HostInfo, error)) Option {
	return func(c *Context) {
		c.probe = probe
	}
}

// New builds a compute context. gpu is the requested device list as given on
// the command line ("0", "0,1", "" or "-1" for none); it is recorded for the
// run metadata while compute runs on the CPU worker pool. workers <= 0 means
// one worker per logical CPU.
func New(gpu string, workers int, opts ...Option) (*Context, error) {
	if err := validateGPU(gpu); err != nil {
		return nil, err
	}
	if workers < 0 {
		return nil, fault.Configf("workers must be >= 0, got %d", workers)
	}

	c := &Context{
		Device:       DeviceCPU,
		RequestedGPU: gpu,
		Parallel:     DefaultConfig(),
		probe:        probeHost,
	}
	for _, opt := range opts {
		opt(c)
	}
	if workers > 0 {
		c.Parallel.NumWorkers = workers
		c.Parallel.Enabled = workers > 1
	}

	host, err := c.probe()
	if err != nil {
		// Host details are informational only.
		host = HostInfo{LogicalCPUs: c.Parallel.NumWorkers}
	}
	c.Host = host
	return c, nil
}

// For runs f over [0, n) on the context's worker pool. A nil context runs
// sequentially.
func (c *Context) For(n int, f func(i int)) {
	if c == nil {
		for i := range n {
			f(i)
		}
		return
	}
	For(n, f, c.Parallel)
}

// ForBatch runs f over every (sample, row) pair on the context's worker pool.
// A nil context runs sequentially.
func (c *Context) ForBatch(batch, rows int, f func(b, r int)) {
	if c == nil {
		ForBatch(batch, rows, f, Config{})
		return
	}
	ForBatch(batch, rows, f, c.Parallel)
}

// LogValue implements slog.LogValuer.
func (c *Context) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("device", c.Device),
		slog.String("requested_gpu", c.RequestedGPU),
		slog.Int("workers", c.Parallel.NumWorkers),
		slog.Int("logical_cpus", c.Host.LogicalCPUs),
		slog.String("cpu_model", c.Host.CPUModel),
		slog.Uint64("memory_total_mb", c.Host.MemoryTotal/(1<<20)),
		slog.Uint64("memory_available_mb", c.Host.MemoryAvailable/(1<<20)),
	)
}

func validateGPU(gpu string) error {
	if gpu == "" || gpu == "-1" {
		return nil
	}
	for _, part := range strings.Split(gpu, ",") {
		if _, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16); err != nil {
			return fault.Configf("gpu %q: %q is not a device index", gpu, part)
		}
	}
	return nil
}

func probeHost() (HostInfo, error) {
	var info HostInfo

	n, err := cpu.Counts(true)
	if err != nil {
		return info, fmt.Errorf("cpu counts: %w", err)
	}
	info.LogicalCPUs = n

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	v, err := mem.VirtualMemory()
	if err != nil {
		return info, fmt.Errorf("virtual memory: %w", err)
	}
	info.MemoryTotal = v.Total
	info.MemoryAvailable = v.Available
	return info, nil
}
