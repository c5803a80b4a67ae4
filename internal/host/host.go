package host

import (
	"context"
	"time"

	"codeberg.org/mutker/hostwatch/internal/errors"
	"codeberg.org/mutker/hostwatch/internal/logger"
	"codeberg.org/mutker/hostwatch/internal/reading"
	"github.com/distatus/battery"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"golang.org/x/sync/errgroup"
)

const (
	bytesPerGB = 1024 * 1024 * 1024
	bytesPerMB = 1024 * 1024

	defaultDiskPath  = "/"
	defaultCPUWindow = time.Second
)

type Config struct {
	// DiskPath is the mount point whose usage is reported.
	DiskPath string
	// CPUWindow is how long CPU usage is measured for. Zero compares
	// against the previous call.
	CPUWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		DiskPath:  defaultDiskPath,
		CPUWindow: defaultCPUWindow,
	}
}

// Sampler reads host metrics through gopsutil and the battery package.
type Sampler struct {
	cfg Config

	// Collection functions for mocking
	getCPUPercent  func(context.Context, time.Duration, bool) ([]float64, error)
	getMemStats    func(context.Context) (*mem.VirtualMemoryStat, error)
	getDiskUsage   func(context.Context, string) (*disk.UsageStat, error)
	getNetCounters func(context.Context, bool) ([]net.IOCountersStat, error)
	getBatteries   func() ([]*battery.Battery, error)
}

func NewSampler(cfg Config) *Sampler {
	if cfg.DiskPath == "" {
		cfg.DiskPath = defaultDiskPath
	}

	return &Sampler{
		cfg:            cfg,
		getCPUPercent:  cpu.PercentWithContext,
		getMemStats:    mem.VirtualMemoryWithContext,
		getDiskUsage:   disk.UsageWithContext,
		getNetCounters: net.IOCountersWithContext,
		getBatteries:   battery.GetAll,
	}
}

// Sample reads every metric. The CPU window blocks, so the other reads run
// alongside it; each goroutine owns its own fields of the snapshot.
func (s *Sampler) Sample(ctx context.Context) Snapshot {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snap.CPUPercent = s.sampleCPU(gctx)
		return nil
	})

	g.Go(func() error {
		snap.MemoryPercent, snap.MemoryTotalGB, snap.MemoryAvailableGB = s.sampleMemory(gctx)
		return nil
	})

	g.Go(func() error {
		snap.DiskPercent, snap.DiskTotalGB, snap.DiskFreeGB = s.sampleDisk(gctx)
		return nil
	})

	g.Go(func() error {
		snap.NetworkSentMB, snap.NetworkRecvMB = s.sampleNetwork(gctx)
		return nil
	})

	g.Go(func() error {
		snap.BatteryPercent, snap.BatteryPlugged = s.sampleBattery()
		return nil
	})

	// Every reader records its own failure, so Wait has nothing to report
	_ = g.Wait()

	return snap
}

func (s *Sampler) sampleCPU(ctx context.Context) reading.Float {
	percents, err := s.getCPUPercent(ctx, s.cfg.CPUWindow, false)
	if err != nil || len(percents) == 0 {
		logReadError(ErrCPURead, err)
		return reading.Failed[float64]()
	}

	return reading.Of(clampPercent(percents[0]))
}

func (s *Sampler) sampleMemory(ctx context.Context) (percent, totalGB, availableGB reading.Float) {
	vm, err := s.getMemStats(ctx)
	if err != nil || vm == nil {
		logReadError(ErrMemoryRead, err)
		failed := reading.Failed[float64]()
		return failed, failed, failed
	}

	return reading.Of(clampPercent(vm.UsedPercent)),
		reading.Of(float64(vm.Total) / bytesPerGB),
		reading.Of(float64(vm.Available) / bytesPerGB)
}

func (s *Sampler) sampleDisk(ctx context.Context) (percent, totalGB, freeGB reading.Float) {
	usage, err := s.getDiskUsage(ctx, s.cfg.DiskPath)
	if err != nil || usage == nil {
		logReadError(ErrDiskRead, err)
		failed := reading.Failed[float64]()
		return failed, failed, failed
	}

	return reading.Of(clampPercent(usage.UsedPercent)),
		reading.Of(float64(usage.Total) / bytesPerGB),
		reading.Of(float64(usage.Free) / bytesPerGB)
}

func (s *Sampler) sampleNetwork(ctx context.Context) (sentMB, recvMB reading.Float) {
	counters, err := s.getNetCounters(ctx, false)
	if err != nil || len(counters) == 0 {
		logReadError(ErrNetworkRead, err)
		failed := reading.Failed[float64]()
		return failed, failed
	}

	return reading.Of(float64(counters[0].BytesSent) / bytesPerMB),
		reading.Of(float64(counters[0].BytesRecv) / bytesPerMB)
}

func logReadError(code errors.ErrorCode, err error) {
	if err == nil {
		err = errors.New().WithMessage(code, "no data returned")
	}
	logger.WarnWithCode(errors.New().Wrap(code, err)).Msg("Metric read failed")
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}

	return v
}
