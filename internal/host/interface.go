package host

import (
	"context"

	"codeberg.org/mutker/hostwatch/internal/reading"
)

// Provider yields one Snapshot per call. Implementations never fail as a
// whole: a metric whose read fails is recorded as reading.Failed.
type Provider interface {
	Sample(ctx context.Context) Snapshot
}

// Snapshot is one sampling of the host, taken once per cycle.
type Snapshot struct {
	CPUPercent        reading.Float
	MemoryPercent     reading.Float
	MemoryTotalGB     reading.Float
	MemoryAvailableGB reading.Float
	DiskPercent       reading.Float
	DiskTotalGB       reading.Float
	DiskFreeGB        reading.Float
	NetworkSentMB     reading.Float
	NetworkRecvMB     reading.Float
	BatteryPercent    reading.Float
	BatteryPlugged    reading.Bool
}

// Failures counts the metrics whose read failed.
func (s Snapshot) Failures() int {
	n := 0
	for _, r := range []reading.Float{
		s.CPUPercent, s.MemoryPercent, s.MemoryTotalGB, s.MemoryAvailableGB,
		s.DiskPercent, s.DiskTotalGB, s.DiskFreeGB,
		s.NetworkSentMB, s.NetworkRecvMB, s.BatteryPercent,
	} {
		if r.Status() == reading.StatusError {
			n++
		}
	}
	if s.BatteryPlugged.Status() == reading.StatusError {
		n++
	}

	return n
}
