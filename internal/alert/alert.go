// Package alert derives threshold alerts from a host snapshot.
package alert

import (
	"fmt"
	"math"
	"strconv"

	"codeberg.org/mutker/hostwatch/internal/errors"
	"codeberg.org/mutker/hostwatch/internal/host"
	"codeberg.org/mutker/hostwatch/internal/reading"
)

const (
	DefaultCPUThreshold    = 80.0
	DefaultMemoryThreshold = 80.0
	DefaultDiskThreshold   = 90.0
)

// Thresholds are the usage percentages above which an alert is raised.
type Thresholds struct {
	CPU    float64
	Memory float64
	Disk   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU:    DefaultCPUThreshold,
		Memory: DefaultMemoryThreshold,
		Disk:   DefaultDiskThreshold,
	}
}

func (t Thresholds) Validate() error {
	for _, v := range []float64{t.CPU, t.Memory, t.Disk} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return errors.New().WithData(errors.ErrInvalidThreshold, v)
		}
	}

	return nil
}

// Set is an ordered list of alert messages: CPU, memory, then disk.
type Set []string

type rule struct {
	format    string
	value     func(host.Snapshot) reading.Float
	threshold func(Thresholds) float64
}

// rules are evaluated in publication order.
var rules = []rule{
	{
		format:    "CPU high: %s%%",
		value:     func(s host.Snapshot) reading.Float { return s.CPUPercent },
		threshold: func(t Thresholds) float64 { return t.CPU },
	},
	{
		format:    "Memory high: %s%%",
		value:     func(s host.Snapshot) reading.Float { return s.MemoryPercent },
		threshold: func(t Thresholds) float64 { return t.Memory },
	},
	{
		format:    "Disk full: %s%%",
		value:     func(s host.Snapshot) reading.Float { return s.DiskPercent },
		threshold: func(t Thresholds) float64 { return t.Disk },
	},
}

// Evaluate returns an alert for every dimension whose usage is strictly
// above its threshold. Dimensions without a measured value never alert.
func Evaluate(snap host.Snapshot, th Thresholds) Set {
	alerts := Set{}
	for _, r := range rules {
		v, ok := r.value(snap).Get()
		if !ok || !(v > r.threshold(th)) {
			continue
		}
		alerts = append(alerts, fmt.Sprintf(r.format, formatAbove(v, r.threshold(th))))
	}

	return alerts
}

// FormatPercent renders a percentage with at most two decimals and no
// trailing zeros.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// formatAbove renders v, known to exceed threshold, so that the rendered
// value also exceeds it: 80.004 against 80 reads "80.01", not "80".
func formatAbove(v, threshold float64) string {
	if math.Round(v*100)/100 > threshold {
		return FormatPercent(v)
	}
	if up := math.Ceil(v*100) / 100; up > threshold {
		return strconv.FormatFloat(up, 'f', -1, 64)
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}
