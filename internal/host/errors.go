package host

import "codeberg.org/mutker/hostwatch/internal/errors"

const (
	ErrCPURead     = errors.ErrorCode("host_cpu_read_failed")
	ErrMemoryRead  = errors.ErrorCode("host_memory_read_failed")
	ErrDiskRead    = errors.ErrorCode("host_disk_read_failed")
	ErrNetworkRead = errors.ErrorCode("host_network_read_failed")
	ErrBatteryRead = errors.ErrorCode("host_battery_read_failed")
)
