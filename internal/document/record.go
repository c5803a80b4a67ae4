package document

import (
	"encoding/xml"
	"math"
	"strconv"

	"codeberg.org/mutker/hostwatch/internal/reading"
)

const (
	unavailableText = "N/A"
	errorText       = "error"
)

// record is the encoded shape of a Document. Field order here is the
// order of every output format.
type record struct {
	XMLName   xml.Name       `xml:"server_monitor" json:"-" yaml:"-"`
	CPU       cpuRecord      `xml:"cpu" json:"cpu" yaml:"cpu"`
	Memory    memoryRecord   `xml:"memory" json:"memory" yaml:"memory"`
	Disk      diskRecord     `xml:"disk" json:"disk" yaml:"disk"`
	Network   networkRecord  `xml:"network" json:"network" yaml:"network"`
	Battery   batteryRecord  `xml:"battery" json:"battery" yaml:"battery"`
	Timestamp string         `xml:"timestamp" json:"timestamp" yaml:"timestamp"`
	Alerts    []string       `xml:"alerts>alert" json:"alerts" yaml:"alerts"`
	Weather   *weatherRecord `xml:"weather,omitempty" json:"weather,omitempty" yaml:"weather,omitempty"`
}

type cpuRecord struct {
	UsagePercent string `xml:"usage_percent" json:"usage_percent" yaml:"usage_percent"`
}

type memoryRecord struct {
	UsagePercent string `xml:"usage_percent" json:"usage_percent" yaml:"usage_percent"`
	TotalGB      string `xml:"total_gb" json:"total_gb" yaml:"total_gb"`
	AvailableGB  string `xml:"available_gb" json:"available_gb" yaml:"available_gb"`
}

type diskRecord struct {
	UsagePercent string `xml:"usage_percent" json:"usage_percent" yaml:"usage_percent"`
	TotalGB      string `xml:"total_gb" json:"total_gb" yaml:"total_gb"`
	FreeGB       string `xml:"free_gb" json:"free_gb" yaml:"free_gb"`
}

type networkRecord struct {
	SentMB     string `xml:"sent_mb" json:"sent_mb" yaml:"sent_mb"`
	ReceivedMB string `xml:"received_mb" json:"received_mb" yaml:"received_mb"`
}

type batteryRecord struct {
	Percent string `xml:"percent" json:"percent" yaml:"percent"`
	Plugged string `xml:"plugged" json:"plugged" yaml:"plugged"`
}

type weatherRecord struct {
	Temperature string `xml:"temperature" json:"temperature" yaml:"temperature"`
	Humidity    string `xml:"humidity" json:"humidity" yaml:"humidity"`
	Condition   string `xml:"condition" json:"condition" yaml:"condition"`
}

func newRecord(d Document) record {
	s := d.Snapshot
	r := record{
		CPU: cpuRecord{UsagePercent: formatFloat(s.CPUPercent)},
		Memory: memoryRecord{
			UsagePercent: formatFloat(s.MemoryPercent),
			TotalGB:      formatFloat(s.MemoryTotalGB),
			AvailableGB:  formatFloat(s.MemoryAvailableGB),
		},
		Disk: diskRecord{
			UsagePercent: formatFloat(s.DiskPercent),
			TotalGB:      formatFloat(s.DiskTotalGB),
			FreeGB:       formatFloat(s.DiskFreeGB),
		},
		Network: networkRecord{
			SentMB:     formatFloat(s.NetworkSentMB),
			ReceivedMB: formatFloat(s.NetworkRecvMB),
		},
		Battery: batteryRecord{
			Percent: formatFloat(s.BatteryPercent),
			Plugged: formatBool(s.BatteryPlugged),
		},
		Timestamp: d.FormattedTimestamp(),
		Alerts:    append([]string{}, d.Alerts...),
	}

	if d.Weather != nil {
		r.Weather = &weatherRecord{
			Temperature: formatFloat(d.Weather.Temperature),
			Humidity:    formatFloat(d.Weather.Humidity),
			Condition:   formatText(d.Weather.Condition),
		}
	}

	return r
}

func sentinel(s reading.Status) string {
	if s == reading.StatusUnavailable {
		return unavailableText
	}

	return errorText
}

// formatFloat rounds to two decimals and drops trailing zeros.
func formatFloat(r reading.Float) string {
	v, ok := r.Get()
	if !ok {
		return sentinel(r.Status())
	}

	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func formatBool(r reading.Bool) string {
	v, ok := r.Get()
	if !ok {
		return sentinel(r.Status())
	}

	return strconv.FormatBool(v)
}

func formatText(r reading.Text) string {
	v, ok := r.Get()
	if !ok {
		return sentinel(r.Status())
	}

	return v
}
