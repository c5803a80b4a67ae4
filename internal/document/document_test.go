package document_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/hostwatch/internal/alert"
	"codeberg.org/mutker/hostwatch/internal/document"
	"codeberg.org/mutker/hostwatch/internal/errors"
	"codeberg.org/mutker/hostwatch/internal/host"
	"codeberg.org/mutker/hostwatch/internal/reading"
	"codeberg.org/mutker/hostwatch/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var cycleTime = time.Date(2024, 3, 9, 14, 5, 7, 123456000, time.FixedZone("CET", 3600))

func sampleSnapshot() host.Snapshot {
	return host.Snapshot{
		CPUPercent:        reading.Of(85.0),
		MemoryPercent:     reading.Of(50.25),
		MemoryTotalGB:     reading.Of(15.5123),
		MemoryAvailableGB: reading.Of(7.756),
		DiskPercent:       reading.Of(95.0),
		DiskTotalGB:       reading.Of(476.94),
		DiskFreeGB:        reading.Of(23.847),
		NetworkSentMB:     reading.Of(1024.333),
		NetworkRecvMB:     reading.Of(2048.0),
		BatteryPercent:    reading.Unavailable[float64](),
		BatteryPlugged:    reading.Unavailable[bool](),
	}
}

func encoder(t *testing.T, f document.Format) document.Encoder {
	t.Helper()
	enc, err := document.NewEncoder(f)
	require.NoError(t, err)
	return enc
}

func TestEncodeXML(t *testing.T) {
	doc := document.Assemble(sampleSnapshot(), alert.Set{"CPU high: 85%", "Disk full: 95%"}, nil, cycleTime)

	out, err := encoder(t, document.FormatXML).Encode(doc)
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<server_monitor>
  <cpu>
    <usage_percent>85</usage_percent>
  </cpu>
  <memory>
    <usage_percent>50.25</usage_percent>
    <total_gb>15.51</total_gb>
    <available_gb>7.76</available_gb>
  </memory>
  <disk>
    <usage_percent>95</usage_percent>
    <total_gb>476.94</total_gb>
    <free_gb>23.85</free_gb>
  </disk>
  <network>
    <sent_mb>1024.33</sent_mb>
    <received_mb>2048</received_mb>
  </network>
  <battery>
    <percent>N/A</percent>
    <plugged>N/A</plugged>
  </battery>
  <timestamp>2024-03-09T14:05:07.123456+01:00</timestamp>
  <alerts>
    <alert>CPU high: 85%</alert>
    <alert>Disk full: 95%</alert>
  </alerts>
</server_monitor>
`
	assert.Equal(t, want, string(out))
}

func TestEncodeIsDeterministic(t *testing.T) {
	w := weather.Failed()
	doc := document.Assemble(sampleSnapshot(), alert.Set{"CPU high: 85%"}, &w, cycleTime)

	for _, f := range []document.Format{document.FormatXML, document.FormatJSON, document.FormatYAML} {
		enc := encoder(t, f)
		first, err := enc.Encode(doc)
		require.NoError(t, err)
		second, err := enc.Encode(doc)
		require.NoError(t, err)
		assert.Equal(t, first, second, "format %s", f)
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	snap := sampleSnapshot()
	snap.CPUPercent = reading.Failed[float64]()
	snap.BatteryPercent = reading.Of(64.5)
	snap.BatteryPlugged = reading.Failed[bool]()
	w := weather.Failed()

	out, err := encoder(t, document.FormatXML).Encode(document.Assemble(snap, nil, &w, cycleTime))
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<usage_percent>error</usage_percent>")
	assert.Contains(t, s, "<percent>64.5</percent>")
	assert.Contains(t, s, "<plugged>error</plugged>")
	assert.Contains(t, s, "<weather>\n    <temperature>error</temperature>\n    <humidity>error</humidity>\n    <condition>error</condition>\n  </weather>")
	assert.NotContains(t, s, "<alerts>", "no alerts element without alerts")
}

func TestEncodeJSONFieldOrder(t *testing.T) {
	w := weather.Snapshot{
		Temperature: reading.Of(18.25),
		Humidity:    reading.Of(71.0),
		Condition:   reading.Of("Overcast"),
	}
	doc := document.Assemble(sampleSnapshot(), nil, &w, cycleTime)

	out, err := encoder(t, document.FormatJSON).Encode(doc)
	require.NoError(t, err)

	s := string(out)
	keys := []string{`"cpu"`, `"memory"`, `"disk"`, `"network"`, `"battery"`, `"timestamp"`, `"alerts"`, `"weather"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(s, k)
		require.GreaterOrEqual(t, idx, 0, "missing %s", k)
		assert.Greater(t, idx, last, "%s out of order", k)
		last = idx
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, []any{}, decoded["alerts"])
	assert.Equal(t, "Overcast", decoded["weather"].(map[string]any)["condition"])
	assert.Equal(t, "18.25", decoded["weather"].(map[string]any)["temperature"])
}

func TestEncodeYAML(t *testing.T) {
	doc := document.Assemble(sampleSnapshot(), alert.Set{"Disk full: 95%"}, nil, cycleTime)

	out, err := encoder(t, document.FormatYAML).Encode(doc)
	require.NoError(t, err)

	var decoded struct {
		CPU struct {
			UsagePercent string `yaml:"usage_percent"`
		} `yaml:"cpu"`
		Timestamp string   `yaml:"timestamp"`
		Alerts    []string `yaml:"alerts"`
		Weather   any      `yaml:"weather"`
	}
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, "85", decoded.CPU.UsagePercent)
	assert.Equal(t, "2024-03-09T14:05:07.123456+01:00", decoded.Timestamp)
	assert.Equal(t, []string{"Disk full: 95%"}, decoded.Alerts)
	assert.Nil(t, decoded.Weather)
}

func TestAssembleDoesNotAlias(t *testing.T) {
	alerts := alert.Set{"CPU high: 85%"}
	w := weather.Failed()

	doc := document.Assemble(sampleSnapshot(), alerts, &w, cycleTime)
	alerts[0] = "changed"
	w.Temperature = reading.Of(1.0)

	assert.Equal(t, alert.Set{"CPU high: 85%"}, doc.Alerts)
	assert.Equal(t, reading.StatusError, doc.Weather.Temperature.Status())
	assert.Equal(t, "2024-03-09T14:05:07.123456+01:00", doc.FormattedTimestamp())
}

func TestUnknownFormat(t *testing.T) {
	_, err := document.NewEncoder(document.Format("csv"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidFormat))
	assert.Equal(t, []string{"xml", "json", "yaml"}, document.SupportedFormats())
}

func TestFileWriterOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "status.xml")
	w := document.NewFileWriter(encoder(t, document.FormatXML))
	doc := document.Assemble(sampleSnapshot(), nil, nil, cycleTime)

	require.NoError(t, w.Write(path, doc))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(path, doc))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second, "rewriting the same document is idempotent")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestFileWriterReportsFailure(t *testing.T) {
	w := document.NewFileWriter(encoder(t, document.FormatJSON))
	path := filepath.Join(t.TempDir(), "missing", "status.json")

	err := w.Write(path, document.Assemble(sampleSnapshot(), nil, nil, cycleTime))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrOperationFailed))
}
