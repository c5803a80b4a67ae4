package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/hostwatch/internal/config"
	"codeberg.org/mutker/hostwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hostwatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
cpu_threshold = 75
memory_threshold = 70.5
disk_threshold = 95
sample_interval_seconds = 10
archive_interval_seconds = 120
archive_directory = "/tmp/archive"
live_path = "/tmp/status.xml"
format = "json"
log_level = "debug"
weather_enabled = true
weather_location = "52.52,13.41"
telemetry = true
telemetry_db = "/path/to/telemetry.db"
`)
	t.Setenv("HOSTWATCH_CONFIG", configPath)

	cfg, err := config.Load(nil, config.WithDotEnv(""))
	require.NoError(t, err)

	assert.Equal(t, 75.0, cfg.CPUThreshold, "Expected CPUThreshold 75")
	assert.Equal(t, 70.5, cfg.MemoryThreshold, "Expected MemoryThreshold 70.5")
	assert.Equal(t, 95.0, cfg.DiskThreshold, "Expected DiskThreshold 95")
	assert.Equal(t, 10*time.Second, cfg.SampleInterval())
	assert.Equal(t, 2*time.Minute, cfg.ArchiveInterval())
	assert.Equal(t, "/tmp/archive", cfg.ArchiveDirectory)
	assert.Equal(t, "/tmp/status.xml", cfg.LivePath)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.WeatherEnabled)
	assert.Equal(t, "52.52,13.41", cfg.WeatherLocation)
	assert.True(t, cfg.Telemetry)
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB)
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("HOSTWATCH_CONFIG", "")

	cfg, err := config.Load(nil, config.WithDotEnv(""))
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 80.0, cfg.CPUThreshold)
	assert.Equal(t, 80.0, cfg.MemoryThreshold)
	assert.Equal(t, 90.0, cfg.DiskThreshold)
	assert.Equal(t, 5*time.Second, cfg.SampleInterval())
	assert.Equal(t, time.Minute, cfg.ArchiveInterval())
	assert.Equal(t, time.Second, cfg.CPUWindow())
	assert.Equal(t, "logs_xml", cfg.ArchiveDirectory)
	assert.Equal(t, "status.xml", cfg.LivePath)
	assert.Equal(t, "xml", cfg.Format)
	assert.Equal(t, "/", cfg.DiskPath)
	assert.False(t, cfg.WeatherEnabled)
	assert.Equal(t, 3*time.Second, cfg.WeatherTimeout())
	assert.False(t, cfg.Telemetry)
	assert.Empty(t, cfg.MetricsListen)
	assert.True(t, cfg.PIDFile)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLivePathFollowsFormat(t *testing.T) {
	t.Setenv("HOSTWATCH_CONFIG", "")

	cfg, err := config.Load([]string{"--format", "JSON"}, config.WithDotEnv(""))
	require.NoError(t, err)
	assert.Equal(t, "status.json", cfg.LivePath)

	t.Setenv("HOSTWATCH_FORMAT", "yaml")
	cfg, err = config.Load(nil, config.WithDotEnv(""))
	require.NoError(t, err)
	assert.Equal(t, "status.yaml", cfg.LivePath)

	cfg, err = config.Load([]string{"--live-path", "/run/hostwatch/current.xml"}, config.WithDotEnv(""))
	require.NoError(t, err)
	assert.Equal(t, "/run/hostwatch/current.xml", cfg.LivePath, "explicit path is kept")
	assert.Equal(t, "yaml", cfg.Format)

	t.Setenv("HOSTWATCH_LIVE_PATH", "/srv/status.txt")
	cfg, err = config.Load(nil, config.WithDotEnv(""))
	require.NoError(t, err)
	assert.Equal(t, "/srv/status.txt", cfg.LivePath)
}

func TestEnvironmentAndFlagPrecedence(t *testing.T) {
	configPath := writeConfig(t, `
cpu_threshold = 60
sample_interval_seconds = 7
`)
	t.Setenv("HOSTWATCH_CONFIG", configPath)
	t.Setenv("HOSTWATCH_SAMPLE_INTERVAL_SECONDS", "9")
	t.Setenv("HOSTWATCH_DISK_THRESHOLD", "85")

	cfg, err := config.Load([]string{"--cpu-threshold", "65", "--format", "YAML"}, config.WithDotEnv(""))
	require.NoError(t, err)

	assert.Equal(t, 65.0, cfg.CPUThreshold, "flag overrides file")
	assert.Equal(t, 9, cfg.SampleIntervalSeconds, "env overrides file")
	assert.Equal(t, 85.0, cfg.DiskThreshold, "env overrides default")
	assert.Equal(t, "yaml", cfg.Format, "format is normalized")
}

func TestDotEnvSuppliesWeatherCredentials(t *testing.T) {
	t.Setenv("HOSTWATCH_CONFIG", "")
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("HOSTWATCH_WEATHER_API_KEY=secret\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("HOSTWATCH_WEATHER_API_KEY") })

	cfg, err := config.Load(nil, config.WithDotEnv(dotenv))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.WeatherAPIKey)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("HOSTWATCH_CONFIG", configPath)

	_, err := config.Load(nil, config.WithDotEnv(""))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read configuration")
}

func TestMissingExplicitConfigFile(t *testing.T) {
	t.Setenv("HOSTWATCH_CONFIG", "")

	_, err := config.Load(
		[]string{"--config", filepath.Join(t.TempDir(), "missing.toml")},
		config.WithDotEnv(""),
	)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		toml string
		code errors.ErrorCode
	}{
		{"log level", `log_level = "invalid"`, errors.ErrInvalidLogLevel},
		{"zero interval", `sample_interval_seconds = 0`, errors.ErrInvalidInterval},
		{"negative archive interval", `archive_interval_seconds = -1`, errors.ErrInvalidInterval},
		{"cpu window too long", "sample_interval_seconds = 1\ncpu_sample_window_ms = 1000", errors.ErrInvalidInterval},
		{"threshold above 100", `disk_threshold = 101`, errors.ErrInvalidThreshold},
		{"negative threshold", `cpu_threshold = -5`, errors.ErrInvalidThreshold},
		{"format", `format = "csv"`, errors.ErrInvalidFormat},
		{"weather without location", `weather_enabled = true`, errors.ErrInvalidLocation},
		{"weather bad latitude", "weather_enabled = true\nweather_location = \"91,10\"", errors.ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOSTWATCH_CONFIG", writeConfig(t, tt.toml))

			_, err := config.Load(nil, config.WithDotEnv(""))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("HOSTWATCH_CONFIG", "")

	cfg, err := config.Load([]string{"--log-level", "debug"}, config.WithDotEnv(""))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func TestUnknownFlag(t *testing.T) {
	t.Setenv("HOSTWATCH_CONFIG", "")

	_, err := config.Load([]string{"--nope"}, config.WithDotEnv(""))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrBindFlags))
}

func TestParseLocation(t *testing.T) {
	lat, lon, err := config.ParseLocation(" -33.87, 151.21 ")
	require.NoError(t, err)
	assert.InDelta(t, -33.87, lat, 1e-9)
	assert.InDelta(t, 151.21, lon, 1e-9)

	_, _, err = config.ParseLocation("north")
	assert.Error(t, err)
	_, _, err = config.ParseLocation("10,200")
	assert.Error(t, err)
}
