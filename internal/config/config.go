package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/hostwatch/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "HOSTWATCH"
	DefaultConfigName = "hostwatch"
	DefaultConfigDir  = "/etc/hostwatch"
	DefaultLogLevel   = "info"

	defaultCPUThreshold     = 80.0
	defaultMemoryThreshold  = 80.0
	defaultDiskThreshold    = 90.0
	defaultSampleInterval   = 5
	defaultArchiveInterval  = 60
	defaultArchiveDirectory = "logs_xml"
	defaultLiveName         = "status"
	defaultFormat           = "xml"
	defaultDiskPath         = "/"
	defaultCPUWindowMillis  = 1000
	defaultWeatherEndpoint  = "https://api.open-meteo.com"
	defaultWeatherTimeout   = 3
	defaultTelemetryDB      = "hostwatch.db"
)

var formats = map[string]bool{"xml": true, "json": true, "yaml": true}

type Config struct {
	CPUThreshold    float64 `mapstructure:"cpu_threshold"`
	MemoryThreshold float64 `mapstructure:"memory_threshold"`
	DiskThreshold   float64 `mapstructure:"disk_threshold"`

	SampleIntervalSeconds  int    `mapstructure:"sample_interval_seconds"`
	ArchiveIntervalSeconds int    `mapstructure:"archive_interval_seconds"`
	ArchiveDirectory       string `mapstructure:"archive_directory"`
	LivePath               string `mapstructure:"live_path"`
	Format                 string `mapstructure:"format"`
	DiskPath               string `mapstructure:"disk_path"`
	CPUWindowMillis        int    `mapstructure:"cpu_sample_window_ms"`

	WeatherEnabled        bool   `mapstructure:"weather_enabled"`
	WeatherEndpoint       string `mapstructure:"weather_endpoint"`
	WeatherAPIKey         string `mapstructure:"weather_api_key"`
	WeatherLocation       string `mapstructure:"weather_location"`
	WeatherTimeoutSeconds int    `mapstructure:"weather_timeout_seconds"`

	LogLevel      string `mapstructure:"log_level"`
	Telemetry     bool   `mapstructure:"telemetry"`
	TelemetryDB   string `mapstructure:"telemetry_db"`
	MetricsListen string `mapstructure:"metrics_listen"`
	PIDFile       bool   `mapstructure:"pid_file"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"cpu-threshold":    "cpu_threshold",
	"memory-threshold": "memory_threshold",
	"disk-threshold":   "disk_threshold",
	"interval":         "sample_interval_seconds",
	"archive-interval": "archive_interval_seconds",
	"archive-dir":      "archive_directory",
	"live-path":        "live_path",
	"format":           "format",
	"disk-path":        "disk_path",
	"weather":          "weather_enabled",
	"weather-location": "weather_location",
	"log-level":        "log_level",
	"telemetry":        "telemetry",
	"telemetry-db":     "telemetry_db",
	"metrics-listen":   "metrics_listen",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cpu_threshold", defaultCPUThreshold)
	v.SetDefault("memory_threshold", defaultMemoryThreshold)
	v.SetDefault("disk_threshold", defaultDiskThreshold)
	v.SetDefault("sample_interval_seconds", defaultSampleInterval)
	v.SetDefault("archive_interval_seconds", defaultArchiveInterval)
	v.SetDefault("archive_directory", defaultArchiveDirectory)
	v.SetDefault("live_path", "") // derived from format when unset
	v.SetDefault("format", defaultFormat)
	v.SetDefault("disk_path", defaultDiskPath)
	v.SetDefault("cpu_sample_window_ms", defaultCPUWindowMillis)
	v.SetDefault("weather_enabled", false)
	v.SetDefault("weather_endpoint", defaultWeatherEndpoint)
	v.SetDefault("weather_api_key", "")
	v.SetDefault("weather_location", "")
	v.SetDefault("weather_timeout_seconds", defaultWeatherTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("telemetry", false)
	v.SetDefault("telemetry_db", defaultTelemetryDB)
	v.SetDefault("metrics_listen", "")
	v.SetDefault("pid_file", true)
}

func defineFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to configuration file")
	flags.Float64("cpu-threshold", defaultCPUThreshold, "CPU usage alert threshold in percent")
	flags.Float64("memory-threshold", defaultMemoryThreshold, "Memory usage alert threshold in percent")
	flags.Float64("disk-threshold", defaultDiskThreshold, "Disk usage alert threshold in percent")
	flags.Int("interval", defaultSampleInterval, "Seconds between live status updates")
	flags.Int("archive-interval", defaultArchiveInterval, "Minimum seconds between archive documents")
	flags.String("archive-dir", defaultArchiveDirectory, "Directory for archive documents")
	flags.String("live-path", "", "Path of the live status document (default status.<format>)")
	flags.String("format", defaultFormat, "Document format: xml, json or yaml")
	flags.String("disk-path", defaultDiskPath, "Mount point used for disk usage")
	flags.Bool("weather", false, "Attach weather data to each document")
	flags.String("weather-location", "", "Weather location as latitude,longitude")
	flags.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	flags.Bool("telemetry", false, "Record archived snapshots in a sqlite database")
	flags.String("telemetry-db", defaultTelemetryDB, "Path of the telemetry database")
	flags.String("metrics-listen", "", "Address for the Prometheus metrics endpoint")
}

// Load reads configuration from defaults, the configuration file, a .env
// file, the environment and finally the given command line arguments.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix, dotEnvPath: ".env"}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	flags := pflag.NewFlagSet("hostwatch", pflag.ContinueOnError)
	defineFlags(flags)
	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if o.dotEnvPath != "" {
		if err := godotenv.Load(o.dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, flags, o); err != nil {
		return nil, err
	}

	// Only explicitly set flags override the file and environment
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.LivePath == "" {
		config.LivePath = defaultLiveName + "." + config.Format
	}

	return config, nil
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet, o *options) error {
	errFactory := errors.New()

	path, explicit := o.configPath, o.configPathSet
	if f := flags.Lookup("config"); f != nil && f.Changed {
		path, explicit = f.Value.String(), true
	}
	if !explicit {
		path, explicit = os.LookupEnv(o.envPrefix + "_CONFIG")
	}

	if explicit {
		if path == "" {
			return nil
		}
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(DefaultConfigDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks the configuration for values the publisher cannot run with.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.SampleIntervalSeconds <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.SampleIntervalSeconds)
	}
	if c.ArchiveIntervalSeconds <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.ArchiveIntervalSeconds)
	}
	if c.CPUWindowMillis < 0 || c.CPUWindowMillis >= c.SampleIntervalSeconds*1000 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.CPUWindowMillis)
	}

	for _, th := range []float64{c.CPUThreshold, c.MemoryThreshold, c.DiskThreshold} {
		if th < 0 || th > 100 {
			return errFactory.WithData(errors.ErrInvalidThreshold, th)
		}
	}

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	c.Format = strings.ToLower(c.Format)
	if !formats[c.Format] {
		return errFactory.WithData(errors.ErrInvalidFormat, c.Format)
	}

	if c.ArchiveDirectory == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "archive directory is required")
	}

	if c.WeatherEnabled {
		if _, _, err := ParseLocation(c.WeatherLocation); err != nil {
			return err
		}
		if c.WeatherTimeoutSeconds <= 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, c.WeatherTimeoutSeconds)
		}
	}

	return nil
}

// ParseLocation parses a "latitude,longitude" pair.
func ParseLocation(s string) (lat, lon float64, err error) {
	errFactory := errors.New()

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errFactory.WithData(errors.ErrInvalidLocation, s)
	}

	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, errFactory.WithData(errors.ErrInvalidLocation, s)
	}

	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, errFactory.WithData(errors.ErrInvalidLocation, s)
	}

	return lat, lon, nil
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

func (c *Config) ArchiveInterval() time.Duration {
	return time.Duration(c.ArchiveIntervalSeconds) * time.Second
}

func (c *Config) CPUWindow() time.Duration {
	return time.Duration(c.CPUWindowMillis) * time.Millisecond
}

func (c *Config) WeatherTimeout() time.Duration {
	return time.Duration(c.WeatherTimeoutSeconds) * time.Second
}
