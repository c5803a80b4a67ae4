package config

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath    string
	configPathSet bool
	envPrefix     string
	dotEnvPath    string
}

// WithConfigFile specifies an explicit configuration file path. An empty
// path disables the configuration file.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		o.configPathSet = true
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "HOSTWATCH"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithDotEnv specifies the .env file loaded before environment lookup.
// Default is ".env" in the working directory; a missing file is ignored.
func WithDotEnv(path string) Option {
	return func(o *options) error {
		o.dotEnvPath = path
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
