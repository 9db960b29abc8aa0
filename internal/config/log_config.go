package config

// Log defaults
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3
)

// LogConfig defines configuration for logging. LogFile enables an additional
// rotated file writer next to the console writer; each fetcher additionally
// tees into its own per-source log file.
type LogConfig struct {
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat     string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=console json"`
	LogFile       string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	MaxLogSizeMB  int    `json:"max_log_size_mb,omitempty" yaml:"max_log_size_mb,omitempty" validate:"omitempty,min=1"`
	MaxLogBackups int    `json:"max_log_backups,omitempty" yaml:"max_log_backups,omitempty"`
}

// NewDefaultLogConfig creates default log configuration
func NewDefaultLogConfig() LogConfig {
	return LogConfig{
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		LogFile:       "",
		MaxLogSizeMB:  DefaultMaxLogSizeMB,
		MaxLogBackups: DefaultMaxLogBackups,
	}
}
