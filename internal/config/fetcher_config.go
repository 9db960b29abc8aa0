package config

// Fetcher defaults
const (
	DefaultOutputDir       = "./output"
	DefaultIntervalSeconds = 15
	DefaultExtension       = "bin"
)

// FetcherConfig defines process-wide fetcher settings. Per-source values in
// SourceConfig take precedence over the defaults here.
type FetcherConfig struct {
	OutputDir       string `json:"output_dir,omitempty" yaml:"output_dir,omitempty" validate:"required"`
	IntervalSeconds int    `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty" validate:"min=1"`
}

// NewDefaultFetcherConfig creates default fetcher configuration
func NewDefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		OutputDir:       DefaultOutputDir,
		IntervalSeconds: DefaultIntervalSeconds,
	}
}
