package config

// Discovery defaults
const (
	DefaultDiscoverySourceName = "cctv"
	DefaultDiscoveryExtension  = "jpg"
)

// DiscoveryConfig configures the optional startup step that enumerates camera
// feeds from a directory endpoint and turns them into one additional source.
type DiscoveryConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	DirectoryURL    string `json:"directory_url,omitempty" yaml:"directory_url,omitempty" validate:"omitempty,url"`
	SourceName      string `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	Extension       string `json:"extension,omitempty" yaml:"extension,omitempty"`
	IntervalSeconds int    `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultDiscoveryConfig creates default discovery configuration
func NewDefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Enabled:    false,
		SourceName: DefaultDiscoverySourceName,
		Extension:  DefaultDiscoveryExtension,
	}
}
