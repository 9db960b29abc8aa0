package config

// SourceConfig describes one named group of URLs polled on a shared cadence.
// Name scopes the on-disk store: blobs, metadata DB and the fetcher log all
// live under <output_dir>/<name>/.
type SourceConfig struct {
	Name            string   `json:"name" yaml:"name" validate:"required"`
	URLs            []string `json:"urls" yaml:"urls" validate:"min=1,dive,url"`
	IntervalSeconds int      `json:"interval_seconds,omitempty" yaml:"interval_seconds,omitempty" validate:"omitempty,min=1"`
	Extension       string   `json:"extension,omitempty" yaml:"extension,omitempty"`
}

// EffectiveInterval returns the source's poll interval in seconds, falling
// back to the process-wide default when unset.
func (sc SourceConfig) EffectiveInterval(fallback int) int {
	if sc.IntervalSeconds > 0 {
		return sc.IntervalSeconds
	}
	return fallback
}

// EffectiveExtension returns the blob file extension for the source, falling
// back to the default when unset.
func (sc SourceConfig) EffectiveExtension() string {
	if sc.Extension != "" {
		return sc.Extension
	}
	return DefaultExtension
}
