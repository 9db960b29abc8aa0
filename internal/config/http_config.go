package config

import (
	"time"

	"snapfetch/internal/common"
)

// HTTP defaults
const (
	DefaultHTTPTimeoutSeconds = 30
	DefaultUserAgent          = "snapfetch/1.0"
)

// HTTPConfig defines settings for the shared HTTP client
type HTTPConfig struct {
	TimeoutSeconds     int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Proxy              string `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
	UserAgent          string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// NewDefaultHTTPConfig creates default HTTP client configuration
func NewDefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		TimeoutSeconds:     DefaultHTTPTimeoutSeconds,
		InsecureSkipVerify: false,
		UserAgent:          DefaultUserAgent,
	}
}

// ToClientConfig converts the section into the client construction config
func (hc HTTPConfig) ToClientConfig() common.HTTPClientConfig {
	cfg := common.DefaultHTTPClientConfig()
	if hc.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(hc.TimeoutSeconds) * time.Second
	}
	cfg.InsecureSkipVerify = hc.InsecureSkipVerify
	cfg.Proxy = hc.Proxy
	if hc.UserAgent != "" {
		cfg.UserAgent = hc.UserAgent
	}
	return cfg
}
