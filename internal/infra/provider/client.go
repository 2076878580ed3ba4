// Package provider provides HTTP client and circuit breaker utilities for upstream dependencies.
package provider

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// ClientConfig holds configuration for an upstream client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewRestyClient creates a new Resty HTTP client.
// Retries are driven by the caller so that every attempt is visible to its breaker.
func NewRestyClient(cfg ClientConfig) *resty.Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	if cfg.BaseURL != "" {
		client.SetBaseURL(cfg.BaseURL)
	}

	return client
}
