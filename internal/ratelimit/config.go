// Package ratelimit implements per-identity admission control with fixed-window,
// sliding-window and token-bucket algorithms over a pluggable counter store.
package ratelimit

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Preset names for the endpoint classes.
const (
	PresetDefault = "default"
	PresetAPI     = "api"
	PresetTrends  = "trends"
	PresetAudio   = "audio"
	PresetStrict  = "strict"
	PresetBurst   = "burst"
)

// Config describes one limit.
type Config struct {
	Window     time.Duration `mapstructure:"window"`
	Max        int64         `mapstructure:"max"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	RefillRate float64       `mapstructure:"refill_rate"` // tokens per second, token bucket only; 0 means Max/Window
	Algorithm  Algorithm     `mapstructure:"algorithm"`   // empty uses the limiter's default
}

// Validate reports whether the config can be used by a Limiter.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", c.Window)
	}
	if c.Max < 1 {
		return fmt.Errorf("rate limit max must be at least 1, got %d", c.Max)
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("rate limit key prefix is required")
	}
	if c.RefillRate < 0 {
		return fmt.Errorf("rate limit refill rate must not be negative, got %g", c.RefillRate)
	}
	if c.Algorithm != "" {
		if _, err := ParseAlgorithm(string(c.Algorithm)); err != nil {
			return err
		}
	}

	return nil
}

// refillInterval is the time it takes to earn one token.
func (c Config) refillInterval() time.Duration {
	if c.RefillRate > 0 {
		return max(time.Duration(float64(time.Second)/c.RefillRate), time.Nanosecond)
	}

	return max(c.Window/time.Duration(c.Max), time.Nanosecond)
}

// bucketTTL is how long a token bucket entry lives: the window, or the time to
// refill an empty bucket when that is longer.
func (c Config) bucketTTL() time.Duration {
	interval := c.refillInterval()
	if c.Max > math.MaxInt64/int64(interval) {
		return time.Duration(math.MaxInt64)
	}

	return max(c.Window, interval*time.Duration(c.Max))
}

// DefaultPresets returns the built-in limits, keyed by preset name.
func DefaultPresets() map[string]Config {
	return map[string]Config{
		PresetDefault: {Window: 60 * time.Second, Max: 60, KeyPrefix: "rl"},
		PresetAPI:     {Window: 60 * time.Second, Max: 100, KeyPrefix: "rl:api"},
		PresetTrends:  {Window: 60 * time.Second, Max: 30, KeyPrefix: "rl:trends"},
		PresetAudio:   {Window: 60 * time.Second, Max: 60, KeyPrefix: "rl:audio"},
		PresetStrict:  {Window: 60 * time.Second, Max: 10, KeyPrefix: "rl:strict"},
		PresetBurst:   {Window: time.Second, Max: 5, KeyPrefix: "rl:burst"},
	}
}

// PresetNames returns the built-in preset names in sorted order.
func PresetNames() []string {
	presets := DefaultPresets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
