package proxyclient

import (
	"math"
	"time"
)

// RetryConfig bounds the retry loop around one control-API request.
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig keeps retries short: the reconcile loop will come back.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// WithDefaults fills unset retry fields.
func (c RetryConfig) WithDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.Attempts <= 0 {
		c.Attempts = def.Attempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.Multiplier < 1.0 {
		c.Multiplier = def.Multiplier
	}
	return c
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg RetryConfig, attempt int) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
