package config

import "time"

type RateLimitConfig interface {
	GetAuthRateLimit() int
	GetAuthRateWindow() time.Duration
	GetRegistrationRateLimit() int
	GetRegistrationRateWindow() time.Duration
	GetRateBlockDuration() time.Duration
}

type RateLimits struct{}

var _ RateLimitConfig = RateLimits{}

func (RateLimits) GetAuthRateLimit() int {
	return GetIntEnv("RATE_AUTH_LIMIT", 5)
}

func (RateLimits) GetAuthRateWindow() time.Duration {
	return GetDurationEnv("RATE_AUTH_WINDOW", time.Minute)
}

func (RateLimits) GetRegistrationRateLimit() int {
	return GetIntEnv("RATE_REG_LIMIT", 3)
}

func (RateLimits) GetRegistrationRateWindow() time.Duration {
	return GetDurationEnv("RATE_REG_WINDOW", time.Minute)
}

// GetRateBlockDuration is the escalation block applied once a key keeps
// hammering past twice the window threshold.
func (RateLimits) GetRateBlockDuration() time.Duration {
	return GetDurationEnv("RATE_BLOCK_DURATION", 5*time.Minute)
}
