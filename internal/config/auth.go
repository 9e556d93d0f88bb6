package config

import "time"

type AuthConfig interface {
	GetAuthSecret() string
	GetTokenTTL() time.Duration
	GetSessionTTL() time.Duration
	GetClockSkew() time.Duration
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetAuthSecret returns the token signing secret. The baked-in fallback is
// served in DEV only; anywhere else an unset AUTH_SECRET comes back empty
// and startup fails rather than signing tokens with a value anyone can read
// out of the source.
func (Auth) GetAuthSecret() string {
	secret := GetEnv("AUTH_SECRET", "")
	if secret == "" && GetEnv("ENV", "DEV") == "DEV" {
		return "dev-only-secret"
	}
	return secret
}

func (Auth) GetTokenTTL() time.Duration {
	return GetDurationEnv("TOKEN_TTL", 15*time.Minute)
}

// GetSessionTTL returns the session entry lifetime. Sessions must never
// expire before their token does; callers clamp to GetTokenTTL if this is
// configured lower.
func (Auth) GetSessionTTL() time.Duration {
	return GetDurationEnv("SESSION_TTL", 24*time.Hour)
}

func (Auth) GetClockSkew() time.Duration {
	return 5 * time.Second
}
