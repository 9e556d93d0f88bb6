package config

type Config interface {
	EnvConfig
	AuthConfig
	StoreConfig
	RateLimitConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Auth
	Store
	RateLimits
}

func New() Config {
	return mainConfig{}
}
