package config

import "time"

type StoreConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetDatabaseURL() string
	GetStoreMinTTL() time.Duration
	GetStoreSafetyMargin() time.Duration
	GetStoreTimeout() time.Duration
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetIntEnv("REDIS_DB", 0)
}

func (Store) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "lk:")
}

func (Store) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

// GetStoreMinTTL is the shortest expiration the expiring store accepts.
// Writes below it are rejected by the store itself.
func (Store) GetStoreMinTTL() time.Duration {
	return GetDurationEnv("STORE_MIN_TTL", 60*time.Second)
}

// GetStoreSafetyMargin is added on top of the minimum TTL when clamping, so
// processing latency between computing an expiration and the store applying
// it can never push the effective TTL under the minimum.
func (Store) GetStoreSafetyMargin() time.Duration {
	return GetDurationEnv("STORE_SAFETY_MARGIN", 5*time.Second)
}

func (Store) GetStoreTimeout() time.Duration {
	return GetDurationEnv("STORE_TIMEOUT", 5*time.Second)
}
