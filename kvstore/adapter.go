package kvstore

import (
	"context"
	"time"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/pkg/errors"
)

// Adapter centralizes the minimum-TTL safety logic in front of the raw store.
//
// Computing a relative TTL at one point in time and letting the store
// re-validate it at write time can push the effective remaining time below
// the store's enforced minimum once processing or network latency is added.
// The adapter computes one absolute expiration and clamps it to
// now + minTTL + safetyMargin, which removes the race entirely. Session and
// rate-limit writes must go through here; nothing else calls KV.PutAt.
type Adapter struct {
	kv           KV
	minTTL       time.Duration
	safetyMargin time.Duration
	nowTime      func() time.Time // nowTime function (injectable for testing)
}

// AdapterOption defines a function type to modify the Adapter instance.
type AdapterOption func(*Adapter)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.nowTime = nowFunc
	}
}

// NewAdapter wraps kv with the given store minimum TTL and safety margin.
func NewAdapter(kv KV, minTTL, safetyMargin time.Duration, options ...AdapterOption) (*Adapter, error) {
	if kv == nil {
		return nil, errors.New("[NewAdapter] kv store is required")
	}
	if minTTL <= 0 {
		return nil, errors.New("[NewAdapter] minTTL must be positive")
	}
	if safetyMargin < 0 {
		return nil, errors.New("[NewAdapter] safetyMargin must not be negative")
	}

	a := &Adapter{
		kv:           kv,
		minTTL:       minTTL,
		safetyMargin: safetyMargin,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// PutWithTTL writes value under key with the desired lifetime. The absolute
// expiration is computed once and never falls below now + minTTL + margin,
// regardless of the desired TTL (including zero and negative values).
// Write failures surface as ErrStoreUnavailable and are not retried; callers
// on mutating paths fail the whole request instead of completing half-applied.
func (a *Adapter) PutWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.Wrap(apperrors.ErrValidation, "[Adapter.PutWithTTL] key is required")
	}

	now := a.nowTime()
	expiresAt := a.clampExpiration(now, ttl)

	if err := a.kv.PutAt(ctx, key, value, expiresAt); err != nil {
		return errors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

// Get reads a key, retrying once on store failure; reads are idempotent so a
// single automatic retry cannot double-apply anything. Absent keys return
// errors.ErrNotFound.
func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := a.kv.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrNotFound
	}

	value, err = a.kv.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrNotFound
	}
	return nil, errors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
}

// Delete removes a key. Deletions are idempotent and retried once.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := a.kv.Delete(ctx, key); err == nil {
		return nil
	}
	if err := a.kv.Delete(ctx, key); err != nil {
		return errors.Wrap(apperrors.ErrStoreUnavailable, err.Error())
	}
	return nil
}

// clampExpiration computes the absolute expiration for a desired TTL.
// Invariant: the result is always at or beyond now + minTTL + safetyMargin.
func (a *Adapter) clampExpiration(now time.Time, ttl time.Duration) time.Time {
	expiresAt := now.Add(ttl)
	floor := now.Add(a.minTTL + a.safetyMargin)
	if expiresAt.Before(floor) {
		return floor
	}
	return expiresAt
}
