// Package ratelimit throttles abusive request patterns with fixed-window
// counters kept in the expiring store.
//
// The increment is a read-modify-write against the store, not an atomic
// operation: under high concurrency for the same key some increments may be
// lost, so the effective limit can be modestly looser than configured. That
// is acceptable for abuse mitigation; the limiter is not a hard security
// boundary. A store-side atomic increment-with-expiry would tighten this,
// but the collaborator contract here is put/get/delete only.
package ratelimit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/kvstore"
)

// Rule configures the fixed window for one action.
type Rule struct {
	Limit  int           // attempts allowed per window
	Window time.Duration // window length
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration // how long a denied caller should wait
}

type record struct {
	Count         int       `json:"count"`
	WindowResetAt time.Time `json:"window_reset_at"`
	BlockedUntil  time.Time `json:"blocked_until,omitempty"`
}

// Limiter evaluates fixed-window rules per (action, client key). All writes
// go through the expiring store adapter so the minimum-TTL clamp also covers
// the failure mode of a counter updated near the end of its window.
type Limiter struct {
	kv            *kvstore.Adapter
	rules         map[string]Rule
	blockDuration time.Duration
	nowTime       func() time.Time // nowTime function (injectable for testing)
}

// LimiterOption defines a function type to modify the Limiter instance.
type LimiterOption func(*Limiter)

// WithRule registers the window rule for an action.
func WithRule(action string, limit int, window time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.rules[action] = Rule{Limit: limit, Window: window}
	}
}

// WithBlockDuration sets the escalation block applied once a key keeps
// hammering past twice the window threshold.
func WithBlockDuration(d time.Duration) LimiterOption {
	return func(l *Limiter) {
		l.blockDuration = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) LimiterOption {
	return func(l *Limiter) {
		l.nowTime = nowFunc
	}
}

// NewLimiter creates a Limiter over the given adapter.
func NewLimiter(kv *kvstore.Adapter, options ...LimiterOption) (*Limiter, error) {
	if kv == nil {
		return nil, errors.New("[ratelimit.NewLimiter] kv adapter is required")
	}

	l := &Limiter{
		kv:            kv,
		rules:         make(map[string]Rule),
		blockDuration: 5 * time.Minute,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

func limitKey(action, clientKey string) string {
	return "ratelimit:" + action + ":" + clientKey
}

// Check records an attempt for (action, clientKey) and decides whether it is
// allowed. Actions without a configured rule are always allowed and nothing
// is written for them.
func (l *Limiter) Check(ctx context.Context, action, clientKey string) (Decision, error) {
	rule, ok := l.rules[action]
	if !ok {
		return Decision{Allowed: true}, nil
	}
	if clientKey == "" {
		return Decision{}, errors.Wrap(apperrors.ErrValidation, "[Limiter.Check] clientKey is required")
	}

	now := l.nowTime()
	key := limitKey(action, clientKey)

	rec, err := l.load(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if rec == nil || !now.Before(rec.WindowResetAt) {
		// First attempt in a window. A stale record still present because of
		// store propagation delay is simply overwritten.
		rec = &record{Count: 1, WindowResetAt: now.Add(rule.Window)}
	} else {
		rec.Count++
	}

	if rec.Count > rule.Limit {
		rec.BlockedUntil = rec.WindowResetAt
		if rec.Count > 2*rule.Limit {
			// Repeated abuse within one window earns a longer block.
			rec.BlockedUntil = now.Add(l.blockDuration)
			rec.WindowResetAt = rec.BlockedUntil
		}
	}

	if err := l.save(ctx, key, rec, now); err != nil {
		return Decision{}, err
	}

	if rec.Count > rule.Limit {
		return Decision{
			Allowed:    false,
			RetryAfter: rec.BlockedUntil.Sub(now),
		}, nil
	}
	return Decision{Allowed: true}, nil
}

func (l *Limiter) load(ctx context.Context, key string) (*record, error) {
	data, err := l.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Limiter.load] get record")
	}

	rec := &record{}
	if err := json.Unmarshal(data, rec); err != nil {
		// Treat an unreadable record as absent; it will be overwritten.
		return nil, nil
	}
	return rec, nil
}

func (l *Limiter) save(ctx context.Context, key string, rec *record, now time.Time) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "[Limiter.save] marshal")
	}

	until := rec.WindowResetAt
	if rec.BlockedUntil.After(until) {
		until = rec.BlockedUntil
	}

	if err := l.kv.PutWithTTL(ctx, key, data, until.Sub(now)); err != nil {
		return errors.Wrap(err, "[Limiter.save] put record")
	}
	return nil
}
