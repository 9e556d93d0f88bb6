// Package kvfake provides an in-memory KV implementation for tests. It
// mirrors the behaviour of the real collaborator, including the enforced
// minimum TTL: writes whose expiration falls below it are rejected.
package kvfake

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/kvstore"
)

var _ kvstore.KV = (*FakeKV)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type FakeKV struct {
	entries map[string]entry
	lock    sync.RWMutex

	minTTL  time.Duration
	nowTime func() time.Time

	failPuts    int // number of upcoming PutAt calls to fail
	failGets    int // number of upcoming Get calls to fail
	failDeletes int // number of upcoming Delete calls to fail

	// LastPutExpiresAt records the expiration of the most recent accepted
	// write, so tests can assert on the adapter's clamping.
	LastPutExpiresAt time.Time
}

type Option func(*FakeKV)

// WithMinTTL makes the fake reject writes expiring sooner than minTTL from
// now, matching the documented behaviour of the real store.
func WithMinTTL(minTTL time.Duration) Option {
	return func(f *FakeKV) {
		f.minTTL = minTTL
	}
}

// WithNowTime sets the now time function (primarily for testing expiry)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(f *FakeKV) {
		f.nowTime = nowFunc
	}
}

func NewFakeKV(options ...Option) *FakeKV {
	f := &FakeKV{
		entries: make(map[string]entry),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// FailNextPuts makes the next n PutAt calls fail.
func (f *FakeKV) FailNextPuts(n int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failPuts = n
}

// FailNextGets makes the next n Get calls fail.
func (f *FakeKV) FailNextGets(n int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failGets = n
}

// FailNextDeletes makes the next n Delete calls fail.
func (f *FakeKV) FailNextDeletes(n int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failDeletes = n
}

func (f *FakeKV) PutAt(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.failPuts > 0 {
		f.failPuts--
		return errors.New("injected put failure")
	}

	if f.minTTL > 0 && expiresAt.Before(f.nowTime().Add(f.minTTL)) {
		return errors.Errorf("expiration below store minimum TTL of %s", f.minTTL)
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	f.entries[key] = entry{value: copied, expiresAt: expiresAt}
	f.LastPutExpiresAt = expiresAt
	return nil
}

func (f *FakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("injected get failure")
	}

	e, ok := f.entries[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if !f.nowTime().Before(e.expiresAt) {
		delete(f.entries, key)
		return nil, apperrors.ErrNotFound
	}

	copied := make([]byte, len(e.value))
	copy(copied, e.value)
	return copied, nil
}

func (f *FakeKV) Delete(_ context.Context, key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.failDeletes > 0 {
		f.failDeletes--
		return errors.New("injected delete failure")
	}

	delete(f.entries, key)
	return nil
}

// Len reports the number of live entries.
func (f *FakeKV) Len() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.entries)
}
