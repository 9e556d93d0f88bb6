// Package sessions records one active session per (user, device) on top of
// the expiring store. A session makes a token's validity additionally
// contingent on not having been revoked or superseded: IsActive compares the
// presented token's hash against the stored one, so an older token presented
// after a refresh is rejected even though its own signature and expiry would
// still verify.
package sessions

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/kvstore"
)

// DefaultDevice is used when a client does not identify its device.
const DefaultDevice = "web"

type record struct {
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id"`
	TokenHash []byte    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// deviceIndex tracks which device sessions exist for a user so RevokeAll can
// find them; the raw store offers no key scans.
type deviceIndex struct {
	Devices []string `json:"devices"`
}

// Store persists sessions through the expiring store adapter. It holds no
// in-process state: the shared store is the single source of truth across
// instances.
type Store struct {
	kv *kvstore.Adapter
}

// NewStore creates a session Store over the given adapter.
func NewStore(kv *kvstore.Adapter) (*Store, error) {
	if kv == nil {
		return nil, errors.New("[sessions.NewStore] kv adapter is required")
	}
	return &Store{kv: kv}, nil
}

func sessionKey(userID, deviceID string) string {
	return "session:" + userID + ":" + deviceID
}

func indexKey(userID string) string {
	return "session-devices:" + userID
}

func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// Save records token as the single active session for (userID, deviceID),
// overwriting any prior session for that pair. The entry's stored TTL is
// never below the token's own lifetime, so a session cannot stop being
// checkable while its token still verifies.
func (s *Store) Save(ctx context.Context, userID, deviceID, token string, ttl time.Duration) error {
	if userID == "" || token == "" {
		return errors.Wrap(apperrors.ErrValidation, "[Store.Save] userID and token are required")
	}
	if deviceID == "" {
		deviceID = DefaultDevice
	}

	rec := record{
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(ttl),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] marshal")
	}

	if err := s.kv.PutWithTTL(ctx, sessionKey(userID, deviceID), data, ttl); err != nil {
		return errors.Wrap(err, "[Store.Save] put session")
	}

	if err := s.addDeviceToIndex(ctx, userID, deviceID, ttl); err != nil {
		return errors.Wrap(err, "[Store.Save] update device index")
	}
	return nil
}

// IsActive reports whether token is the currently stored session token for
// (userID, deviceID). A missing session or a hash mismatch both report false;
// only store failures return an error.
func (s *Store) IsActive(ctx context.Context, userID, deviceID, token string) (bool, error) {
	if deviceID == "" {
		deviceID = DefaultDevice
	}

	data, err := s.kv.Get(ctx, sessionKey(userID, deviceID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "[Store.IsActive] get session")
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return false, nil
	}

	return hmac.Equal(rec.TokenHash, hashToken(token)), nil
}

// Revoke deletes the session for (userID, deviceID). Subsequent IsActive
// calls report false until a new Save.
func (s *Store) Revoke(ctx context.Context, userID, deviceID string) error {
	if deviceID == "" {
		deviceID = DefaultDevice
	}
	if err := s.kv.Delete(ctx, sessionKey(userID, deviceID)); err != nil {
		return errors.Wrap(err, "[Store.Revoke] delete session")
	}
	return nil
}

// RevokeAll deletes every device session recorded for the user.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	data, err := s.kv.Get(ctx, indexKey(userID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "[Store.RevokeAll] get device index")
	}

	var idx deviceIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return errors.Wrap(err, "[Store.RevokeAll] unmarshal device index")
	}

	for _, deviceID := range idx.Devices {
		if err := s.kv.Delete(ctx, sessionKey(userID, deviceID)); err != nil {
			return errors.Wrap(err, "[Store.RevokeAll] delete session")
		}
	}
	if err := s.kv.Delete(ctx, indexKey(userID)); err != nil {
		return errors.Wrap(err, "[Store.RevokeAll] delete device index")
	}
	return nil
}

func (s *Store) addDeviceToIndex(ctx context.Context, userID, deviceID string, ttl time.Duration) error {
	idx := deviceIndex{}
	data, err := s.kv.Get(ctx, indexKey(userID))
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if err == nil {
		_ = json.Unmarshal(data, &idx)
	}

	// Rewrite even when the device is already listed: the index TTL must be
	// refreshed alongside the session it points at.
	idx.Devices = appendUnique(idx.Devices, deviceID)

	out, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return s.kv.PutWithTTL(ctx, indexKey(userID), out, ttl)
}

func appendUnique(devices []string, deviceID string) []string {
	for _, d := range devices {
		if d == deviceID {
			return devices
		}
	}
	return append(devices, deviceID)
}
