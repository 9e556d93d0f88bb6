package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
)

const (
	hashAlgorithm  = "pbkdf2-sha256"
	hashIterations = 120_000
	saltLength     = 16
	keyLength      = 32
)

// Hasher derives and verifies salted password hashes using PBKDF2-SHA256.
// The stored format is "pbkdf2-sha256$<iterations>$<salt>$<key>" with salt
// and key base64 encoded.
type Hasher struct {
	iterations int
}

// NewHasher creates a Hasher with the default iteration count.
func NewHasher() *Hasher {
	return &Hasher{iterations: hashIterations}
}

// Hash derives a stored hash from a plaintext password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "[Hasher.Hash] rand.Read")
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, keyLength, sha256.New)

	encoded := strings.Join([]string{
		hashAlgorithm,
		strconv.Itoa(h.iterations),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$")
	return encoded, nil
}

// Verify reports whether the plaintext password matches the stored hash. The
// comparison is constant time with respect to where a mismatch occurs. A
// malformed stored hash returns ErrCorruptCredential rather than false, so
// corrupted records are never silently treated as "no match".
func (h *Hasher) Verify(password, storedHash string) (bool, error) {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 4 || parts[0] != hashAlgorithm {
		return false, apperrors.ErrCorruptCredential
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, apperrors.ErrCorruptCredential
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return false, apperrors.ErrCorruptCredential
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false, apperrors.ErrCorruptCredential
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}
