package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
)

// Claims carries arbitrary application claims embedded in a token payload.
type Claims map[string]any

// Identity is the verified content of a token.
type Identity struct {
	UserID string
	Claims Claims
}

// Reserved claim names managed by the service itself. Application claims may
// not shadow them.
var reservedClaims = map[string]struct{}{
	"sub": {},
	"iat": {},
	"exp": {},
	"jti": {},
}

// Service issues and verifies signed, time-bounded identity tokens. Tokens
// are HS256 JWTs signed with a server-held secret. Verification is pure and
// stateless: revocation is layered on top by the session store, never here.
type Service struct {
	secret    []byte
	clockSkew time.Duration
	nowTime   func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithClockSkew sets the allowance for clock drift between instances when
// checking expiry. Kept small; the default is 5 seconds.
func WithClockSkew(skew time.Duration) ServiceOption {
	return func(s *Service) {
		s.clockSkew = skew
	}
}

// NewService creates a token Service signing with the given secret.
func NewService(secret string, options ...ServiceOption) (*Service, error) {
	if secret == "" {
		return nil, errors.New("[token.NewService] secret is required")
	}

	s := &Service{
		secret:    []byte(secret),
		clockSkew: 5 * time.Second,
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Issue creates a signed token asserting userID for the given lifetime.
// Application claims are carried verbatim; reserved claim names are ignored.
func (s *Service) Issue(userID string, claims Claims, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("[Service.Issue] userID is required")
	}

	now := s.nowTime()
	jwtClaims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.New().String(),
	}
	for name, value := range claims {
		if _, reserved := reservedClaims[name]; reserved {
			continue
		}
		jwtClaims[name] = value
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtClaims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Issue] SignedString")
	}
	return signed, nil
}

// Verify checks the signature and time bounds of a raw token and returns the
// identity it asserts. Signature mismatch, expiry and structural problems all
// collapse into ErrInvalidToken so callers cannot distinguish why.
func (s *Service) Verify(rawToken string) (*Identity, error) {
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithLeeway(s.clockSkew),
		jwtlib.WithTimeFunc(s.nowTime),
		jwtlib.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(rawToken, jwtlib.MapClaims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, apperrors.ErrInvalidToken
	}

	claims := make(Claims)
	for name, value := range mapClaims {
		if _, reserved := reservedClaims[name]; reserved {
			continue
		}
		claims[name] = value
	}

	return &Identity{UserID: sub, Claims: claims}, nil
}
