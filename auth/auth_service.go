package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/sessions"
	"github.com/listkeeper/listkeeper/token"
	"github.com/listkeeper/listkeeper/users"
)

// deviceClaim names the token claim carrying the device-session identifier,
// so a verified token locates the session entry it must still match.
const deviceClaim = "dev"

// Result is returned by the flows that issue a token.
type Result struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

// Reason tags an authentication outcome for logging and metrics only. The
// externally visible behaviour never varies by reason: callers of
// Authenticate map every non-nil error to the same response.
type Reason string

const (
	ReasonOK             Reason = "ok"
	ReasonNoToken        Reason = "no_token"
	ReasonInvalidToken   Reason = "invalid_token"
	ReasonRevoked        Reason = "revoked"
	ReasonBadCredentials Reason = "bad_credentials"
	ReasonStoreFailure   Reason = "store_failure"
)

// SessionRepo is the session persistence surface the auth flows depend on.
type SessionRepo interface {
	Save(ctx context.Context, userID, deviceID, token string, ttl time.Duration) error
	IsActive(ctx context.Context, userID, deviceID, token string) (bool, error)
	Revoke(ctx context.Context, userID, deviceID string) error
	RevokeAll(ctx context.Context, userID string) error
}

var _ SessionRepo = (*sessions.Store)(nil)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.UserRepo // Relational store for user records
	Sessions SessionRepo    // Expiring store for active sessions
}

// Service orchestrates registration, login, logout, refresh and per-request
// authentication on top of the password hasher, token service and session
// store.
type Service struct {
	repos      Repos
	hasher     *users.Hasher
	tokens     *token.Service
	tokenTTL   time.Duration
	sessionTTL time.Duration
	nowTime    func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes the auth Service with required dependencies.
// sessionTTL is clamped up to tokenTTL: a session must never expire before
// the token it validates.
func NewService(
	repos Repos,
	hasher *users.Hasher,
	tokens *token.Service,
	tokenTTL, sessionTTL time.Duration,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[auth.NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[auth.NewService] Sessions store is required")
	}
	if hasher == nil {
		return nil, errors.New("[auth.NewService] hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("[auth.NewService] token service is required")
	}
	if tokenTTL <= 0 {
		return nil, errors.New("[auth.NewService] tokenTTL must be positive")
	}
	if sessionTTL < tokenTTL {
		sessionTTL = tokenTTL
	}

	s := &Service{
		repos:      repos,
		hasher:     hasher,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		sessionTTL: sessionTTL,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Register creates a new user account and logs it in on the given device.
func (s *Service) Register(ctx context.Context, email, displayName, password, deviceID string) (*Result, error) {
	if err := ValidateRegistration(email, displayName, password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] hash password")
	}

	user := &users.User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		DateJoined:   s.nowTime(),
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateResource) {
			return nil, apperrors.ErrDuplicateResource
		}
		return nil, errors.Wrap(err, "[Service.Register] create user")
	}

	return s.startSession(ctx, user, deviceID)
}

// Login verifies credentials and starts a session on the given device. Wrong
// email and wrong password produce the same error so callers cannot probe
// which accounts exist.
func (s *Service) Login(ctx context.Context, email, password, deviceID string) (*Result, error) {
	if err := ValidateLogin(email, password); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[Service.Login] get user")
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		// A corrupt stored hash is an operational fault, not a mismatch.
		return nil, errors.Wrap(err, "[Service.Login] verify password")
	}
	if !match {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.startSession(ctx, user, deviceID)
}

// Logout revokes the session for the presenting device, or for every device
// when all is set.
func (s *Service) Logout(ctx context.Context, userID, deviceID string, all bool) error {
	if all {
		if err := s.repos.Sessions.RevokeAll(ctx, userID); err != nil {
			return errors.Wrap(err, "[Service.Logout] revoke all sessions")
		}
		return nil
	}
	if err := s.repos.Sessions.Revoke(ctx, userID, deviceID); err != nil {
		return errors.Wrap(err, "[Service.Logout] revoke session")
	}
	return nil
}

// Refresh issues a new token for an already-authenticated user and replaces
// the device session, superseding the old token. After saving it re-checks
// the session: if a concurrent logout revoked it, the refresh is abandoned
// and the user ends up logged out - the safe side of that race.
func (s *Service) Refresh(ctx context.Context, userID, deviceID string) (*Result, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "[Service.Refresh] get user")
	}

	result, err := s.startSession(ctx, user, deviceID)
	if err != nil {
		return nil, err
	}

	active, err := s.repos.Sessions.IsActive(ctx, userID, deviceID, result.Token)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] re-check session")
	}
	if !active {
		_ = s.repos.Sessions.Revoke(ctx, userID, deviceID)
		return nil, apperrors.ErrUnauthenticated
	}
	return result, nil
}

// Authenticate verifies a bearer token and confirms its session is still
// present. All failures collapse into ErrUnauthenticated; the Reason is for
// logging and metrics only and must never influence the response.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*token.Identity, Reason, error) {
	if rawToken == "" {
		return nil, ReasonNoToken, apperrors.ErrUnauthenticated
	}

	identity, err := s.tokens.Verify(rawToken)
	if err != nil {
		return nil, ReasonInvalidToken, apperrors.ErrUnauthenticated
	}

	deviceID, _ := identity.Claims[deviceClaim].(string)
	active, err := s.repos.Sessions.IsActive(ctx, identity.UserID, deviceID, rawToken)
	if err != nil {
		return nil, ReasonStoreFailure, errors.Wrap(err, "[Service.Authenticate] session check")
	}
	if !active {
		return nil, ReasonRevoked, apperrors.ErrUnauthenticated
	}

	return identity, ReasonOK, nil
}

// DeviceID extracts the device-session identifier from a verified identity.
func DeviceID(identity *token.Identity) string {
	deviceID, _ := identity.Claims[deviceClaim].(string)
	if deviceID == "" {
		return sessions.DefaultDevice
	}
	return deviceID
}

func (s *Service) startSession(ctx context.Context, user *users.User, deviceID string) (*Result, error) {
	if deviceID == "" {
		deviceID = sessions.DefaultDevice
	}

	signed, err := s.tokens.Issue(user.ID, token.Claims{deviceClaim: deviceID}, s.tokenTTL)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.startSession] issue token")
	}

	// A failed session write fails the whole request; returning a token whose
	// session was never recorded would leave it unverifiable.
	if err := s.repos.Sessions.Save(ctx, user.ID, deviceID, signed, s.sessionTTL); err != nil {
		return nil, errors.Wrap(err, "[Service.startSession] save session")
	}

	return &Result{Token: signed, User: user}, nil
}
