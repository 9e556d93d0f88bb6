package auth

import (
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/users"
)

// ValidateRegistration checks registration input. The returned messages are
// safe to show to the client.
func ValidateRegistration(email, displayName, password string) error {
	if err := users.ValidateEmail(email); err != nil {
		return errors.Wrap(apperrors.ErrValidation, err.Error())
	}
	if strings.TrimSpace(displayName) == "" {
		return errors.Wrap(apperrors.ErrValidation, "display name is required")
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return errors.Wrap(apperrors.ErrValidation, err.Error())
	}
	return nil
}

// ValidateLogin checks login input without revealing anything about stored
// accounts.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.Wrap(apperrors.ErrValidation, "email is required")
	}
	if password == "" {
		return errors.Wrap(apperrors.ErrValidation, "password is required")
	}
	return nil
}
