package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/listkeeper/listkeeper/internal/config"
)

func TestGetAuthSecretExplicitValue(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("AUTH_SECRET", "configured-secret")

	require.Equal(t, "configured-secret", config.New().GetAuthSecret())
}

func TestGetAuthSecretDevFallback(t *testing.T) {
	t.Setenv("ENV", "DEV")
	t.Setenv("AUTH_SECRET", "")

	require.Equal(t, "dev-only-secret", config.New().GetAuthSecret())
}

func TestGetAuthSecretEmptyOutsideDev(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	for _, env := range []string{"PROD", "STAGING", "TEST"} {
		t.Setenv("ENV", env)
		require.Empty(t, config.New().GetAuthSecret(),
			"an unset secret in %s must not fall back to the dev value", env)
	}
}
