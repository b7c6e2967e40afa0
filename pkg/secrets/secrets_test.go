package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"greenhouse-assistant/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "GEMINI_API_KEY", EnvKey("gemini-api.key"))
	assert.Equal(t, "JWT_SECRET", EnvKey("JWT_SECRET"))
}

func TestVaultDisabledFallsBackToEnvironment(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "false")
	t.Setenv("GEMINI_API_KEY", "from-env")

	m, err := NewVaultManager(logger.Discard())
	require.NoError(t, err)

	v, err := m.GetSecret(context.Background(), KeyGeminiAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = m.GetSecret(context.Background(), "NOT_SET_ANYWHERE")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(context.Background(), "NOT_SET_ANYWHERE", "fallback"))
}

func TestVaultEnabledRequiresAddress(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "true")
	t.Setenv("VAULT_ADDR", "")

	_, err := NewVaultManager(logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)
}

func TestStaticManager(t *testing.T) {
	s := Static{KeyJWTSecret: "secret", "EMPTY": ""}

	v, err := s.GetSecret(context.Background(), KeyJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	_, err = s.GetSecret(context.Background(), "EMPTY")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	prev := Default()
	SetManager(s)
	defer SetManager(prev)
	assert.Equal(t, "secret", GetSecretWithDefault(context.Background(), KeyJWTSecret, "x"))
}

func TestVaultDocumentIsCachedAndBackedByEnvironment(t *testing.T) {
	var reads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/greenhouse", r.URL.Path)
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))
		reads.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"GEMINI_API_KEY":"from-vault"},` +
			`"metadata":{"created_time":"2025-01-01T00:00:00Z","deletion_time":"","destroyed":false,"version":1}}}`))
	}))
	defer srv.Close()
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("HUGGINGFACE_TOKEN", "")

	m, err := NewVaultManagerWithConfig(VaultConfig{
		Enabled:  true,
		Address:  srv.URL,
		Token:    "root",
		Timeout:  time.Second,
		CacheTTL: time.Hour,
	}, logger.Discard())
	require.NoError(t, err)

	ctx := context.Background()
	v, err := m.GetSecret(ctx, KeyGeminiAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-vault", v)

	v, err = m.GetSecret(ctx, KeyJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	assert.Equal(t, "none", m.GetSecretWithDefault(ctx, KeyHuggingFaceToken, "none"))
	assert.Equal(t, int32(1), reads.Load())
}
