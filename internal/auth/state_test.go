package auth_test

import (
	stderrors "errors"
	"testing"
	"time"

	"docgate/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStateManager(ttl time.Duration) *auth.EncryptedStateManager {
	return auth.NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("hmac-test-key"),
		ttl,
	)
}

func TestStateRoundTrip(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	encoded, err := sm.Encode(&auth.OAuthState{
		Provider:    "github",
		RedirectURL: "/documents",
	})
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := sm.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, "github", decoded.Provider)
	assert.Equal(t, "/documents", decoded.RedirectURL)
	assert.NotEmpty(t, decoded.Nonce)
	assert.Greater(t, decoded.ExpiresAt, decoded.IssuedAt)
}

func TestStateTamperDetected(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	encoded, err := sm.Encode(&auth.OAuthState{Provider: "github"})
	require.NoError(t, err)

	tampered := []byte(encoded)
	tampered[len(tampered)/2] ^= 'x'

	_, err = sm.Decode(string(tampered))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrInvalidState))
}

func TestStateGarbageRejected(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	_, err := sm.Decode("definitely not a state token")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrInvalidState))
}

func TestStateExpired(t *testing.T) {
	sm := testStateManager(10 * time.Minute)

	encoded, err := sm.Encode(&auth.OAuthState{
		Provider:  "github",
		IssuedAt:  time.Now().Add(-time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-30 * time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = sm.Decode(encoded)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrStateExpired))
}

func TestStateWrongKeysRejected(t *testing.T) {
	sm := testStateManager(10 * time.Minute)
	other := auth.NewEncryptedStateManager(
		[]byte("fedcba9876543210fedcba9876543210"),
		[]byte("other-hmac-key"),
		10*time.Minute,
	)

	encoded, err := sm.Encode(&auth.OAuthState{Provider: "github"})
	require.NoError(t, err)

	_, err = other.Decode(encoded)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrInvalidState))
}
