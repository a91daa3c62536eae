package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(42, "alice@example.com", "Alice", secret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "Alice", claims.Name)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(1, "bob@example.com", "", []byte("secret-a"), time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, []byte("secret-b"))
	require.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(1, "bob@example.com", "", secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, secret)
	require.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", []byte("test-secret"))
	require.Error(t, err)
}
