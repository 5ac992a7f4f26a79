package security

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, exp, err := Generate(opts, "alice")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	sub, err := Verify(opts, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret-a")), "alice")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("secret-b")), token)
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "alice",
		"iat": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("s")), signed)
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := Verify(DefaultOptions([]byte("s")), "not-a-token")
	assert.True(t, errors.Is(err, errs.ErrPermissionDenied))
}

func TestUnsupportedAlg(t *testing.T) {
	_, _, err := Generate(Options{Secret: []byte("s"), Alg: "RS256"}, "alice")
	assert.Error(t, err)
}
