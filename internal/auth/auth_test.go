package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerRoundTrip(t *testing.T) {
	issuer := NewIssuer("s3cret", time.Hour)

	token, err := issuer.Generate(7, "Rina", "EMPLOYEE")
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "Rina", claims.Name)
	assert.Equal(t, "EMPLOYEE", claims.Role)
}

func TestIssuerRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := NewIssuer("s3cret", time.Hour)
	other := NewIssuer("other", time.Hour)

	token, err := other.Generate(1, "x", "ADMIN")
	require.NoError(t, err)
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewIssuer("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err = expired.Generate(1, "x", "ADMIN")
	require.NoError(t, err)
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "Passw0rd!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
