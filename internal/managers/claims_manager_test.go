package managers

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimsRoundTrip(t *testing.T) {
	cm := NewClaimsManager("server-secret", 30*time.Minute, 2*time.Minute)

	input := map[string]interface{}{"user_id": "42", "email": "new@example.com"}
	token, err := cm.EncodeClaims(input, 0)
	require.NoError(t, err)

	claims, err := cm.DecodeClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims["user_id"])
	assert.Equal(t, "new@example.com", claims["email"])
	assert.Contains(t, claims, "exp")
	assert.NotContains(t, input, "exp", "the caller's map is not modified")
}

func TestClaimsDefaultTTL(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cm := NewClaimsManager("server-secret", 30*time.Minute, 0).WithClock(func() time.Time { return issued })

	token, err := cm.EncodeClaims(map[string]interface{}{}, 0)
	require.NoError(t, err)

	claims, err := cm.DecodeClaims(token)
	require.NoError(t, err)
	assert.EqualValues(t, issued.Add(30*time.Minute).Unix(), claims["exp"])
}

func TestClaimsExpiryWithLeeway(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	cm := NewClaimsManager("server-secret", 30*time.Minute, 2*time.Minute).WithClock(func() time.Time { return now })

	token, err := cm.EncodeClaims(map[string]interface{}{"user_id": "42"}, 10*time.Minute)
	require.NoError(t, err)

	now = issued.Add(11 * time.Minute)
	_, err = cm.DecodeClaims(token)
	assert.NoError(t, err, "inside the leeway")

	now = issued.Add(13 * time.Minute)
	_, err = cm.DecodeClaims(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestClaimsWrongSecret(t *testing.T) {
	token, err := NewClaimsManager("right", time.Minute, 0).EncodeClaims(map[string]interface{}{"a": "b"}, 0)
	require.NoError(t, err)

	_, err = NewClaimsManager("wrong", time.Minute, 0).DecodeClaims(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestClaimsTamperedPayload(t *testing.T) {
	cm := NewClaimsManager("server-secret", time.Minute, 0)
	token, err := cm.EncodeClaims(map[string]interface{}{"user_id": "42"}, 0)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged, err := NewClaimsManager("attacker", time.Minute, 0).EncodeClaims(map[string]interface{}{"user_id": "1"}, 0)
	require.NoError(t, err)
	forgedParts := strings.Split(forged, ".")

	_, err = cm.DecodeClaims(parts[0] + "." + forgedParts[1] + "." + parts[2])
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestClaimsRejectsOtherAlgorithms(t *testing.T) {
	cm := NewClaimsManager("server-secret", time.Minute, 0)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = cm.DecodeClaims(none)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	_, err = cm.DecodeClaims(hs512)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestClaimsRequireExpiry(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "42"}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	_, err = NewClaimsManager("server-secret", time.Minute, 0).DecodeClaims(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestClaimsGarbage(t *testing.T) {
	_, err := NewClaimsManager("server-secret", time.Minute, 0).DecodeClaims("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
