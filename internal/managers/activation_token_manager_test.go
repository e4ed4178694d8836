package managers

import (
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func newActivationManager(t *testing.T, clock *fakeClock) *ActivationTokenManager {
	t.Helper()
	cm, err := NewCipherManager([]string{newKey(t)})
	require.NoError(t, err)
	return NewActivationTokenManager(cm, 24*time.Hour).WithClock(clock.Now)
}

func TestActivationTokenRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	am := newActivationManager(t, clock)

	subjects := []string{"a@b.com", "", "pipe|in|subject", "ünïcödé@例え.jp", "trailing|"}
	for _, subject := range subjects {
		token, err := am.GenerateToken(subject)
		require.NoError(t, err)

		value, err := am.GetTokenValue(token)
		require.NoError(t, err)
		assert.Equal(t, subject, value)
	}
}

func TestActivationTokenIsURLSafe(t *testing.T) {
	am := newActivationManager(t, &fakeClock{now: time.Now()})

	token, err := am.GenerateToken("someone+tag@example.com")
	require.NoError(t, err)
	assert.Equal(t, token, url.QueryEscape(token))
}

func TestActivationTokenExpiryScenario(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	am := newActivationManager(t, clock)

	token, err := am.GenerateToken("a@b.com")
	require.NoError(t, err)

	clock.now = time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	value, err := am.GetTokenValue(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", value)

	clock.now = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err = am.GetTokenValue(token)
	assert.NoError(t, err, "the window is inclusive")

	clock.now = time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC)
	_, err = am.GetTokenValue(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestActivationTokenExpiresForAnyEpsilon(t *testing.T) {
	issued := time.Date(2024, 3, 10, 12, 30, 15, 0, time.UTC)
	clock := &fakeClock{now: issued}
	am := newActivationManager(t, clock)

	token, err := am.GenerateToken("a@b.com")
	require.NoError(t, err)

	for _, epsilon := range []time.Duration{time.Second, time.Minute, time.Hour, 30 * 24 * time.Hour} {
		clock.now = issued.Add(24*time.Hour + epsilon)
		_, err = am.GetTokenValue(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "epsilon %s", epsilon)
	}
}

func TestActivationTokenUsesUTC(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 1, 0, 0, 0, berlin)}
	am := newActivationManager(t, clock)

	token, err := am.GenerateToken("a@b.com")
	require.NoError(t, err)

	clock.now = time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	_, err = am.GetTokenValue(token)
	assert.NoError(t, err)

	clock.now = time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC)
	_, err = am.GetTokenValue(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestActivationTokenTamperedCharacters(t *testing.T) {
	am := newActivationManager(t, &fakeClock{now: time.Now()})

	token, err := am.GenerateToken("a@b.com")
	require.NoError(t, err)

	for i := range token {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		value, err := am.GetTokenValue(tampered)
		assert.ErrorIs(t, err, ErrInvalidToken, "position %d", i)
		assert.Empty(t, value)
	}
}

func TestActivationTokenTamperedBytes(t *testing.T) {
	am := newActivationManager(t, &fakeClock{now: time.Now()})

	token, err := am.GenerateToken("a@b.com")
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	for i := range raw {
		flipped := append([]byte{}, raw...)
		flipped[i] ^= 0x01

		_, err := am.GetTokenValue(base64.RawURLEncoding.EncodeToString(flipped))
		assert.ErrorIs(t, err, ErrInvalidToken, "byte %d", i)
	}
}

func TestActivationTokenMalformedInput(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cm, err := NewCipherManager([]string{newKey(t)})
	require.NoError(t, err)
	am := NewActivationTokenManager(cm, 24*time.Hour).WithClock(clock.Now)

	noSeparator, err := cm.Encrypt([]byte("a@b.com"))
	require.NoError(t, err)
	badTimestamp, err := cm.Encrypt([]byte("a@b.com|yesterday"))
	require.NoError(t, err)

	inputs := []string{
		"",
		"not base64 !",
		base64.RawURLEncoding.EncodeToString([]byte("plain text")),
		base64.RawURLEncoding.EncodeToString(noSeparator),
		base64.RawURLEncoding.EncodeToString(badTimestamp),
	}
	for _, input := range inputs {
		_, err := am.GetTokenValue(input)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestActivationTokenSurvivesKeyRotation(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	oldKey := newKey(t)

	before, err := NewCipherManager([]string{oldKey})
	require.NoError(t, err)
	token, err := NewActivationTokenManager(before, 24*time.Hour).WithClock(clock.Now).GenerateToken("a@b.com")
	require.NoError(t, err)

	after, err := NewCipherManager([]string{newKey(t), oldKey})
	require.NoError(t, err)
	value, err := NewActivationTokenManager(after, 24*time.Hour).WithClock(clock.Now).GetTokenValue(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", value)
}
