package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeRedeem(t *testing.T) {
	s := NewCodeStore(time.Minute)
	code := s.Issue("ana@example.com", PurposeRecover)

	subject, err := s.Redeem(code, PurposeRecover)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", subject)

	// one-time: second redemption fails
	_, err = s.Redeem(code, PurposeRecover)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestCodePurposeMismatch(t *testing.T) {
	s := NewCodeStore(time.Minute)
	code := s.Issue("rita", PurposeVerify)

	_, err := s.Redeem(code, PurposeRecover)
	assert.ErrorIs(t, err, ErrCodeExpired)

	// still redeemable for the right purpose
	subject, err := s.Redeem(code, PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, "rita", subject)
}

func TestCodeExpiry(t *testing.T) {
	s := NewCodeStore(20 * time.Millisecond)
	code := s.Issue("rita", PurposeRecover)

	time.Sleep(60 * time.Millisecond)

	_, err := s.Redeem(code, PurposeRecover)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestCodeExpiryIdempotent(t *testing.T) {
	s := NewCodeStore(20 * time.Millisecond)
	code := s.Issue("rita", PurposeRecover)

	// Delete the entry out from under the timer, then let the timer fire.
	_, err := s.Redeem(code, PurposeRecover)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)

	// The late timer deletion must not have resurrected or broken anything.
	_, err = s.Redeem(code, PurposeRecover)
	assert.ErrorIs(t, err, ErrCodeExpired)

	_, err = s.Peek(code, PurposeRecover)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestCodePeekDoesNotConsume(t *testing.T) {
	s := NewCodeStore(time.Minute)
	code := s.Issue("rita", PurposeVerify)

	subject, err := s.Peek(code, PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, "rita", subject)

	subject, err = s.Redeem(code, PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, "rita", subject)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordBadHash(t *testing.T) {
	_, err := VerifyPassword("whatever", "not-an-encoded-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestTokenRoundTrip(t *testing.T) {
	Init()
	token, err := CreateToken("user-123")
	require.NoError(t, err)

	sub, err := VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)

	_, err = VerifyToken(token + "tampered")
	assert.Error(t, err)
}
