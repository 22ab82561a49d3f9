package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bandhan-service/internal/config"
)

func testHasher() *Hasher {
	return NewHasher(&config.Config{
		Hashing: config.HashingConfig{
			Argon2MemoryCost:   8 * 1024,
			Argon2TimeCost:     1,
			Argon2Parallelism:  1,
			PepperRotationDays: 30,
			PhoneLookupKey:     "test-phone-lookup-key",
		},
	})
}

func TestHashPhoneIsDeterministic(t *testing.T) {
	h := testHasher()

	first := h.HashPhone("+919876543210")
	second := h.HashPhone("+919876543210")
	other := h.HashPhone("+919876543211")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.NotContains(t, first, "+91", "lookup hash must not leak the number")
}

func TestHashPhoneDependsOnLookupKey(t *testing.T) {
	a := testHasher()
	b := NewHasher(&config.Config{
		Hashing: config.HashingConfig{
			Argon2MemoryCost:  8 * 1024,
			Argon2TimeCost:    1,
			Argon2Parallelism: 1,
			PhoneLookupKey:    "another-key",
		},
	})

	assert.NotEqual(t, a.HashPhone("+919876543210"), b.HashPhone("+919876543210"))
}

func TestHashOTPRoundTrip(t *testing.T) {
	h := testHasher()

	result, err := h.HashOTP("482913")
	require.NoError(t, err)
	require.NotEmpty(t, result.Hash)
	require.NotEmpty(t, result.Salt)
	assert.Equal(t, "argon2id-v1", result.Algorithm)

	ok, err := h.VerifyOTP("482913", result)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyOTP("482914", result)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashOTPProducesUniqueSalts(t *testing.T) {
	h := testHasher()

	first, err := h.HashOTP("482913")
	require.NoError(t, err)
	second, err := h.HashOTP("482913")
	require.NoError(t, err)

	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestVerifyOTPAfterPepperRotation(t *testing.T) {
	h := testHasher()

	result, err := h.HashOTP("482913")
	require.NoError(t, err)

	// A rotation must not invalidate OTPs hashed under the old pepper.
	h.rotatePepper()

	ok, err := h.VerifyOTP("482913", result)
	require.NoError(t, err)
	assert.True(t, ok)
}
