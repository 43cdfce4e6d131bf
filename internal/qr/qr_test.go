package qr

import (
	"bytes"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekendschool/internal/apperr"
)

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec("qr-secret", "weekendschool")
	require.NoError(t, err)

	payload, err := c.Encode("stu-42")
	require.NoError(t, err)

	id, err := c.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "stu-42", id)
}

func TestCodecRejects(t *testing.T) {
	c, err := NewCodec("qr-secret", "weekendschool")
	require.NoError(t, err)
	other, err := NewCodec("another-secret", "weekendschool")
	require.NoError(t, err)
	forged, err := other.Encode("stu-42")
	require.NoError(t, err)

	wrongKind, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind:             "access",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "weekendschool", Subject: "stu-42"},
	}).SignedString([]byte("qr-secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: "  "},
		{name: "garbage", payload: "not-a-token"},
		{name: "forged signature", payload: forged},
		{name: "wrong kind", payload: wrongKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.payload)
			assert.ErrorIs(t, err, apperr.ErrInvalidState)
		})
	}
}

func TestNewCodecRequiresKey(t *testing.T) {
	_, err := NewCodec("", "x")
	assert.Error(t, err)
}

func TestPNG(t *testing.T) {
	img, err := PNG("payload", 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
}
