// Package qr encodes and verifies the personal QR payload printed for each
// student. Payloads are HS256-signed tokens whose subject is the student id.
package qr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/skip2/go-qrcode"

	"weekendschool/internal/apperr"
)

const kindStudent = "student-qr"

type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Codec signs and verifies student payloads.
type Codec struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewCodec creates a codec. key must not be empty.
func NewCodec(key, issuer string) (*Codec, error) {
	if key == "" {
		return nil, errors.New("qr signing key required")
	}
	return &Codec{key: []byte(key), issuer: issuer, now: time.Now}, nil
}

// Encode returns the payload for studentID.
func (c *Codec) Encode(studentID string) (string, error) {
	if studentID == "" {
		return "", errors.New("student id required")
	}
	cl := claims{
		Kind: kindStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   c.issuer,
			Subject:  studentID,
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.key)
}

// Decode verifies payload and returns the student id it is bound to. Any
// malformed or forged payload yields apperr.ErrInvalidState.
func (c *Codec) Decode(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", fmt.Errorf("%w: empty qr payload", apperr.ErrInvalidState)
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	var cl claims
	tok, err := jwt.ParseWithClaims(payload, &cl, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: malformed qr payload", apperr.ErrInvalidState)
	}
	if cl.Kind != kindStudent || cl.Subject == "" {
		return "", fmt.Errorf("%w: qr payload is not a student code", apperr.ErrInvalidState)
	}
	return cl.Subject, nil
}

// PNG renders payload as a QR code image of size x size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
