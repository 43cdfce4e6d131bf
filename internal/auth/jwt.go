package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"weekendschool/internal/policy"
)

// Token is a signed access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Claims represents JWT payload.
type Claims struct {
	Role        policy.Role        `json:"role"`
	TeacherRole policy.TeacherRole `json:"teacher_role,omitempty"`
	CourseID    string             `json:"course_id,omitempty"`
	StudentID   string             `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts claims into the policy caller.
func (c Claims) Principal() policy.Principal {
	return policy.Principal{
		UserID:      c.Subject,
		Role:        c.Role,
		TeacherRole: c.TeacherRole,
		CourseID:    c.CourseID,
		StudentID:   c.StudentID,
	}
}

// Issue signs an access token for p.
func Issue(p policy.Principal, issuer, key string, ttl time.Duration) (Token, error) {
	if p.UserID == "" || p.Role == "" {
		return Token{}, errors.New("principal needs user id and role")
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Role:        p.Role,
		TeacherRole: p.TeacherRole,
		CourseID:    p.CourseID,
		StudentID:   p.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}
