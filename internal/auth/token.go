package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationTokenTTL bounds how long an emailed verification link stays
// valid. The server-side code provides the second gate: a token that outlives
// a resend no longer matches the stored code even within this window.
const VerificationTokenTTL = 5 * time.Minute

const codeLen = 6

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// VerificationClaims is the payload of a signed email-verification token.
type VerificationClaims struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	Code   string `json:"code"`
	jwt.RegisteredClaims
}

// SignVerificationToken issues an HS256 token binding the email, user and
// current verification code, expiring VerificationTokenTTL after now.
func SignVerificationToken(secret []byte, email, userID, code string, now time.Time) (string, error) {
	claims := VerificationClaims{
		Email:  email,
		UserID: userID,
		Code:   code,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(VerificationTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign verification token: %w", err)
	}
	return signed, nil
}

// ParseVerificationToken decodes and validates a verification token. It fails
// closed: expired, tampered or otherwise malformed tokens all return
// ErrInvalidToken.
func ParseVerificationToken(secret []byte, tokenString string) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" || claims.UserID == "" || claims.Code == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateVerificationCode returns a random 6-character lowercase
// alphanumeric code.
func GenerateVerificationCode() (string, error) {
	buf := make([]byte, codeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
