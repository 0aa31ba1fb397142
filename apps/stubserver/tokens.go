package main

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims ties a token to a user and a session ID, so deleting
// the session can invalidate the token.
type sessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type tokenMinter struct {
	secret []byte
	ttl    time.Duration
}

func newTokenMinter(secret string, ttl time.Duration) *tokenMinter {
	return &tokenMinter{secret: []byte(secret), ttl: ttl}
}

// mint creates a signed session token for a user.
func (m *tokenMinter) mint(userID, sessionID string) (string, error) {
	claims := &sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// validate parses and verifies a session token.
func (m *tokenMinter) validate(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
