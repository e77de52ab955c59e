package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const devTokenTTL = 30 * 24 * time.Hour

func GenerateToken(secret []byte, userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"sub":     userID,
		"exp":     now.Add(devTokenTTL).Unix(),
		"iat":     now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	data, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	uid, _ := data["user_id"].(string)
	if uid == "" {
		uid, _ = data["sub"].(string)
	}
	if uid == "" {
		return "", fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}
	return uid, nil
}

// HMACVerifier accepts HS256 tokens minted by GenerateToken.
type HMACVerifier struct {
	Secret []byte
}

func (v HMACVerifier) Verify(_ context.Context, token string) (string, error) {
	if len(v.Secret) == 0 {
		return "", fmt.Errorf("%w: hmac secret not configured", ErrInvalidToken)
	}
	return ParseToken(v.Secret, token)
}
