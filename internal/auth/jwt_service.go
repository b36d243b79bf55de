package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "accountd/internal/errors"
)

const (
	// MaxTokenAge is the maximum accepted age of a session token, measured
	// from its issued-at claim. It matches the session cookie lifetime.
	MaxTokenAge = 24 * time.Hour
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "authToken"
)

// Claims represents session token claims. Tokens encode only the user
// identity; validity additionally requires membership in the user's stored
// token set, which is checked by the session middleware.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies session tokens.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret)}
}

// Issue produces a signed session token for the user.
func (s *JWTService) Issue(userID uint) (string, error) {
	if len(s.secret) == 0 {
		return "", apperrors.ErrSigningUnavailable
	}

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the signature and age of a session token and returns its
// claims. The signature alone proves origin, not current validity; callers
// still have to cross-check the token against the user's active set.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.IssuedAt == nil || time.Since(claims.IssuedAt.Time) > MaxTokenAge {
		return nil, fmt.Errorf("%w: token too old", apperrors.ErrInvalidToken)
	}

	return claims, nil
}
