package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/common"
)

// Claims binds the authenticated user's id (as the registered subject) and
// username into the signed credential.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// GenerateToken mints an HS256 token for the given user.
func GenerateToken(userID uuid.UUID, username string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies the signature and expiry and returns the claims.
// Any failure maps to ErrInvalidToken; callers treat that as unauthorized.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
