package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vihking/whatsapp-integration/pkg/env"
)

// JWTSecretKey signs panel tokens. Login is refused while it is empty.
var JWTSecretKey string

var ErrSecretNotConfigured = errors.New("JWT_SECRET_KEY not configured")

func init() {
	JWTSecretKey, _ = env.GetEnvString("JWT_SECRET_KEY")
}

type AdminTokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken creates a token for the panel operator.
func GenerateAdminToken(email string, role string, ttl time.Duration) (string, error) {
	if JWTSecretKey == "" {
		return "", ErrSecretNotConfigured
	}

	now := time.Now()
	claims := AdminTokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(JWTSecretKey))
}

// ValidateAdminToken validates a panel token and returns the claims
func ValidateAdminToken(tokenString string) (*AdminTokenClaims, error) {
	if JWTSecretKey == "" {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(JWTSecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminTokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
