// internal/utils/jwt.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ServiceClaims identify a crawler or operator allowed to push candidates.
type ServiceClaims struct {
	Client string `json:"client"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

const ScopeIngest = "ingest"

var (
	jwtSecret = []byte("your-secret-key-change-in-production")
	jwtIssuer = "scentdb"
)

func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

func SetJWTIssuer(issuer string) {
	jwtIssuer = issuer
}

func GenerateServiceToken(client string, ttlHours int) (string, error) {
	if client == "" {
		return "", errors.New("client name is required")
	}
	now := time.Now()
	claims := ServiceClaims{
		Client: client,
		Scope:  ScopeIngest,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   client,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateServiceToken(tokenString string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.VerifyIssuer(jwtIssuer, true) {
		return nil, errors.New("unexpected token issuer")
	}
	if claims.Scope != ScopeIngest {
		return nil, errors.New("token lacks ingest scope")
	}

	return claims, nil
}
