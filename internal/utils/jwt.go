package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the access token.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

const tokenIssuer = "jewel-catalog"

// JWTClaims are the claims of an admin access token.
type JWTClaims struct {
	UserID int    `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var (
	jwtMu     sync.RWMutex
	jwtSecret []byte
)

// SetJWTSecret configures the HMAC secret used to sign and validate tokens.
func SetJWTSecret(secret string) {
	jwtMu.Lock()
	jwtSecret = []byte(secret)
	jwtMu.Unlock()
}

func secret() ([]byte, error) {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	if len(jwtSecret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	return jwtSecret, nil
}

// GenerateJWT issues an HS256 token for the given user.
func GenerateJWT(userID int, email, role string, ttl time.Duration) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := JWTClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ValidateJWT parses tokenString and returns its claims when the signature and expiry are valid.
func ValidateJWT(tokenString string) (*JWTClaims, error) {
	key, err := secret()
	if err != nil {
		return nil, err
	}
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
