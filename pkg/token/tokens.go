package token

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// RoleUser is the role embedded in tokens issued through signup/login.
const RoleUser = "user"

// ErrNoSecret signals a missing signing secret. Issuance must fail loudly:
// this is a service misconfiguration, never a client error.
var ErrNoSecret = errors.New("token: signing secret not configured")

// Claims defines the JWT payload carried by bearer tokens.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

// Generate issues a signed HS256 JWT embedding the user identity and role.
func Generate(userID, role, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "crewtrack",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates signature and expiry and extracts claims from a token.
func Parse(token string, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}
