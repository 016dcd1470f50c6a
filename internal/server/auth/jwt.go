// Package auth implements the authentication primitives of the server:
// bcrypt credential hashing, HS256 token issuance/validation, and bearer
// identity extraction. All state (secret key, cost, lifetimes) is injected
// at construction so tests can run with isolated keys.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mvasilyev/mediavault/internal/common"
)

// Claims is the claim set carried by issued tokens: the standard registered
// claims (subject = account id, expiry) plus the account email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// TokenService mints and validates signed identity tokens. The secret key
// and signing algorithm (HS256) are fixed for the process lifetime; rotating
// the key invalidates all outstanding tokens.
type TokenService struct {
	secretKey  []byte
	defaultTTL time.Duration
}

func NewTokenService(secretKey []byte, defaultTTL time.Duration) *TokenService {
	return &TokenService{secretKey: secretKey, defaultTTL: defaultTTL}
}

// Issue signs a token asserting {sub, email, exp = now + ttl}. A ttl <= 0
// falls back to the configured default.
func (s *TokenService) Issue(subject string, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Validate verifies signature and expiry and returns the claim set.
// Malformed, forged, and expired tokens all yield common.ErrInvalidToken.
// No extra clock-skew leeway is applied beyond jwt/v5 defaults (zero).
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
