package auth

import (
	"strings"

	"github.com/mvasilyev/mediavault/internal/common"
)

const bearerScheme = "Bearer"

// IdentityExtractor resolves a raw Authorization header value into an
// authenticated account id. Every protected operation goes through this
// single chokepoint; no other header or parameter is trusted as identity.
type IdentityExtractor struct {
	tokens *TokenService
}

func NewIdentityExtractor(tokens *TokenService) *IdentityExtractor {
	return &IdentityExtractor{tokens: tokens}
}

// Authenticate extracts the bearer token from the header value, validates
// it, and returns the subject claim. A missing or non-bearer header and any
// signature/expiry failure yield common.ErrInvalidToken; a validly signed
// token without a subject yields common.ErrMissingSubject.
func (e *IdentityExtractor) Authenticate(headerValue string) (string, error) {
	token, ok := stripBearer(headerValue)
	if !ok {
		return "", common.ErrInvalidToken
	}

	claims, err := e.tokens.Validate(token)
	if err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", common.ErrMissingSubject
	}

	return claims.Subject, nil
}

func stripBearer(headerValue string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(headerValue), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
