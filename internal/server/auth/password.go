package auth

import "golang.org/x/crypto/bcrypt"

// CredentialHasher produces and checks salted bcrypt digests. The cost
// factor is fixed at construction and shared process-wide; bcrypt salts
// every call, so hashing the same plaintext twice yields distinct digests.
type CredentialHasher struct {
	cost int
}

func NewCredentialHasher(cost int) *CredentialHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialHasher{cost: cost}
}

// Hash returns the bcrypt digest of plaintext.
func (h *CredentialHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the digest. A malformed digest
// is treated as a mismatch, not an error.
func (h *CredentialHasher) Verify(plaintext string, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
