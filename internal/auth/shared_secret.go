package auth

import (
	"crypto/sha256"
	"crypto/subtle"
)

// SharedSecret guards routes called by trusted systems, such as the host
// admin and the cron scheduler
type SharedSecret struct {
	digest [32]byte
	set    bool
}

func NewSharedSecret(secret string) SharedSecret {
	if secret == "" {
		return SharedSecret{}
	}
	return SharedSecret{digest: sha256.Sum256([]byte(secret)), set: true}
}

// Matches compares in constant time. An unset secret matches nothing.
func (s SharedSecret) Matches(provided string) bool {
	if !s.set || provided == "" {
		return false
	}
	got := sha256.Sum256([]byte(provided))
	return subtle.ConstantTimeCompare(s.digest[:], got[:]) == 1
}
