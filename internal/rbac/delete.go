package rbac

import "crypto/subtle"

// DeleteGate holds the shared delete-confirmation secret. It is a second factor on
// every destructive call, independent of role.
type DeleteGate struct {
	secret []byte
}

// NewDeleteGate returns a gate for the configured secret.
func NewDeleteGate(secret string) *DeleteGate {
	return &DeleteGate{secret: []byte(secret)}
}

// Verify compares candidate against the secret. An empty candidate or an unconfigured
// gate never matches.
func (g *DeleteGate) Verify(candidate string) bool {
	if g == nil || len(g.secret) == 0 || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare(g.secret, []byte(candidate)) == 1
}
