package rbac

import (
	"context"
	"net/http"

	"github.com/sapients/tracker/internal/shared"
)

// Decision is the outcome of a guard check. The zero value denies.
type Decision int

const (
	// Unauthenticated means no valid session was presented.
	Unauthenticated Decision = iota
	// Forbidden means the session is valid but lacks the right for the module/action.
	Forbidden
	// Allow lets the protected operation run.
	Allow
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Forbidden:
		return "forbidden"
	default:
		return "unauthenticated"
	}
}

// SessionResolver resolves the request's session; nil means anonymous.
type SessionResolver interface {
	Get(ctx context.Context, r *http.Request) (*shared.Session, error)
}

// DecisionObserver is notified of every guard outcome.
type DecisionObserver interface {
	ObserveGuardDecision(module, action, outcome string)
}

// Guard composes session resolution with the permission matrix. It holds no state
// of its own.
type Guard struct {
	sessions SessionResolver
	observer DecisionObserver
}

// NewGuard constructs a Guard. observer may be nil.
func NewGuard(sessions SessionResolver, observer DecisionObserver) *Guard {
	return &Guard{sessions: sessions, observer: observer}
}

// Check authenticates the request, then authorizes the action. Authorization is never
// evaluated for an anonymous caller. Only storage failures return an error.
func (g *Guard) Check(r *http.Request, module Module, action Action) (*shared.Session, Decision, error) {
	sess, err := g.sessions.Get(r.Context(), r)
	if err != nil {
		return nil, Unauthenticated, err
	}
	decision := Authorize(sess, module, action)
	if g.observer != nil {
		g.observer.ObserveGuardDecision(module.String(), string(action), decision.String())
	}
	if decision == Unauthenticated {
		return nil, decision, nil
	}
	return sess, decision, nil
}

// RequireView checks view access to module.
func (g *Guard) RequireView(r *http.Request, module Module) (*shared.Session, Decision, error) {
	return g.Check(r, module, ActionView)
}

// RequireEdit checks edit access to module.
func (g *Guard) RequireEdit(r *http.Request, module Module) (*shared.Session, Decision, error) {
	return g.Check(r, module, ActionEdit)
}

// RequireDelete checks the global delete capability. module is recorded for metrics only.
func (g *Guard) RequireDelete(r *http.Request, module Module) (*shared.Session, Decision, error) {
	return g.Check(r, module, ActionDelete)
}

// Authorize evaluates an already-resolved session. A stored role outside the closed
// set is forbidden everywhere.
func Authorize(sess *shared.Session, module Module, action Action) Decision {
	if sess == nil {
		return Unauthenticated
	}
	role, ok := ParseRole(sess.User.Role)
	if !ok {
		return Forbidden
	}
	if !Allowed(role, module, action) {
		return Forbidden
	}
	return Allow
}

// SessionRole returns the role of a resolved session, or "" when unknown.
func SessionRole(sess *shared.Session) Role {
	if sess == nil {
		return ""
	}
	role, _ := ParseRole(sess.User.Role)
	return role
}
