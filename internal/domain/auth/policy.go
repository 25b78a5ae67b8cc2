package auth

import "time"

// Policy is the role-dependent session lifetime policy. It is the single
// source of truth for whether a session is still valid.
type Policy struct {
	AdminMaxAge time.Duration
	UserMaxAge  time.Duration
}

// MaxAge returns the maximum session lifetime for role.
func (p Policy) MaxAge(role Role) time.Duration {
	if role == RoleAdmin {
		return p.AdminMaxAge
	}
	return p.UserMaxAge
}

// ExpiresAt returns the earlier of loginAt+MaxAge(role) and the identity expiry (when set).
func (p Policy) ExpiresAt(role Role, loginAt, identityExpiry time.Time) time.Time {
	exp := loginAt.Add(p.MaxAge(role))
	if !identityExpiry.IsZero() && identityExpiry.Before(exp) {
		return identityExpiry
	}
	return exp
}

// Valid reports whether sess is usable at now given the user's current revocation generation.
func (p Policy) Valid(sess Session, currentGeneration int64, now time.Time) bool {
	if sess.ID == "" || sess.UserID == "" {
		return false
	}
	if sess.Generation < currentGeneration {
		return false
	}
	if !now.Before(sess.ExpiresAt) {
		return false
	}
	// A policy tightened after login still applies.
	return now.Before(sess.LoginAt.Add(p.MaxAge(sess.Role)))
}
