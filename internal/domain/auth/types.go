package auth

// Package auth contains domain-level types for authentication, profiles and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// Permission is a route tag granting access to one area of the application.
type Permission string

const (
	PermRegister      Permission = "/"
	PermRecordsForm   Permission = "/registrar"
	PermRecordsView   Permission = "/visualizar"
	PermCharts        Permission = "/graficos"
	PermUsers         Permission = "/usuarios"
	PermSettings      Permission = "/configuracoes"
	PermDeleteRecords Permission = "delete_records"
)

// AllPermissions lists every permission tag in display order. The admin profile carries all of them.
func AllPermissions() []Permission {
	return []Permission{
		PermRegister,
		PermRecordsForm,
		PermRecordsView,
		PermCharts,
		PermUsers,
		PermSettings,
		PermDeleteRecords,
	}
}

// IsKnownPermission reports whether p is one of AllPermissions.
func IsKnownPermission(p Permission) bool {
	return slices.Contains(AllPermissions(), p)
}

// Identity represents the authenticated principal returned by an identity provider.
// Adapters map provider-specific claims into this shape; the application never mutates it.
type Identity struct {
	UserID      string // stable user identifier (credential id or OIDC sub)
	Email       string
	DisplayName string
	Groups      []string
	ExpiresAt   time.Time // absolute expiry from the provider; zero means none
}

// Profile is the application-owned record of a user's role and permissions.
type Profile struct {
	ID          string       `json:"id"           db:"id"`
	DisplayName string       `json:"display_name" db:"display_name"`
	Matricula   string       `json:"matricula"    db:"matricula"`
	Email       string       `json:"email"        db:"email"`
	Role        Role         `json:"role"         db:"role"`
	Permissions []Permission `json:"permissions"  db:"permissions"`
	CreatedAt   time.Time    `json:"created_at"   db:"created_at"`
}

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

// HasPermission reports whether the profile carries the given tag.
func (p *Profile) HasPermission(perm Permission) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Permissions, perm)
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier.
type Session struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Email       string       `json:"email"`
	DisplayName string       `json:"display_name"`
	Matricula   string       `json:"matricula"`
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
	Generation  int64        `json:"generation"`
	LoginAt     time.Time    `json:"login_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// IsAdmin returns true if the session role is admin.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// HasPermission reports whether the session carries the given tag.
func (s Session) HasPermission(perm Permission) bool {
	return slices.Contains(s.Permissions, perm)
}

// Profile rebuilds the profile snapshot captured at login.
func (s Session) Profile() *Profile {
	return &Profile{
		ID:          s.UserID,
		DisplayName: s.DisplayName,
		Matricula:   s.Matricula,
		Email:       s.Email,
		Role:        s.Role,
		Permissions: slices.Clone(s.Permissions),
	}
}

// Credentials are what a user types into the login form.
type Credentials struct {
	Login    string // email or matricula
	Password string
}

// IdentityEventKind enumerates identity stream notifications.
type IdentityEventKind string

const (
	IdentitySignedIn  IdentityEventKind = "signed_in"
	IdentitySignedOut IdentityEventKind = "signed_out"
	IdentityDeleted   IdentityEventKind = "deleted"
)

// IdentityEvent is published by identity providers when an identity changes.
type IdentityEvent struct {
	Kind      IdentityEventKind `json:"kind"`
	UserID    string            `json:"user_id"`
	SessionID string            `json:"session_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	At        time.Time         `json:"at"`
}

// DefaultRedirect returns the landing screen for a role.
func DefaultRedirect(role Role) string {
	if role == RoleAdmin {
		return "/admin"
	}
	return "/"
}

// EntryPath is where unauthenticated users are sent.
const EntryPath = "/login"
