//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"
	"unicode/utf8"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	apperrors "github.com/target/tempguard-api/internal/errors"
)

const (
	// LocalUserDomain is the synthetic email domain for users created by an administrator.
	LocalUserDomain = "local.user"

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6

	// AdminMatricula is held by the configured administrator's profile.
	AdminMatricula = "admin"

	maxMatriculaLen = 64
)

// IsReservedMatricula reports whether m is kept for synthesised admin profiles.
func IsReservedMatricula(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	return m == AdminMatricula || strings.HasPrefix(m, AdminMatricula+"-")
}

// LocalUserEmail returns the login email for a matricula.
func LocalUserEmail(matricula string) string {
	return strings.ToLower(strings.TrimSpace(matricula)) + "@" + LocalUserDomain
}

// LoginEmail maps a login handle to an email: emails pass through, anything else is a matricula.
func LoginEmail(login string) string {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return strings.ToLower(login)
	}
	return LocalUserEmail(login)
}

// CreateUserRequest represents parameters to create an ordinary user.
type CreateUserRequest struct {
	DisplayName string                  `json:"display_name"`
	Matricula   string                  `json:"matricula"`
	Password    string                  `json:"password"`
	Permissions []domainauth.Permission `json:"permissions"`
}

// Validate validates CreateUserRequest and de-duplicates permissions.
func (r *CreateUserRequest) Validate() error {
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.Matricula = strings.TrimSpace(r.Matricula)

	if r.DisplayName == "" {
		return apperrors.ValidationField("display_name", "display_name is required")
	}
	if utf8.RuneCountInString(r.DisplayName) > maxTextFieldLen {
		return apperrors.ValidationField("display_name", "display_name cannot exceed 200 characters")
	}
	if r.Matricula == "" {
		return apperrors.ValidationField("matricula", "matricula is required")
	}
	if len(r.Matricula) > maxMatriculaLen || strings.ContainsAny(r.Matricula, "@ \t") {
		return apperrors.ValidationField("matricula", "matricula must be a single token without '@'")
	}
	if IsReservedMatricula(r.Matricula) {
		return apperrors.ValidationField("matricula", "matricula is reserved")
	}
	if r.Password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return apperrors.ValidationField("password", "password must have at least 6 characters")
	}
	if len(r.Permissions) == 0 {
		return apperrors.ValidationField("permissions", "select at least one permission")
	}

	seen := make(map[domainauth.Permission]bool, len(r.Permissions))
	perms := make([]domainauth.Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if !domainauth.IsKnownPermission(p) {
			return apperrors.ValidationField("permissions", "unknown permission "+string(p))
		}
		if !seen[p] {
			seen[p] = true
			perms = append(perms, p)
		}
	}
	r.Permissions = perms
	return nil
}

// Email returns the synthetic login email for the new user.
func (r *CreateUserRequest) Email() string { return LocalUserEmail(r.Matricula) }
