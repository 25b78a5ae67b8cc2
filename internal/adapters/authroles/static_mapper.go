package authroles

import (
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
)

// StaticRoleMapper maps provider groups to application roles by exact group name.
// Members of AdminGroup are admins; everyone else is a user.
type StaticRoleMapper struct {
	AdminGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	if m.AdminGroup == "" {
		return domainauth.RoleUser
	}
	for _, g := range groups {
		if g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	return domainauth.RoleUser
}
