package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/ports"
	"golang.org/x/sync/singleflight"
)

const adminDisplayName = "Admin UIA"

// ProfileResolverOptions groups dependencies for ProfileResolver.
type ProfileResolverOptions struct {
	Profiles   ports.ProfileStore
	AdminEmail string           // Address that is granted the admin profile on first login.
	Roles      ports.RoleMapper // Optional: provider groups mapping to admin also grant the admin profile.
	Logger     *slog.Logger
}

// ProfileResolver finds the application profile for an identity, creating the admin profile lazily.
type ProfileResolver struct {
	profiles   ports.ProfileStore
	adminEmail string
	roles      ports.RoleMapper
	logger     *slog.Logger
	group      singleflight.Group
}

// NewProfileResolver constructs a new ProfileResolver.
func NewProfileResolver(opts ProfileResolverOptions) (*ProfileResolver, error) {
	if opts.Profiles == nil {
		return nil, errors.New("ProfileStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileResolver{
		profiles:   opts.Profiles,
		adminEmail: strings.TrimSpace(opts.AdminEmail),
		roles:      opts.Roles,
		logger:     logger.With("component", "profile_resolver"),
	}, nil
}

// Resolve returns the profile for id, or nil, nil when the identity has none.
// Concurrent calls for the same identity share one store round trip.
func (r *ProfileResolver) Resolve(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error) {
	if id.UserID == "" {
		return nil, errors.New("identity has no user id")
	}
	v, err, _ := r.group.Do(id.UserID, func() (any, error) {
		return r.resolve(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	p, _ := v.(*domainauth.Profile)
	if p == nil {
		return nil, nil
	}
	out := *p
	out.Permissions = slices.Clone(p.Permissions)
	return &out, nil
}

func (r *ProfileResolver) resolve(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error) {
	p, err := r.profiles.GetProfile(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p != nil {
		return p, nil
	}
	if !r.isAdmin(id) {
		return nil, nil
	}

	for _, matricula := range r.adminMatriculas(id) {
		wrote, err := r.profiles.CreateProfileIfAbsent(ctx, adminProfile(id, matricula))
		if err != nil {
			return nil, fmt.Errorf("create admin profile: %w", err)
		}
		if wrote {
			r.logger.InfoContext(ctx, "created admin profile", "user_id", id.UserID, "matricula", matricula)
		}

		p, err = r.profiles.GetProfile(ctx, id.UserID)
		if err != nil {
			return nil, fmt.Errorf("re-read admin profile: %w", err)
		}
		if p != nil {
			return p, nil
		}
		r.logger.WarnContext(ctx, "admin matricula taken", "user_id", id.UserID, "matricula", matricula)
	}
	return nil, fmt.Errorf("create admin profile for %s: every candidate matricula is taken", id.UserID)
}

// adminMatriculas lists the matriculas to try, in order. Only the configured
// admin email may hold the bare admin matricula; the id-derived one is unique per identity.
func (r *ProfileResolver) adminMatriculas(id domainauth.Identity) []string {
	derived := model.AdminMatricula + "-" + strings.ToLower(id.UserID)
	if r.isAdminEmail(id) {
		return []string{model.AdminMatricula, derived}
	}
	return []string{derived}
}

func (r *ProfileResolver) isAdminEmail(id domainauth.Identity) bool {
	return r.adminEmail != "" && strings.EqualFold(strings.TrimSpace(id.Email), r.adminEmail)
}

func (r *ProfileResolver) isAdmin(id domainauth.Identity) bool {
	if r.isAdminEmail(id) {
		return true
	}
	return r.roles != nil && len(id.Groups) > 0 && r.roles.Map(id.Groups) == domainauth.RoleAdmin
}

func adminProfile(id domainauth.Identity, matricula string) domainauth.Profile {
	return domainauth.Profile{
		ID:          id.UserID,
		DisplayName: adminDisplayName,
		Matricula:   matricula,
		Email:       strings.ToLower(strings.TrimSpace(id.Email)),
		Role:        domainauth.RoleAdmin,
		Permissions: domainauth.AllPermissions(),
	}
}
