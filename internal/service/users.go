package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/tempguard-api/internal/core"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
	apperrors "github.com/target/tempguard-api/internal/errors"
	"github.com/target/tempguard-api/internal/ports"
	"golang.org/x/sync/errgroup"
)

// SessionRevoker invalidates every session of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// UserAdminServiceOptions groups dependencies for UserAdminService.
type UserAdminServiceOptions struct {
	Profiles   core.ProfileRepository // Required
	Identities ports.IdentityAdmin    // Optional: nil means the provider cannot administer identities.
	Sessions   SessionRevoker         // Optional
	Sanitizer  *model.TextSanitizer
	Logger     *slog.Logger
}

// UserAdminService lists, creates and deletes ordinary users.
type UserAdminService struct {
	profiles   core.ProfileRepository
	identities ports.IdentityAdmin
	sessions   SessionRevoker
	sanitizer  *model.TextSanitizer
	logger     *slog.Logger
}

// NewUserAdminService constructs a new UserAdminService.
func NewUserAdminService(opts UserAdminServiceOptions) (*UserAdminService, error) {
	if opts.Profiles == nil {
		return nil, errors.New("ProfileRepository is required")
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = model.NewTextSanitizer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &UserAdminService{
		profiles:   opts.Profiles,
		identities: opts.Identities,
		sessions:   opts.Sessions,
		sanitizer:  opts.Sanitizer,
		logger:     opts.Logger.With("component", "user_admin_service"),
	}, nil
}

// List returns non-admin profiles ordered by display name.
func (s *UserAdminService) List(ctx context.Context) ([]*domainauth.Profile, error) {
	return s.profiles.ListProfiles(ctx, core.ProfileListOptions{ExcludeRoles: []domainauth.Role{domainauth.RoleAdmin}})
}

// Create creates the identity and then the profile. When the profile cannot be written the
// identity is deleted again, so both exist or neither does.
func (s *UserAdminService) Create(ctx context.Context, req model.CreateUserRequest) (*domainauth.Profile, error) {
	req.DisplayName = s.sanitizer.Clean(req.DisplayName)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.identities == nil {
		return nil, unsupportedIdentityAdmin()
	}

	identity, err := s.identities.CreateIdentity(ctx, req.Email(), req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrIdentityExists):
			return nil, apperrors.Conflict("matricula already exists")
		case errors.Is(err, ports.ErrIdentityAdminUnsupported):
			return nil, unsupportedIdentityAdmin()
		case apperrors.IsValidation(err):
			return nil, err
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	profile, err := s.profiles.CreateProfile(ctx, domainauth.Profile{
		ID:          identity.UserID,
		DisplayName: req.DisplayName,
		Matricula:   req.Matricula,
		Email:       req.Email(),
		Role:        domainauth.RoleUser,
		Permissions: req.Permissions,
	})
	if err != nil {
		if delErr := s.identities.DeleteIdentity(context.WithoutCancel(ctx), identity.UserID); delErr != nil {
			s.logger.ErrorContext(ctx, "rollback identity after profile failure", "user_id", identity.UserID, "error", delErr)
			err = errors.Join(err, delErr)
		}
		if apperrors.IsConflict(err) {
			return nil, apperrors.Conflict("matricula already exists")
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.logger.InfoContext(ctx, "created user", "user_id", profile.ID, "matricula", profile.Matricula)
	return profile, nil
}

// Delete removes the identity of userID, then its profile and sessions.
// actorID is the administrator performing the deletion. Unknown ids are not an error.
func (s *UserAdminService) Delete(ctx context.Context, actorID, userID string) error {
	if userID == "" {
		return apperrors.ValidationField("id", "id is required")
	}
	if userID == actorID {
		return apperrors.Forbidden("administrators cannot delete their own account")
	}
	if s.identities == nil {
		return unsupportedIdentityAdmin()
	}

	target, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if target.IsAdmin() {
		return apperrors.Forbidden("admin profiles cannot be deleted")
	}

	err = s.identities.DeleteIdentity(ctx, userID)
	if errors.Is(err, ports.ErrIdentityAdminUnsupported) {
		return unsupportedIdentityAdmin()
	}
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.profiles.DeleteProfile(gctx, userID); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
	if s.sessions != nil {
		g.Go(func() error {
			if err := s.sessions.RevokeUser(gctx, userID); err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "deleted user", "user_id", userID, "actor", actorID)
	return nil
}

func unsupportedIdentityAdmin() error {
	return apperrors.Wrap(ports.ErrIdentityAdminUnsupported, apperrors.ErrCodeUnsupported,
		"user administration is not available with the configured identity provider")
}
