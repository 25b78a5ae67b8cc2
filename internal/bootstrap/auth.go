package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/tempguard-api/config"
	"github.com/target/tempguard-api/internal/adapters/authroles"
	"github.com/target/tempguard-api/internal/adapters/devauth"
	"github.com/target/tempguard-api/internal/adapters/identityfeed"
	"github.com/target/tempguard-api/internal/adapters/localauth"
	"github.com/target/tempguard-api/internal/adapters/oidc"
	redisadapter "github.com/target/tempguard-api/internal/adapters/redis"
	"github.com/target/tempguard-api/internal/data"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/ports"
	"github.com/target/tempguard-api/internal/service"
)

const sessionKeyPrefix = "tempguard:session:"

// AuthConfig contains configuration for the auth runtime.
type AuthConfig struct {
	Auth        config.AuthConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// AuthRuntime is the assembled authentication stack.
type AuthRuntime struct {
	Sessions *service.SessionManager
	// Identities is nil when the provider cannot administer identities.
	Identities ports.IdentityAdmin
	Profiles   *data.ProfileRepo
	Events     ports.IdentityEventBus
}

// BuildAuth wires the identity provider selected by AUTH_MODE, the Redis session store,
// the profile resolver and the SessionManager. The manager is not started.
func BuildAuth(ctx context.Context, cfg AuthConfig) (*AuthRuntime, error) {
	if cfg.DB == nil {
		return nil, errors.New("auth requires a database")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("auth requires redis for sessions")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	events := buildIdentityEvents(cfg.Auth, cfg.RedisClient, logger)
	provider, identities, err := buildIdentityProvider(ctx, cfg, events, logger)
	if err != nil {
		return nil, err
	}

	profiles := data.NewProfileRepo(cfg.DB)
	resolver, err := service.NewProfileResolver(service.ProfileResolverOptions{
		Profiles:   profiles,
		AdminEmail: cfg.Auth.AdminEmail,
		Roles:      authroles.StaticRoleMapper{AdminGroup: cfg.Auth.AdminGroup},
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile resolver: %w", err)
	}

	sessions, err := service.NewSessionManager(service.SessionManagerOptions{
		Provider: provider,
		Sessions: redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, sessionKeyPrefix),
		Profiles: resolver,
		Events:   events,
		Policy: domainauth.Policy{
			AdminMaxAge: cfg.Auth.Session.AdminMaxAge,
			UserMaxAge:  cfg.Auth.Session.UserMaxAge,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	logger.Info("auth configured",
		"mode", cfg.Auth.Mode,
		"identity_events", cfg.Auth.IdentityEvents,
		"identity_admin", identities != nil,
	)
	return &AuthRuntime{
		Sessions:   sessions,
		Identities: identities,
		Profiles:   profiles,
		Events:     events,
	}, nil
}

//nolint:ireturn // the bus implementation is chosen by configuration.
func buildIdentityEvents(cfg config.AuthConfig, client redis.UniversalClient, logger *slog.Logger) ports.IdentityEventBus {
	if cfg.IdentityEvents == "redis" && client != nil {
		return redisadapter.NewIdentityEvents(redisadapter.IdentityEventsOptions{
			Client: client,
			Logger: logger,
		})
	}
	return identityfeed.New()
}

//nolint:ireturn // the provider implementation is chosen by configuration.
func buildIdentityProvider(
	ctx context.Context,
	cfg AuthConfig,
	events ports.IdentityEventBus,
	logger *slog.Logger,
) (ports.IdentityProvider, ports.IdentityAdmin, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeLocal, "":
		prov, err := localauth.NewProvider(localauth.Config{
			Credentials: data.NewCredentialRepo(cfg.DB),
			Events:      events,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create local identity provider: %w", err)
		}
		return prov, prov, nil

	case config.AuthModeOIDC:
		oauth := cfg.Auth.OAuth
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
			Events:       events,
			Logger:       logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create oidc identity provider: %w", err)
		}
		// User administration reports unsupported for this provider.
		return prov, prov, nil

	case config.AuthModeMock:
		dev := cfg.Auth.DevAuth
		// The dev user is an admin when its email is ADMIN_EMAIL or ADMIN_GROUP is set.
		var groups []string
		if cfg.Auth.AdminGroup != "" {
			groups = []string{cfg.Auth.AdminGroup}
		}
		prov, err := devauth.NewProvider(devauth.Config{
			UserID:   dev.UserID,
			Email:    dev.Email,
			Name:     dev.Name,
			Password: dev.Password,
			Groups:   groups,
			Events:   events,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create dev identity provider: %w", err)
		}
		logger.Warn("AUTH_MODE=mock accepts a single fixed dev user; do not use in production")
		return prov, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}
