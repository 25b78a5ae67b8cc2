package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/target/tempguard-api/config"
	"github.com/target/tempguard-api/internal/adapters/localauth"
	"github.com/target/tempguard-api/internal/data"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/ports"
	"github.com/target/tempguard-api/internal/service"
)

const adminDisplayName = "Administrador"

func requireLocalAuth(cfg *config.AppConfig, command string) error {
	if cfg.Auth.Mode != config.AuthModeLocal {
		return fmt.Errorf("%s manages local credentials and requires AUTH_MODE=local (current: %s)", command, cfg.Auth.Mode)
	}
	return nil
}

func newLocalProvider(db *sql.DB, logger *slog.Logger) (*localauth.Provider, error) {
	return localauth.NewProvider(localauth.Config{
		Credentials: data.NewCredentialRepo(db),
		Logger:      logger,
	})
}

func newSeedAdminCmd(app *adminApp) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the ADMIN_EMAIL credential and its administrator profile",
		Long: `Creates a local credential for ADMIN_EMAIL with a password read from stdin,
then provisions the administrator profile. Running it again for an existing
credential only ensures the profile exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			if err = requireLocalAuth(cfg, "seed-admin"); err != nil {
				return err
			}
			ctx, cancel := app.commandContext(cmd)
			defer cancel()
			return app.withDatabase(ctx, func(ctx context.Context, db *sql.DB) error {
				return seedAdmin(ctx, app, cfg, db)
			})
		},
	}
}

func seedAdmin(ctx context.Context, app *adminApp, cfg *config.AppConfig, db *sql.DB) error {
	creds := data.NewCredentialRepo(db)
	existing, err := creds.GetCredentialByEmail(ctx, cfg.Auth.AdminEmail)
	if err != nil {
		return fmt.Errorf("look up admin credential: %w", err)
	}

	var identity domainauth.Identity
	if existing != nil {
		app.Logger.InfoContext(ctx, "admin credential already exists", "user_id", existing.UserID)
		identity = domainauth.Identity{UserID: existing.UserID, Email: existing.Email, DisplayName: existing.DisplayName}
	} else {
		password, err := readSecret(app.input(), app.Stderr, "Admin password: ")
		if err != nil {
			return err
		}
		provider, err := newLocalProvider(db, app.Logger)
		if err != nil {
			return err
		}
		identity, err = provider.CreateIdentity(ctx, cfg.Auth.AdminEmail, password, adminDisplayName)
		if err != nil {
			if errors.Is(err, ports.ErrIdentityExists) {
				return errors.New("admin credential was created concurrently; run seed-admin again")
			}
			return fmt.Errorf("create admin credential: %w", err)
		}
	}

	resolver, err := service.NewProfileResolver(service.ProfileResolverOptions{
		Profiles:   data.NewProfileRepo(db),
		AdminEmail: cfg.Auth.AdminEmail,
		Logger:     app.Logger,
	})
	if err != nil {
		return err
	}
	profile, err := resolver.Resolve(ctx, identity)
	if err != nil {
		return fmt.Errorf("provision admin profile: %w", err)
	}
	if profile == nil {
		return fmt.Errorf("no profile provisioned for %s", identity.Email)
	}
	return printProfile(app.Stdout, profile)
}

type createUserOptions struct {
	DisplayName string
	Matricula   string
	Permissions []string
}

func newCreateUserCmd(app *adminApp) *cobra.Command {
	var opts createUserOptions
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an ordinary user with the given permissions",
		Long: `Creates a local credential and a user profile. The password is read from stdin.
Permissions are screen paths such as "/", "/registrar" or "/visualizar", or "delete_records".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			if err = requireLocalAuth(cfg, "create-user"); err != nil {
				return err
			}
			req := opts.request()
			req.Password, err = readSecret(app.input(), app.Stderr, "Password: ")
			if err != nil {
				return err
			}
			ctx, cancel := app.commandContext(cmd)
			defer cancel()
			return app.withDatabase(ctx, func(ctx context.Context, db *sql.DB) error {
				provider, err := newLocalProvider(db, app.Logger)
				if err != nil {
					return err
				}
				users, err := service.NewUserAdminService(service.UserAdminServiceOptions{
					Profiles:   data.NewProfileRepo(db),
					Identities: provider,
					Logger:     app.Logger,
				})
				if err != nil {
					return err
				}
				profile, err := users.Create(ctx, req)
				if err != nil {
					return err
				}
				return printProfile(app.Stdout, profile)
			})
		},
	}
	cmd.Flags().StringVar(&opts.DisplayName, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&opts.Matricula, "matricula", "", "Employee number used to sign in (required)")
	cmd.Flags().StringSliceVar(&opts.Permissions, "permission", nil, "Permission to grant; repeat or comma-separate")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("matricula")
	return cmd
}

func (o createUserOptions) request() model.CreateUserRequest {
	perms := make([]domainauth.Permission, 0, len(o.Permissions))
	for _, p := range o.Permissions {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, domainauth.Permission(p))
		}
	}
	return model.CreateUserRequest{
		DisplayName: o.DisplayName,
		Matricula:   o.Matricula,
		Permissions: perms,
	}
}

func printProfile(out io.Writer, p *domainauth.Profile) error {
	perms := make([]string, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = string(perm)
	}
	_, err := fmt.Fprintf(out, "id: %s\nname: %s\nmatricula: %s\nemail: %s\nrole: %s\npermissions: %s\n",
		p.ID, p.DisplayName, p.Matricula, p.Email, p.Role, strings.Join(perms, ", "))
	return err
}
