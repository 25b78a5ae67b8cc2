package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/tempguard-api/internal/core"
	"github.com/target/tempguard-api/internal/data/database"
	"github.com/target/tempguard-api/internal/data/pgxutil"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	apperrors "github.com/target/tempguard-api/internal/errors"
)

var profileColumns = []string{"id", "display_name", "matricula", "email", "role", "permissions", "created_at"}

type profileRow struct {
	ID          string    `db:"id"`
	DisplayName string    `db:"display_name"`
	Matricula   string    `db:"matricula"`
	Email       string    `db:"email"`
	Role        string    `db:"role"`
	Permissions []string  `db:"permissions"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r profileRow) toDomain() *domainauth.Profile {
	perms := make([]domainauth.Permission, len(r.Permissions))
	for i, p := range r.Permissions {
		perms[i] = domainauth.Permission(p)
	}
	return &domainauth.Profile{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Matricula:   r.Matricula,
		Email:       r.Email,
		Role:        domainauth.Role(r.Role),
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
	}
}

func permissionStrings(perms []domainauth.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// ProfileRepo provides database operations for user profiles.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

var _ core.ProfileRepository = (*ProfileRepo)(nil)

// GetProfile retrieves a profile by identity id. It returns nil, nil when absent.
func (r *ProfileRepo) GetProfile(ctx context.Context, id string) (*domainauth.Profile, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions("profiles",
		database.WithColumns(profileColumns...),
		database.WithCondition(database.WhereCond("id", database.Equal, id)),
	))

	var row profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get profile: %w", err))
	}
	return row.toDomain(), nil
}

// CreateProfileIfAbsent inserts p unless its id or matricula is taken. It reports whether a row was written.
func (r *ProfileRepo) CreateProfileIfAbsent(ctx context.Context, p domainauth.Profile) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name, matricula, email, role, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING`,
		p.ID, p.DisplayName, p.Matricula, p.Email, string(p.Role), permissionStrings(p.Permissions), r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("upsert profile: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CreateProfile inserts p. A taken id or matricula is a conflict.
func (r *ProfileRepo) CreateProfile(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error) {
	var row profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO profiles (id, display_name, matricula, email, role, permissions, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, display_name, matricula, email, role, permissions, created_at`,
			p.ID, p.DisplayName, p.Matricula, p.Email, string(p.Role), permissionStrings(p.Permissions), r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row.toDomain(), nil
}

// ListProfiles returns profiles ordered by display name, skipping opts.ExcludeRoles.
func (r *ProfileRepo) ListProfiles(ctx context.Context, opts core.ProfileListOptions) ([]*domainauth.Profile, error) {
	listOpts := []database.ListQueryOption{
		database.WithColumns(profileColumns...),
		database.WithOrderBy("display_name", "ASC"),
		database.WithOrderBy("id", "ASC"),
	}
	if len(opts.ExcludeRoles) > 0 {
		roles := make([]string, len(opts.ExcludeRoles))
		for i, role := range opts.ExcludeRoles {
			roles[i] = string(role)
		}
		listOpts = append(listOpts, database.WithCondition(database.WhereCond("role", database.NotIn, roles)))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("profiles", listOpts...))

	var out []profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list profiles: %w", err))
	}
	res := make([]*domainauth.Profile, len(out))
	for i := range out {
		res[i] = out[i].toDomain()
	}
	return res, nil
}

// DeleteProfile removes a profile. It reports false when the id was unknown.
func (r *ProfileRepo) DeleteProfile(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("delete profile: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
