package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/tempguard-api/internal/core"
	"github.com/target/tempguard-api/internal/data/pgxutil"
	"github.com/target/tempguard-api/internal/domain/model"
	apperrors "github.com/target/tempguard-api/internal/errors"
)

// CredentialRepo stores password hashes for the local identity provider.
type CredentialRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(db *sql.DB) *CredentialRepo {
	return &CredentialRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

var _ core.CredentialRepository = (*CredentialRepo)(nil)

// CreateCredential inserts c. A duplicate email maps to a conflict on field "email".
func (r *CredentialRepo) CreateCredential(ctx context.Context, c model.Credential) error {
	if c.UserID == "" {
		c.UserID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO credentials (user_id, email, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.UserID, strings.ToLower(strings.TrimSpace(c.Email)), c.DisplayName, c.PasswordHash, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// GetCredentialByEmail returns nil, nil when no credential exists for email.
func (r *CredentialRepo) GetCredentialByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var out model.Credential
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT user_id::text AS user_id, email, display_name, password_hash, created_at
			FROM credentials WHERE email = $1`,
			strings.ToLower(strings.TrimSpace(email)),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Credential])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get credential: %w", err))
	}
	return &out, nil
}

// DeleteCredential removes the credential for userID. Unknown ids report false.
func (r *CredentialRepo) DeleteCredential(ctx context.Context, userID string) (bool, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return false, nil
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("delete credential: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
