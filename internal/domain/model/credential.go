//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// Credential is a locally managed sign-in secret.
type Credential struct {
	UserID       string    `db:"user_id"`
	Email        string    `db:"email"`
	DisplayName  string    `db:"display_name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
