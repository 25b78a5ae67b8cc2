package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/target/tempguard-api/internal/bootstrap"
)

var errAborted = errors.New("aborted by user")

// withDatabase opens the configured database, runs fn and closes the pool.
func (a *adminApp) withDatabase(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: a.Logger})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			a.Logger.Warn("db close failed", "error", closeErr)
		}
	}()
	return fn(ctx, db)
}

// confirmAction asks for an explicit "y" before a destructive action unless yes is set.
func confirmAction(in *bufio.Reader, out io.Writer, warning string, yes bool) error {
	if yes {
		return nil
	}
	if _, err := fmt.Fprintf(out, "%s\nContinue? [y/N]: ", warning); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

// readSecret reads a single line from in, printing prompt first.
func readSecret(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", fmt.Errorf("print prompt: %w", err)
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("empty input")
	}
	return secret, nil
}
