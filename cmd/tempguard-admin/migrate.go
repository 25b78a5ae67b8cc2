package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/target/tempguard-api/internal/bootstrap"
	"github.com/target/tempguard-api/internal/migrate"
)

func newMigrateCmd(app *adminApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := app.commandContext(cmd)
			defer cancel()
			return app.withDatabase(ctx, func(ctx context.Context, db *sql.DB) error {
				if err := bootstrap.RunMigrations(ctx, db, app.Logger); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				app.Logger.Info("migrations completed successfully")
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List embedded migrations and whether each has been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := app.commandContext(cmd)
			defer cancel()
			return app.withDatabase(ctx, func(ctx context.Context, db *sql.DB) error {
				statuses, err := migrate.List(ctx, db)
				if err != nil {
					return fmt.Errorf("list migrations: %w", err)
				}
				return printMigrationStatus(cmd.OutOrStdout(), statuses)
			})
		},
	})
	return cmd
}

func printMigrationStatus(out io.Writer, statuses []migrate.Status) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "VERSION\tAPPLIED"); err != nil {
		return err
	}
	for _, s := range statuses {
		applied := "no"
		if s.Applied {
			applied = "yes"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", s.Version, applied); err != nil {
			return err
		}
	}
	return tw.Flush()
}
