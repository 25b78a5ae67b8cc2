package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/tempguard-api/config"
	"github.com/target/tempguard-api/internal/data"
	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/service"
)

type maintenanceOptions struct {
	Confirmation string
	Yes          bool
}

func newMaintenanceService(cfg *config.AppConfig, db *sql.DB, logger *slog.Logger) (*service.MaintenanceService, error) {
	loc, err := time.LoadLocation(cfg.FacilityTimezone)
	if err != nil {
		return nil, fmt.Errorf("load facility timezone: %w", err)
	}
	records, err := service.NewRecordService(service.RecordServiceOptions{
		Repo:     data.NewRecordRepo(db),
		Location: loc,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return service.NewMaintenanceService(service.MaintenanceServiceOptions{
		Records:  records,
		Password: cfg.Maintenance.Password,
		Logger:   logger,
	})
}

// runMaintenance asks for the maintenance password when one is configured and not passed as a flag.
func (a *adminApp) runMaintenance(
	cmd *cobra.Command,
	opts *maintenanceOptions,
	warning string,
	action func(ctx context.Context, svc *service.MaintenanceService, confirmation string) (*service.MaintenanceResult, error),
) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if err = confirmAction(a.input(), a.Stderr, warning, opts.Yes); err != nil {
		return err
	}
	confirmation := opts.Confirmation
	if confirmation == "" && cfg.Maintenance.Password != "" {
		if confirmation, err = readSecret(a.input(), a.Stderr, "Maintenance password: "); err != nil {
			return err
		}
	}

	ctx, cancel := a.commandContext(cmd)
	defer cancel()
	return a.withDatabase(ctx, func(ctx context.Context, db *sql.DB) error {
		svc, err := newMaintenanceService(cfg, db, a.Logger)
		if err != nil {
			return err
		}
		res, err := action(ctx, svc, confirmation)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.Stdout, "%s (%d)\n", res.Message, res.Count)
		return err
	})
}

func addMaintenanceFlags(cmd *cobra.Command, opts *maintenanceOptions) {
	cmd.Flags().StringVar(&opts.Confirmation, "confirmation", "", "Maintenance password; prompted when required and omitted")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the interactive confirmation")
}

func newCleanupCmd(app *adminApp) *cobra.Command {
	var (
		opts maintenanceOptions
		days int
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than a retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			warning := fmt.Sprintf("This permanently deletes every record older than %d days.", days)
			return app.runMaintenance(cmd, &opts, warning,
				func(ctx context.Context, svc *service.MaintenanceService, conf string) (*service.MaintenanceResult, error) {
					return svc.Cleanup(ctx, days, conf)
				})
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "Window in days: one of 15, 30, 60, 90, 180")
	addMaintenanceFlags(cmd, &opts)
	return cmd
}

func newResetCmd(app *adminApp) *cobra.Command {
	var opts maintenanceOptions
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every temperature record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runMaintenance(cmd, &opts, "This permanently deletes ALL temperature records.",
				func(ctx context.Context, svc *service.MaintenanceService, conf string) (*service.MaintenanceResult, error) {
					return svc.Reset(ctx, conf)
				})
		},
	}
	addMaintenanceFlags(cmd, &opts)
	return cmd
}

func newLocationsCmd(app *adminApp) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Validate and print the location catalogue",
		Long: `Loads the catalogue from --file, LOCATIONS_FILE, or the embedded default,
and prints it grouped. Use it to check a catalogue before deploying it.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := file
			if path == "" {
				path = strings.TrimSpace(getenv("LOCATIONS_FILE"))
			}
			catalog, err := model.LoadLocations(path)
			if err != nil {
				return err
			}
			return printLocations(app.Stdout, catalog)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalogue to load instead of LOCATIONS_FILE")
	return cmd
}

func printLocations(out io.Writer, catalog *model.LocationCatalog) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "GROUP\tLOCATION"); err != nil {
		return err
	}
	for _, g := range catalog.Groups {
		for _, loc := range g.Locations {
			if _, err := fmt.Fprintf(tw, "%s\t%s\n", g.Name, loc); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}
