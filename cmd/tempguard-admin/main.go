package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/tempguard-api/config"
	"github.com/target/tempguard-api/internal/bootstrap"
)

const defaultCommandTimeout = 5 * time.Minute

var getenv = os.Getenv

// adminApp carries what every command needs. Config is loaded lazily so that
// commands which never touch the database run without a complete environment.
type adminApp struct {
	Logger *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	loadConfig func() (config.AppConfig, error)
	cfg        *config.AppConfig
	timeout    time.Duration
	in         *bufio.Reader
}

func main() {
	logger := bootstrap.InitLogger(os.Getenv("LOG_LEVEL"))
	app := &adminApp{
		Logger:     logger,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		loadConfig: bootstrap.LoadConfig,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(app).ExecuteContext(ctx); err != nil {
		logger.ErrorContext(ctx, "command failed", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo,gocritic // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(app *adminApp) *cobra.Command {
	root := &cobra.Command{
		Use:           "tempguard-admin",
		Short:         "Operator commands for the TempGuard API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(app.Stdin)
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)
	root.PersistentFlags().DurationVar(&app.timeout, "timeout", defaultCommandTimeout, "Maximum time a command may run")

	root.AddCommand(
		newMigrateCmd(app),
		newSeedAdminCmd(app),
		newCreateUserCmd(app),
		newCleanupCmd(app),
		newResetCmd(app),
		newLocationsCmd(app),
	)
	return root
}

// config loads the application configuration once.
func (a *adminApp) config() (*config.AppConfig, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a.cfg = &cfg
	return a.cfg, nil
}

// input returns the shared stdin reader so consecutive prompts do not lose buffered lines.
func (a *adminApp) input() *bufio.Reader {
	if a.in == nil {
		a.in = bufio.NewReader(a.Stdin)
	}
	return a.in
}

// commandContext bounds a command by the --timeout flag.
func (a *adminApp) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := a.timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return context.WithTimeout(cmd.Context(), timeout)
}
