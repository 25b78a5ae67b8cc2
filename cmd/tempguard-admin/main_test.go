package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/tempguard-api/config"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/migrate"
)

func newTestApp(stdin string) (*adminApp, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &adminApp{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
		loadConfig: func() (config.AppConfig, error) {
			return config.AppConfig{Auth: config.AuthConfig{Mode: config.AuthModeOIDC}}, nil
		},
	}, &stdout, &stderr
}

func TestRootCommandRegistersOperatorCommands(t *testing.T) {
	t.Parallel()
	app, _, _ := newTestApp("")
	root := newRootCmd(app)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"migrate", "seed-admin", "create-user", "cleanup", "reset", "locations"} {
		assert.Contains(t, names, want)
	}

	migrateCmd, _, err := root.Find([]string{"migrate", "status"})
	require.NoError(t, err)
	assert.Equal(t, "status", migrateCmd.Name())
}

func TestLocationsCommandPrintsEmbeddedCatalogue(t *testing.T) {
	t.Parallel()
	app, stdout, _ := newTestApp("")
	root := newRootCmd(app)
	root.SetArgs([]string{"locations", "--file", ""})

	require.NoError(t, root.ExecuteContext(context.Background()))
	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "GROUP"))
	assert.Contains(t, out, "Giro Freezer 1")
}

func TestLocationsCommandReadsFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "locations.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups:\n  - name: Docas\n    locations: [Doca 1]\n"), 0o600))

	app, stdout, _ := newTestApp("")
	root := newRootCmd(app)
	root.SetArgs([]string{"locations", "--file", path})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), "Docas")
	assert.Contains(t, stdout.String(), "Doca 1")
}

func TestSeedAdminRequiresLocalAuth(t *testing.T) {
	t.Parallel()
	app, _, _ := newTestApp("")
	root := newRootCmd(app)
	root.SetArgs([]string{"seed-admin"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE=local")
}

func TestConfigLoadErrorIsReported(t *testing.T) {
	t.Parallel()
	app, _, _ := newTestApp("")
	app.loadConfig = func() (config.AppConfig, error) { return config.AppConfig{}, errors.New("ADMIN_EMAIL missing") }
	root := newRootCmd(app)
	root.SetArgs([]string{"reset", "--yes"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestConfirmAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		yes     bool
		wantErr error
	}{
		{name: "flag skips prompt", yes: true},
		{name: "y accepts", input: "y\n"},
		{name: "yes accepts", input: "YES\n"},
		{name: "empty aborts", input: "\n", wantErr: errAborted},
		{name: "eof aborts", input: "", wantErr: errAborted},
		{name: "anything else aborts", input: "sure\n", wantErr: errAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			err := confirmAction(bufio.NewReader(strings.NewReader(tt.input)), &out, "danger", tt.yes)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPromptsShareOneReader(t *testing.T) {
	t.Parallel()
	app, _, stderr := newTestApp("y\nsecret\n")

	require.NoError(t, confirmAction(app.input(), app.Stderr, "danger", false))
	secret, err := readSecret(app.input(), app.Stderr, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret", secret)
	assert.Contains(t, stderr.String(), "Continue? [y/N]")
}

func TestReadSecretRejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := readSecret(bufio.NewReader(strings.NewReader("\n")), io.Discard, "Password: ")
	require.Error(t, err)
}

func TestCreateUserOptionsRequest(t *testing.T) {
	t.Parallel()
	opts := createUserOptions{
		DisplayName: "Maria",
		Matricula:   "4411",
		Permissions: []string{"/", " /registrar ", ""},
	}
	req := opts.request()
	assert.Equal(t, "Maria", req.DisplayName)
	assert.Equal(t, "4411", req.Matricula)
	assert.Equal(t, []domainauth.Permission{domainauth.PermRegister, domainauth.PermRecordsForm}, req.Permissions)
}

func TestPrintMigrationStatus(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, printMigrationStatus(&out, []migrate.Status{
		{Version: "001_init", Applied: true},
		{Version: "002_records_index", Applied: false},
	}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "001_init")
	assert.Contains(t, lines[1], "yes")
	assert.Contains(t, lines[2], "no")
}

func TestPrintProfile(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, printProfile(&out, &domainauth.Profile{
		ID:          "u-1",
		DisplayName: "Maria",
		Matricula:   "4411",
		Role:        domainauth.RoleUser,
		Permissions: []domainauth.Permission{domainauth.PermRegister, domainauth.PermCharts},
	}))
	assert.Contains(t, out.String(), "permissions: /, /graficos")
	assert.Contains(t, out.String(), "role: user")
}
