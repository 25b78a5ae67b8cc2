package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/target/tempguard-api/config"
)

func TestErrorChannelCapacity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "no services enabled", want: 0},
		{name: "http only", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 1},
		{name: "http and retention", modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeRetention}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}
			assert.Equal(t, tt.want, errorChannelCapacity(enabled))
			assert.Equal(t, tt.want+1, errorChannelBufferSize(enabled))
		})
	}
}

func TestLaunchBackgroundSkipsDisabled(t *testing.T) {
	t.Parallel()

	deps := &serviceStartupDeps{
		ctx:             context.Background(),
		logger:          discardLogger(),
		enabledServices: map[config.ServiceMode]bool{config.ServiceModeHTTP: true},
		errCh:           make(chan error, 1),
	}
	done := launchBackground(deps.ctx, deps, backgroundService{
		mode:  config.ServiceModeRetention,
		name:  "retention runner",
		start: func(context.Context) error { t.Error("disabled service started"); return nil },
	})
	assert.Nil(t, done)
}

func TestLaunchBackgroundReportsErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	deps := &serviceStartupDeps{
		ctx:             context.Background(),
		logger:          discardLogger(),
		enabledServices: map[config.ServiceMode]bool{config.ServiceModeRetention: true},
		errCh:           make(chan error, 1),
	}
	boom := errors.New("boom")
	done := launchBackground(deps.ctx, deps, backgroundService{
		mode:  config.ServiceModeRetention,
		name:  "retention runner",
		start: func(context.Context) error { return boom },
	})
	require.NotNil(t, done)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background service did not finish")
	}
	err := <-deps.errCh
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "retention runner failed")
}

func TestRetentionBackgroundWithoutRunner(t *testing.T) {
	t.Parallel()

	deps := &serviceStartupDeps{
		cfg:    &ServiceOrchestrationConfig{Config: &config.AppConfig{}},
		logger: discardLogger(),
	}
	require.NoError(t, newRetentionBackgroundService(deps).start(context.Background()))
}

func TestWaitForServiceNilDone(t *testing.T) {
	t.Parallel()
	waitForService(nil, "nothing", discardLogger())
}
