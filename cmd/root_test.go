package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shillcock/pb-and-jelly/internal/config"
	"github.com/shillcock/pb-and-jelly/internal/lifecycle"
)

func TestResolveEnvs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []config.Environment
		wantErr bool
	}{
		{name: "no args means all", args: nil, want: []config.Environment{config.Dev, config.Test}},
		{name: "dev", args: []string{"dev"}, want: []config.Environment{config.Dev}},
		{name: "test", args: []string{"test"}, want: []config.Environment{config.Test}},
		{name: "long form", args: []string{"development"}, want: []config.Environment{config.Dev}},
		{name: "unknown", args: []string{"staging"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveEnvs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusLine(t *testing.T) {
	running := lifecycle.Status{Env: config.Dev, State: lifecycle.Running, PID: 4242, Addr: "127.0.0.1:8090"}
	assert.Contains(t, statusLine(running), "running")
	assert.Contains(t, statusLine(running), "4242")
	assert.Contains(t, statusLine(running), "127.0.0.1:8090")

	busy := lifecycle.Status{Env: config.Test, State: lifecycle.PortBusy, Addr: "127.0.0.1:8091"}
	assert.Contains(t, statusLine(busy), "port busy")
	assert.Contains(t, statusLine(busy), "unmanaged")

	stopped := lifecycle.Status{Env: config.Test, State: lifecycle.Stopped}
	assert.Contains(t, statusLine(stopped), "stopped")
}

func TestLaunchSpec(t *testing.T) {
	orig := cfg
	defer func() { cfg = orig }()
	cfg = config.Default(t.TempDir())

	spec := launchSpec(config.Dev)
	assert.Equal(t, cfg.Binary(), spec.Binary)
	assert.Contains(t, spec.Args, "serve")
	assert.Contains(t, spec.Args, "127.0.0.1:8090")
	assert.Contains(t, spec.Args, cfg.DataDir(config.Dev))
}
