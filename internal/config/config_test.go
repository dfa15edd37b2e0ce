package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input   string
		want    Environment
		wantErr bool
	}{
		{input: "dev", want: Dev},
		{input: "development", want: Dev},
		{input: "test", want: Test},
		{input: "testing", want: Test},
		{input: "TEST", want: Test},
		{input: " dev ", want: Dev},
		{input: "prod", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultVersion, cfg.Version)
	assert.Equal(t, "127.0.0.1:8090", cfg.Addr(Dev))
	assert.Equal(t, "127.0.0.1:8091", cfg.Addr(Test))
	assert.Equal(t, "http://127.0.0.1:8090", cfg.BaseURL(Dev))
	assert.Empty(t, cfg.Users)
}

func TestLoadYAML(t *testing.T) {
	root := t.TempDir()
	yaml := `
version: "0.20.0"
admin_email: boss@example.com
environments:
  dev:
    host: 0.0.0.0
    port: 9000
  test:
    port: 9001
users:
  - email: alice@example.com
    password: hunter22aa
    name: Alice
`
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFile), []byte(yaml), 0644))

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, "0.20.0", cfg.Version)
	assert.Equal(t, "boss@example.com", cfg.AdminEmail)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr(Dev))
	// Host falls back to the default when the file omits it.
	assert.Equal(t, "127.0.0.1:9001", cfg.Addr(Test))
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "alice@example.com", cfg.Users[0].Email)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	root := t.TempDir()

	_, err := Load(root, filepath.Join(root, "nope.yaml"))
	assert.Error(t, err)
}

func TestVersionPinWins(t *testing.T) {
	root := t.TempDir()
	yaml := "version: \"0.20.0\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFile), []byte(yaml), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, VersionPinFile), []byte("v0.22.1\n"), 0644))

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, "0.22.1", cfg.Version)
}

func TestEnvVarOverrides(t *testing.T) {
	t.Setenv("PBJ_DEV_PORT", "19090")
	t.Setenv("PBJ_ADMIN_EMAIL", "ops@example.com")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, 19090, cfg.Env(Dev).Port)
	assert.Equal(t, 8091, cfg.Env(Test).Port)
	assert.Equal(t, "ops@example.com", cfg.AdminEmail)
}

func TestPaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default(root)

	assert.Equal(t, filepath.Join(root, "dev", "pb_data"), cfg.DataDir(Dev))
	assert.Equal(t, filepath.Join(root, "test", "pocketbase.log"), cfg.LogFile(Test))
	assert.Equal(t, filepath.Join(root, "test", "pocketbase.pid"), cfg.PIDFile(Test))
	assert.Equal(t, filepath.Join(root, "bin"), cfg.BinDir())
}

func TestInvalidPort(t *testing.T) {
	root := t.TempDir()
	yaml := "environments:\n  dev:\n    port: 99999\n  test:\n    port: 8091\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFile), []byte(yaml), 0644))

	_, err := Load(root, "")
	assert.Error(t, err)
}
