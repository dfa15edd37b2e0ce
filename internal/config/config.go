// Package config holds the explicit configuration passed to every
// pb-and-jelly operation: the two environments with their ports and
// directories, the pinned PocketBase version, admin credentials, and the
// users to seed. Nothing in here is global or mutated after load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment identifies one of the isolated server configurations.
type Environment string

const (
	Dev  Environment = "dev"
	Test Environment = "test"
)

// Environments lists all known environments in a stable order.
var Environments = []Environment{Dev, Test}

// ParseEnvironment maps a CLI argument to an Environment. It accepts the
// short names plus the long spellings people reach for.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return Dev, nil
	case "test", "testing":
		return Test, nil
	default:
		return "", fmt.Errorf("unknown environment %q (expected dev or test)", s)
	}
}

// DefaultVersion is the PocketBase release used when no pin file or
// config entry overrides it.
const DefaultVersion = "0.22.21"

// VersionPinFile is the single-line file that pins the PocketBase release.
const VersionPinFile = ".pocketbase-version"

const (
	defaultHost     = "127.0.0.1"
	defaultDevPort  = 8090
	defaultTestPort = 8091
)

// SeedUser describes one account created by the seed command. A blank
// Password is replaced with a generated one at seed time.
type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// EnvConfig is the per-environment slice of the configuration.
type EnvConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is the full tool configuration. Root anchors every relative
// path the tool touches (environment dirs, bin dir, pin file).
type Config struct {
	Root          string                    `yaml:"-"`
	Version       string                    `yaml:"version"`
	AdminEmail    string                    `yaml:"admin_email"`
	AdminPassword string                    `yaml:"admin_password"`
	Envs          map[Environment]EnvConfig `yaml:"environments"`
	Users         []SeedUser                `yaml:"users"`
}

// DefaultFile is the config file name looked up under Root.
const DefaultFile = "pbj.yaml"

// Default returns the built-in configuration rooted at root.
func Default(root string) *Config {
	return &Config{
		Root:          root,
		Version:       DefaultVersion,
		AdminEmail:    "admin@example.com",
		AdminPassword: "changeme123",
		Envs: map[Environment]EnvConfig{
			Dev:  {Host: defaultHost, Port: defaultDevPort},
			Test: {Host: defaultHost, Port: defaultTestPort},
		},
	}
}

// Load builds the effective configuration for root: defaults, then the
// YAML file at path (or Root/pbj.yaml when path is empty, which may be
// absent), then the version pin file, then environment variables.
func Load(root, path string) (*Config, error) {
	cfg := Default(root)

	explicit := path != ""
	if path == "" {
		path = filepath.Join(root, DefaultFile)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if pinned, err := readVersionPin(root); err != nil {
		return nil, err
	} else if pinned != "" {
		cfg.Version = pinned
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readVersionPin(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, VersionPinFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read version pin: %w", err)
	}
	return strings.TrimPrefix(strings.TrimSpace(string(data)), "v"), nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PBJ_HOST"); v != "" {
		for env, ec := range c.Envs {
			ec.Host = v
			c.Envs[env] = ec
		}
	}
	if v := os.Getenv("PBJ_DEV_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			ec := c.Envs[Dev]
			ec.Port = p
			c.Envs[Dev] = ec
		}
	}
	if v := os.Getenv("PBJ_TEST_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			ec := c.Envs[Test]
			ec.Port = p
			c.Envs[Test] = ec
		}
	}
	if v := os.Getenv("PBJ_ADMIN_EMAIL"); v != "" {
		c.AdminEmail = v
	}
	if v := os.Getenv("PBJ_ADMIN_PASSWORD"); v != "" {
		c.AdminPassword = v
	}
}

func (c *Config) validate() error {
	for _, env := range Environments {
		ec, ok := c.Envs[env]
		if !ok {
			return fmt.Errorf("environment %s missing from config", env)
		}
		if ec.Port <= 0 || ec.Port > 65535 {
			return fmt.Errorf("environment %s: invalid port %d", env, ec.Port)
		}
		if ec.Host == "" {
			ec.Host = defaultHost
			c.Envs[env] = ec
		}
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	return nil
}

// Env returns the per-environment config. The environment is guaranteed
// present after Load; the zero value protects direct Config literals.
func (c *Config) Env(env Environment) EnvConfig {
	return c.Envs[env]
}

// Addr returns the host:port the environment's server binds to.
func (c *Config) Addr(env Environment) string {
	ec := c.Env(env)
	return fmt.Sprintf("%s:%d", ec.Host, ec.Port)
}

// BaseURL returns the environment's HTTP base URL.
func (c *Config) BaseURL(env Environment) string {
	return "http://" + c.Addr(env)
}

// EnvDir returns the environment's directory under Root.
func (c *Config) EnvDir(env Environment) string {
	return filepath.Join(c.Root, string(env))
}

// DataDir returns the environment's PocketBase data directory.
func (c *Config) DataDir(env Environment) string {
	return filepath.Join(c.EnvDir(env), "pb_data")
}

// LogFile returns the path server output is redirected to.
func (c *Config) LogFile(env Environment) string {
	return filepath.Join(c.EnvDir(env), "pocketbase.log")
}

// PIDFile returns the environment's PID file path.
func (c *Config) PIDFile(env Environment) string {
	return filepath.Join(c.EnvDir(env), "pocketbase.pid")
}

// BinDir returns the directory the installer places binaries in.
func (c *Config) BinDir() string {
	return filepath.Join(c.Root, "bin")
}

// Binary returns the path to the installed PocketBase executable.
func (c *Config) Binary() string {
	name := "pocketbase"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(c.BinDir(), name)
}
