package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/caarlos0/ctrlc"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shillcock/pb-and-jelly/internal/config"
	"github.com/shillcock/pb-and-jelly/internal/lifecycle"
	"github.com/shillcock/pb-and-jelly/internal/pocketbase"
)

var (
	startBackground bool
	startReset      bool
	startHost       string
	startPort       int

	// readyTimeout bounds the post-start health poll.
	readyTimeout = 30 * time.Second
)

var startCmd = &cobra.Command{
	Use:   "start [env]",
	Short: "Start PocketBase for an environment (or all)",
	Long: `Start the PocketBase server for the given environment, or for all
environments when none is given.

By default the server is detached into the background, its output
redirected to the environment's log file and its PID recorded. The
command then polls the health endpoint until the server answers.

With --background=false the server runs attached to the terminal and is
stopped on Ctrl-C. Foreground mode requires a single environment.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startBackground, "background", true, "detach the server into the background")
	startCmd.Flags().BoolVar(&startReset, "reset", false, "remove the data directory before starting")
	startCmd.Flags().StringVar(&startHost, "host", "", "override the bind host")
	startCmd.Flags().IntVar(&startPort, "port", 0, "override the bind port (single environment only)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	envs, err := resolveEnvs(args)
	if err != nil {
		return err
	}
	if startPort != 0 && len(envs) != 1 {
		return fmt.Errorf("--port requires a single environment")
	}
	if !startBackground && len(envs) != 1 {
		return fmt.Errorf("foreground mode requires a single environment")
	}

	applyStartOverrides(envs)

	installer := pocketbase.NewInstaller(cfg.BinDir())
	if err := installer.EnsureInstalled(); err != nil {
		return err
	}

	if startReset {
		for _, env := range envs {
			log.Info("Resetting data directory", "env", env, "dir", cfg.DataDir(env))
			if err := os.RemoveAll(cfg.DataDir(env)); err != nil {
				return fmt.Errorf("reset %s: %w", env, err)
			}
		}
	}

	if !startBackground {
		return runForeground(cmd.Context(), envs[0])
	}

	tracker := lifecycle.New(cfg)
	for _, env := range envs {
		handle, err := tracker.Start(env, launchSpec(env))
		if err != nil {
			return err
		}
		log.Info("Started", "env", env, "pid", handle.PID, "addr", cfg.Addr(env))
	}

	// Starts are sequential; only the readiness waits fan out.
	g, ctx := errgroup.WithContext(cmd.Context())
	for _, env := range envs {
		env := env
		g.Go(func() error {
			client := pocketbase.NewClient(cfg.BaseURL(env))
			if err := client.WaitReady(ctx, readyTimeout); err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			log.Info("Ready", "env", env, "url", cfg.BaseURL(env))
			return nil
		})
	}
	return g.Wait()
}

func applyStartOverrides(envs []config.Environment) {
	for _, env := range envs {
		ec := cfg.Envs[env]
		if startHost != "" {
			ec.Host = startHost
		}
		if startPort != 0 {
			ec.Port = startPort
		}
		cfg.Envs[env] = ec
	}
}

func launchSpec(env config.Environment) lifecycle.LaunchSpec {
	return lifecycle.LaunchSpec{
		Binary: cfg.Binary(),
		Args: []string{
			"serve",
			"--http", cfg.Addr(env),
			"--dir", cfg.DataDir(env),
		},
		Dir: cfg.EnvDir(env),
	}
}

// runForeground runs the server attached to the terminal until it exits
// or the user hits Ctrl-C.
func runForeground(ctx context.Context, env config.Environment) error {
	if err := os.MkdirAll(cfg.EnvDir(env), 0755); err != nil {
		return fmt.Errorf("create env dir: %w", err)
	}
	spec := launchSpec(env)
	log.Info("Starting in foreground", "env", env, "addr", cfg.Addr(env))

	return ctrlc.Default.Run(ctx, func() error {
		c := exec.Command(spec.Binary, spec.Args...)
		c.Dir = spec.Dir
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		return c.Run()
	})
}
