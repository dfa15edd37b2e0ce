package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shillcock/pb-and-jelly/internal/lifecycle"
)

var stopCmd = &cobra.Command{
	Use:   "stop [env]",
	Short: "Stop PocketBase for an environment (or all)",
	Long: `Stop the managed PocketBase server for the given environment, or for
all environments when none is given.

Sends a graceful termination signal and waits up to ten seconds for the
process to exit before escalating to a forced kill. Stopping an
environment that is not running is not an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	envs, err := resolveEnvs(args)
	if err != nil {
		return err
	}

	tracker := lifecycle.New(cfg)
	for _, env := range envs {
		outcome, err := tracker.Stop(env)
		if err != nil {
			return err
		}
		switch outcome {
		case lifecycle.NotRunning:
			log.Info("Not running", "env", env)
		case lifecycle.StoppedGracefully:
			log.Info("Stopped", "env", env)
		case lifecycle.Killed:
			log.Warn("Stopped after forced kill", "env", env)
		}
	}
	return nil
}
