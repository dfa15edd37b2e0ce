// Package cmd implements the pbj CLI: install, start, stop, status,
// seed, and clean for the local PocketBase environments.
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shillcock/pb-and-jelly/internal/config"
)

var (
	verbose bool
	quiet   bool
	cfgFile string

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pbj",
	Short: "Manage local PocketBase environments",
	Long: `pbj orchestrates a local PocketBase backend across two isolated
environments (dev and test): installing the pinned binary, starting and
stopping server processes, seeding users, and cleaning data directories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case verbose:
			log.SetLevel(log.DebugLevel)
		case quiet:
			log.SetLevel(log.ErrorLevel)
		}

		root, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		cfg, err = config.Load(root, cfgFile)
		if err != nil {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default pbj.yaml in the working directory)")
}

// resolveEnvs turns an optional environment argument into the list of
// environments a command operates on; no argument means all of them.
func resolveEnvs(args []string) ([]config.Environment, error) {
	if len(args) == 0 {
		return config.Environments, nil
	}
	env, err := config.ParseEnvironment(args[0])
	if err != nil {
		return nil, err
	}
	return []config.Environment{env}, nil
}
