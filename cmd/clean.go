package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shillcock/pb-and-jelly/internal/config"
	"github.com/shillcock/pb-and-jelly/internal/lifecycle"
)

var (
	cleanForce bool
	cleanFull  bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean [env]",
	Short: "Remove environment data directories",
	Long: `Remove the pb_data directory for the given environment, or for all
environments when none is given. With --full the log and PID files go
too. Asks for confirmation unless --force is set.

Refuses to clean an environment whose server is still running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "skip the confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanFull, "full", false, "also remove log and pid files")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	envs, err := resolveEnvs(args)
	if err != nil {
		return err
	}

	tracker := lifecycle.New(cfg)
	for _, env := range envs {
		st, err := tracker.Status(env)
		if err != nil {
			return err
		}
		if st.State == lifecycle.Running {
			return fmt.Errorf("%s is running (pid %d); stop it before cleaning", env, st.PID)
		}
	}

	if !cleanForce && !confirm(cmd, fmt.Sprintf("Remove data for %s?", envList(envs))) {
		log.Info("Aborted")
		return nil
	}

	for _, env := range envs {
		log.Info("Removing data directory", "env", env, "dir", cfg.DataDir(env))
		if err := os.RemoveAll(cfg.DataDir(env)); err != nil {
			return fmt.Errorf("clean %s: %w", env, err)
		}
		if cleanFull {
			if err := os.Remove(cfg.LogFile(env)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("clean %s: %w", env, err)
			}
			if err := os.Remove(cfg.PIDFile(env)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("clean %s: %w", env, err)
			}
		}
	}
	return nil
}

func envList(envs []config.Environment) string {
	names := make([]string, len(envs))
	for i, env := range envs {
		names[i] = string(env)
	}
	return strings.Join(names, ", ")
}

// confirm asks a yes/no question on the command's input stream.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
