package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/shillcock/pb-and-jelly/internal/lifecycle"
)

var (
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	portBusyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	stoppedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	envStyle      = lipgloss.NewStyle().Bold(true).Width(6)
)

var statusCmd = &cobra.Command{
	Use:   "status [env]",
	Short: "Report server status per environment",
	Long: `Report one line per environment: running (with the managed PID and
address), port busy (an unmanaged process listens on the environment's
port), or stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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
		fmt.Println(statusLine(st))
	}
	return nil
}

func statusLine(st lifecycle.Status) string {
	name := envStyle.Render(string(st.Env))
	switch st.State {
	case lifecycle.Running:
		return fmt.Sprintf("%s %s  pid %d  http://%s", name, runningStyle.Render("● running"), st.PID, st.Addr)
	case lifecycle.PortBusy:
		return fmt.Sprintf("%s %s  %s is taken by an unmanaged process", name, portBusyStyle.Render("● port busy"), st.Addr)
	default:
		return fmt.Sprintf("%s %s", name, stoppedStyle.Render("○ stopped"))
	}
}
