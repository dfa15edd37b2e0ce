package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shillcock/pb-and-jelly/internal/pocketbase"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the pinned PocketBase binary",
	Long: `Download the PocketBase release pinned by .pocketbase-version (or the
config file) for this platform and unpack the binary into bin/.

Does nothing when the pinned version is already installed; use --force
to reinstall.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		installer := pocketbase.NewInstaller(cfg.BinDir())
		return installer.Install(cfg.Version, installForce)
	},
}

func init() {
	installCmd.Flags().BoolVar(&installForce, "force", false, "reinstall even if the version matches")
	rootCmd.AddCommand(installCmd)
}
