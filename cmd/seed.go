package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shillcock/pb-and-jelly/internal/config"
	"github.com/shillcock/pb-and-jelly/internal/lifecycle"
	"github.com/shillcock/pb-and-jelly/internal/pocketbase"
)

var seedCmd = &cobra.Command{
	Use:   "seed [env]",
	Short: "Seed admin and user accounts",
	Long: `Create the admin account and the users listed in the config file for
the given environment, or for all running environments when none is
given. Accounts that already exist are left alone.

A user with a blank password in the config gets a generated one, printed
once at creation time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
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
		if st.State != lifecycle.Running {
			if len(args) == 0 {
				log.Debug("Skipping, not running", "env", env)
				continue
			}
			return fmt.Errorf("%s is not running (start it first)", env)
		}
		if err := seedEnv(cmd, env); err != nil {
			return err
		}
	}
	return nil
}

func seedEnv(cmd *cobra.Command, env config.Environment) error {
	ctx := cmd.Context()
	client := pocketbase.NewClient(cfg.BaseURL(env))

	log.Info("Seeding", "env", env, "url", cfg.BaseURL(env))

	if err := client.CreateAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	token, err := client.AuthAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}

	for _, u := range cfg.Users {
		password := u.Password
		if password == "" {
			password = uuid.NewString()
			log.Info("Generated password", "email", u.Email, "password", password)
		}
		user := pocketbase.User{
			Email:           u.Email,
			Password:        password,
			PasswordConfirm: password,
			Name:            u.Name,
		}
		if err := client.CreateUser(ctx, token, user); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		log.Info("Seeded user", "env", env, "email", u.Email)
	}
	return nil
}
