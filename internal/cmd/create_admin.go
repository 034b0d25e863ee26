package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/matthieukhl/luxe/internal/auth"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminEmail    string
	adminFullName string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a staff account",
	Long: `Creates an administrator who can sign in to the admin API. Use it to
bootstrap the first account; later admins can be created through the API.

The password may also be passed through LUXE_ADMIN_PASSWORD to keep it out
of the shell history.`,
	RunE: createAdmin,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Username (required)")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email address (required)")
	createAdminCmd.Flags().StringVar(&adminFullName, "full-name", "", "Full name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password (or LUXE_ADMIN_PASSWORD)")
	createAdminCmd.MarkFlagRequired("username")
	createAdminCmd.MarkFlagRequired("email")
}

func createAdmin(cmd *cobra.Command, args []string) error {
	password := adminPassword
	if password == "" {
		password = os.Getenv("LUXE_ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required (--password or LUXE_ADMIN_PASSWORD)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := sqlBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	accounts := shop.NewAccounts(b.store, auth.NewBcrypt(cfg.Auth.BcryptCost))
	u, err := accounts.CreateAdmin(cmd.Context(), adminUsername, adminEmail, adminFullName, password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Printf("✅ Admin %q created (id %d)\n", u.Username, u.ID)
	return nil
}
