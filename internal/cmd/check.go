package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and database connectivity",
	Long: `Loads the configuration, prints the effective settings (secrets
redacted) and pings the configured database.`,
	RunE: checkSetup,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkSetup(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 Checking setup...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("   server.addr       %s\n", cfg.Server.Addr)
	fmt.Printf("   db.driver         %s\n", cfg.DB.Driver)
	fmt.Printf("   db.auto_migrate   %t\n", cfg.DB.AutoMigrate)
	fmt.Printf("   auth.issuer       %s\n", cfg.Auth.Issuer)
	fmt.Printf("   auth.access_ttl   %s\n", cfg.Auth.AccessTTL)
	fmt.Printf("   auth.refresh_ttl  %s\n", cfg.Auth.RefreshTTL)
	fmt.Printf("   auth.jwt_secret   %s\n", redact(cfg.Auth.JWTSecret))
	fmt.Printf("   log               %s/%s\n", cfg.Log.Level, cfg.Log.Format)

	cfg.DB.AutoMigrate = false
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	if err := b.health.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	fmt.Println("✅ All checks passed")
	return nil
}

func redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
