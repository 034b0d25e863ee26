package cmd

import (
	"fmt"
	"os"

	"github.com/matthieukhl/luxe/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "luxe",
	Short: "Luxe - storefront backend",
	Long: `Luxe serves the storefront API: catalog, carts, checkout and order
management for customers and administrators.

Run it as a server with "luxe run", or use the maintenance commands to
migrate the schema, seed the catalog, bootstrap an administrator and
export orders.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: search ./deploy, ., $HOME/.luxe, /etc/luxe)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	fmt.Println("📝 Loading configuration...")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
