package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthieukhl/luxe/internal/auth"
	"github.com/matthieukhl/luxe/internal/logging"
	"github.com/matthieukhl/luxe/internal/notify"
	"github.com/matthieukhl/luxe/internal/server"
	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/spf13/cobra"
)

var seedOnStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Luxe API server",
	Long: `Start the Luxe API server which provides:
- Public catalog browsing
- Authenticated carts, checkout and order history
- The admin API, including the live order feed and xlsx export`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&seedOnStart, "seed", false, "Seed the demo catalog before serving (always on for the memory driver)")
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 Luxe Starting...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("⚙️  Setting up server...")
	hub := notify.NewHub(logger)
	go hub.Run(ctx)

	catalog := shop.NewCatalog(b.store)
	if seedOnStart || cfg.DB.Driver == "memory" {
		n, err := catalog.Seed(ctx, shop.DefaultCatalog)
		if err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		fmt.Printf("🌱 Seeded %d product(s)\n", n)
	}

	srv := server.NewServer(server.Deps{
		Catalog:     catalog,
		Carts:       shop.NewCartService(b.store),
		Checkout:    shop.NewCheckoutEngine(b.store, logger, hub),
		Orders:      shop.NewOrderService(b.store),
		Accounts:    shop.NewAccounts(b.store, auth.NewBcrypt(cfg.Auth.BcryptCost)),
		Tokens:      auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
		Hub:         hub,
		Health:      b.health,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	fmt.Printf("🌐 Starting server on %s...\n", cfg.Server.Addr)
	if err := srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout); err != nil {
		return err
	}

	fmt.Println("👋 Server stopped")
	return nil
}
