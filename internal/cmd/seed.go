package cmd

import (
	"fmt"

	"github.com/matthieukhl/luxe/internal/shop"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the demo catalog",
	Long: `Creates the Watches, Bags and Jewellery categories with one product
each. Products that already exist by name are left untouched, so the command
can be run repeatedly.`,
	RunE: seedCatalog,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func seedCatalog(cmd *cobra.Command, args []string) error {
	fmt.Println("🌱 Seeding catalog...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := sqlBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	n, err := shop.NewCatalog(b.store).Seed(cmd.Context(), shop.DefaultCatalog)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	if n == 0 {
		fmt.Println("✅ Catalog already seeded, nothing to do")
		return nil
	}
	fmt.Printf("✅ Created %d product(s)\n", n)
	return nil
}
