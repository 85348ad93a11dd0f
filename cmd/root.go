package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "censomap",
	Short: "Race/color choropleth reports from the 2022 Brazilian census",
	Long:  "Fetches IBGE SIDRA population counts by cor/raça and the municipal mesh, joins them by municipality code, and renders per-category choropleth maps with an interactive report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
