package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sustainfire/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sustainfire",
	Short: "Forest fire risk dashboard",
	Long:  "Loads a shapefile or GeoJSON dataset, scores every feature with a pre-trained fire risk model and renders the result as a heatmap or choropleth with a risk level histogram.",
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
