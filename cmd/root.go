package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/generalelection/UK-Polling-Stations/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "polling",
	Short: "Polling station and district importer",
	Long:  "Imports council polling districts and stations from shapefiles, CSV, GeoJSON, KML/KMZ and spreadsheets into a spatial store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
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
