package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/generalelection/UK-Polling-Stations/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <council_id>...",
	Short: "Replace a council's polling districts and stations",
	Long: "Purges the council's existing districts and stations, then imports them from\n" +
		"data/{council_id}-*/ using the council's registered definition.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dataDir, _ := cmd.Flags().GetString("data-dir")
		if dataDir != "" {
			cfg.Import.DataDir = dataDir
		}
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		st, err := openMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		imp := importer.New(st, reg, importer.Options{
			DataDir: cfg.Import.DataDir,
			TempDir: cfg.Import.TempDir,
		})

		for _, id := range args {
			res, err := imp.Run(ctx, id)
			if err != nil {
				zap.L().Error("import failed", zap.String("council", id), zap.Error(err))
				return eris.Wrapf(err, "import %s", id)
			}
			formatImportResult(os.Stdout, res)
		}
		return nil
	},
}

// formatImportResult writes a one-line summary of a council import.
func formatImportResult(out io.Writer, res *importer.Result) {
	_, _ = fmt.Fprintf(out, "%s: %d districts, %d stations (%d reconciled), replaced %d/%d in %s\n",
		res.Council,
		res.Districts,
		res.Stations,
		res.Reconciled,
		res.DistrictsDeleted,
		res.StationsDeleted,
		res.Duration.Round(time.Millisecond),
	)
}

func init() {
	importCmd.Flags().String("data-dir", "", "directory holding {council_id}-* dataset folders (default from config)")
	rootCmd.AddCommand(importCmd)
}
