package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/generalelection/UK-Polling-Stations/internal/onsad"
)

var onsadCmd = &cobra.Command{
	Use:   "import-onsad <dir>",
	Short: "Bulk load ONS Address Directory CSVs",
	Long:  "Truncates the ONSAD table and COPYs every matching CSV in <dir> into it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("onsad"); err != nil {
			return err
		}

		st, err := initPostgres(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		opts := onsad.Options{
			Table:     cfg.ONSAD.Table,
			Pattern:   cfg.ONSAD.Pattern,
			BatchSize: cfg.ONSAD.BatchSize,
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions64(-1,
				progressbar.OptionSetDescription("onsad"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			opts.OnBatch = func(path string, rows int64) {
				bar.Describe(filepath.Base(path))
				_ = bar.Add64(rows)
			}
		}

		res, err := onsad.NewLoader(st.Pool(), opts).Load(ctx, args[0])
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return eris.Wrap(err, "import-onsad")
		}

		zap.L().Info("onsad load complete",
			zap.Int("files", len(res.Files)),
			zap.Int64("rows", res.Rows),
		)
		fmt.Printf("loaded %d rows from %d files into %s\n", res.Rows, len(res.Files), cfg.ONSAD.Table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(onsadCmd)
}
