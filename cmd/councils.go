package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/generalelection/UK-Polling-Stations/internal/council"
)

// loadRegistry builds the council registry from the built-ins and the
// configured councils file.
func loadRegistry() (*council.Registry, error) {
	delim, err := council.ParseDelimiter(cfg.Import.CSVDelimiter)
	if err != nil {
		return nil, err
	}
	return council.Load(cfg.Import.CouncilsFile, council.Defaults{
		SRID:          cfg.Import.DefaultSRID,
		KMLSRID:       cfg.Import.KMLSRID,
		DistrictsName: cfg.Import.DistrictsName,
		StationsName:  cfg.Import.StationsName,
		Delimiter:     delim,
	})
}

var councilsCmd = &cobra.Command{
	Use:   "councils",
	Short: "List configured councils",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		formatCouncils(os.Stdout, reg.All())
		return nil
	},
}

// formatCouncils writes a tabular list of council definitions to out.
func formatCouncils(out io.Writer, defs []*council.Definition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNCIL\tMAPPER\tDISTRICTS\tSTATIONS")
	_, _ = fmt.Fprintln(w, "-------\t------\t---------\t--------")
	for _, d := range defs {
		_, _ = fmt.Fprintf(w, "%s\t%T\t%s (%s, srid %d)\t%s (%s, srid %d)\n",
			d.ID,
			d.Mapper,
			d.Districts.Name, d.Districts.Format, d.DistrictsSRID(),
			d.Stations.Name, d.Stations.Format, d.StationsSRID(),
		)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(councilsCmd)
}
