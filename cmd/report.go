package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/report"
)

var (
	reportOut        string
	reportPrecision  int
	reportCategories []string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the choropleth maps and HTML report",
	Long: `Joins the stored statistics and mesh, computes per-category
percentages, and writes one SVG map per category plus report.html and
data.json to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ds, err := loadDataset(ctx, st)
		if err != nil {
			return err
		}

		palettes := report.DefaultPalettes()
		if cfg.Report.PaletteFile != "" {
			palettes, err = report.LoadPalettes(cfg.Report.PaletteFile)
			if err != nil {
				return err
			}
		}

		outDir := reportOut
		if outDir == "" {
			outDir = cfg.Report.OutDir
		}
		precision := reportPrecision
		if precision == 0 {
			precision = cfg.Report.Precision
		}

		var cats []census.Category
		for _, name := range reportCategories {
			cat, err := census.ParseCategory(name)
			if err != nil || cat == census.CategoryTotal {
				return eris.Errorf("unknown category %q", name)
			}
			cats = append(cats, cat)
		}

		res, err := report.NewBuilder(ds, report.Options{
			OutputDir:  outDir,
			Precision:  precision,
			PageSize:   cfg.Report.PageSize,
			MapWidth:   cfg.Report.MapWidth,
			MapHeight:  cfg.Report.MapHeight,
			Palettes:   palettes,
			Categories: cats,
		}).Build(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Report written to %s (%d rows, %d maps)\n", res.ReportPath, res.Rows, len(res.MapPaths))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output directory (default from config)")
	reportCmd.Flags().IntVar(&reportPrecision, "precision", 0, "percentage decimals (default from config)")
	reportCmd.Flags().StringSliceVar(&reportCategories, "categories", nil, "categories to map (default all five)")
	rootCmd.AddCommand(reportCmd)
}
