package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/geodata-br/censomap/internal/census"
)

var (
	exportFormat   string
	exportOut      string
	exportCategory string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export percentage rows as CSV or XLSX",
	Long: `Writes the derived percentage table to a file. All five categories
are exported unless --category restricts the output to one.`,
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

		var rows []census.PercentageRow
		if exportCategory != "" {
			cat, err := census.ParseCategory(exportCategory)
			if err != nil {
				return err
			}
			rows, err = ds.Percentages(cat, cfg.Report.Precision)
			if err != nil {
				return err
			}
		} else {
			rows, err = ds.AllPercentages(cfg.Report.Precision)
			if err != nil {
				return err
			}
		}
		census.SortRowsByName(rows)

		out := exportOut
		if out == "" {
			out = "percentuais." + exportFormat
		}

		switch exportFormat {
		case "csv":
			err = writeCSV(out, rows)
		case "xlsx":
			err = writeXLSX(out, rows)
		default:
			return eris.Errorf("unknown export format %q (want csv or xlsx)", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d rows to %s\n", len(rows), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default percentuais.<format>)")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "restrict to one category (e.g. parda)")
	rootCmd.AddCommand(exportCmd)
}

var exportHeader = []string{"codigo", "municipio", "cor_ou_raca", "populacao", "percentual"}

func writeCSV(path string, rows []census.PercentageRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportHeader); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.Code, 10),
			r.Name,
			string(r.Category),
			strconv.FormatInt(r.Count, 10),
			strconv.FormatFloat(r.Percent, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "export: write row %d", r.Code)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return f.Close()
}

func writeXLSX(path string, rows []census.PercentageRow) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("percentuais")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt64(r.Code)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(string(r.Category))
		row.AddCell().SetInt64(r.Count)
		row.AddCell().SetFloatWithFormat(r.Percent, "0.00")
	}

	if err := wb.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
