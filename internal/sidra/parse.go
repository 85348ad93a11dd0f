package sidra

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/fetcher"
)

// Suppression sentinels that SIDRA uses in place of a numeric value.
// "-" is a true zero-or-absent, ".." not applicable, "..." unavailable,
// "X" withheld for confidentiality. All map to a null count.
var suppressed = map[string]bool{
	"-":   true,
	"..":  true,
	"...": true,
	"X":   true,
}

// columns holds the response keys resolved from the SIDRA header row.
// Column keys (D1C, D4N, ...) vary with the dimension order of the query,
// so they are located by their header descriptions.
type columns struct {
	geoCode string
	geoName string
	catName string
}

func resolveColumns(header map[string]string) (columns, error) {
	var cols columns
	for key, desc := range header {
		switch {
		case strings.Contains(desc, "Município (Código)"):
			cols.geoCode = key
		case desc == "Município":
			cols.geoName = key
		case strings.Contains(desc, "Cor ou raça") && !strings.Contains(desc, "(Código)"):
			cols.catName = key
		}
	}
	if cols.geoCode == "" || cols.geoName == "" || cols.catName == "" {
		return cols, eris.Errorf("sidra: header row missing expected columns (got %v)", header)
	}
	return cols, nil
}

// ParseValues parses a SIDRA /values response. The first array element is
// a header row describing each column; the rest are data rows.
func ParseValues(ctx context.Context, r io.Reader) ([]census.Observation, error) {
	rows, errs := fetcher.DecodeJSONArray[map[string]string](ctx, r)

	var (
		cols    columns
		haveHdr bool
		obs     []census.Observation
		skipped int
	)

	for row := range rows {
		if !haveHdr {
			c, err := resolveColumns(row)
			if err != nil {
				return nil, err
			}
			cols = c
			haveHdr = true
			continue
		}

		o, err := parseRow(row, cols)
		if err != nil {
			skipped++
			zap.L().Debug("sidra: skipping row", zap.Error(err))
			continue
		}
		obs = append(obs, o)
	}

	if err := <-errs; err != nil {
		return nil, eris.Wrap(err, "sidra: decode values")
	}
	if !haveHdr {
		return nil, eris.New("sidra: empty response")
	}
	if skipped > 0 {
		zap.L().Warn("sidra: skipped unparseable rows", zap.Int("skipped", skipped))
	}

	return obs, nil
}

func parseRow(row map[string]string, cols columns) (census.Observation, error) {
	code, err := strconv.ParseInt(row[cols.geoCode], 10, 64)
	if err != nil {
		return census.Observation{}, eris.Wrapf(err, "parse municipality code %q", row[cols.geoCode])
	}

	cat, err := census.ParseCategory(row[cols.catName])
	if err != nil {
		return census.Observation{}, err
	}

	o := census.Observation{
		Code:     code,
		Name:     trimUFSuffix(row[cols.geoName]),
		Category: cat,
	}

	if raw := strings.TrimSpace(row["V"]); !suppressed[raw] {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return census.Observation{}, eris.Wrapf(err, "parse count %q", raw)
		}
		o.Count = &n
	}

	return o, nil
}

// trimUFSuffix strips the " (UF)" state suffix SIDRA appends to
// municipality names, e.g. "São Paulo (SP)" -> "São Paulo".
func trimUFSuffix(name string) string {
	if len(name) >= 5 && strings.HasSuffix(name, ")") && name[len(name)-5:len(name)-3] == " (" {
		return name[:len(name)-5]
	}
	return name
}
