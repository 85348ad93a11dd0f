package census

import (
	"math"

	"github.com/rotisserie/eris"
)

// PercentageRow is one derived record: the share of a category in a
// municipality's population, over the sum of the five category counts.
type PercentageRow struct {
	Code     int64    `json:"code"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Count    int64    `json:"count"`
	Percent  float64  `json:"percent"`
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	return math.Round(x*pow) / pow
}

// Percentages computes the derived percentage rows for one category,
// ordered by municipality code. Municipalities with a nil count for the
// category, or with a zero or absent denominator, are skipped.
func (d *Dataset) Percentages(category Category, precision int) ([]PercentageRow, error) {
	if category == CategoryTotal {
		return nil, eris.New("census: percentages are undefined for the Total row")
	}

	rows := make([]PercentageRow, 0, len(d.Municipalities))
	for _, m := range d.Municipalities {
		count := m.Counts[category]
		if count == nil {
			continue
		}
		denom, ok := m.Denominator()
		if !ok || denom == 0 {
			continue
		}
		rows = append(rows, PercentageRow{
			Code:     m.Code,
			Name:     m.Name,
			Category: category,
			Count:    *count,
			Percent:  Round(100*float64(*count)/float64(denom), precision),
		})
	}
	return rows, nil
}

// AllPercentages computes percentage rows for the five categories,
// concatenated in category order.
func (d *Dataset) AllPercentages(precision int) ([]PercentageRow, error) {
	var all []PercentageRow
	for _, c := range Categories() {
		rows, err := d.Percentages(c, precision)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// FilterCategory returns only the rows of the given category.
func FilterCategory(rows []PercentageRow, category Category) []PercentageRow {
	out := make([]PercentageRow, 0, len(rows))
	for _, r := range rows {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// PercentByCode indexes one category's rows by municipality code, for
// choropleth lookup.
func PercentByCode(rows []PercentageRow) map[int64]float64 {
	out := make(map[int64]float64, len(rows))
	for _, r := range rows {
		out[r.Code] = r.Percent
	}
	return out
}
