package census

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CategorySummary is the national aggregate for one category.
type CategorySummary struct {
	Category Category `json:"category"`
	Count    int64    `json:"count"`
	Percent  float64  `json:"percent"`
}

// Summarize sums every category across the dataset and derives the
// national share of each, rounded to the given precision.
func (d *Dataset) Summarize(precision int) []CategorySummary {
	totals := make(map[Category]int64, len(Categories()))
	var denom int64
	for _, m := range d.Municipalities {
		for _, c := range Categories() {
			if v := m.Counts[c]; v != nil {
				totals[c] += *v
				denom += *v
			}
		}
	}

	out := make([]CategorySummary, 0, len(Categories()))
	for _, c := range Categories() {
		s := CategorySummary{Category: c, Count: totals[c]}
		if denom > 0 {
			s.Percent = Round(100*float64(s.Count)/float64(denom), precision)
		}
		out = append(out, s)
	}
	return out
}

// SortRowsByName orders percentage rows by municipality name using
// Brazilian Portuguese collation, so accented names interleave correctly
// in the report table.
func SortRowsByName(rows []PercentageRow) {
	c := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(rows, func(i, j int) bool {
		if cmp := c.CompareString(rows[i].Name, rows[j].Name); cmp != 0 {
			return cmp < 0
		}
		return rows[i].Code < rows[j].Code
	})
}
