// Package census holds the tabulation core: census observations joined to
// municipal boundaries and the per-category percentage computation.
package census

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Category is one of the official cor/raça classifications of the 2022
// census, plus the aggregate Total row that SIDRA returns alongside them.
type Category string

const (
	CategoryBranca   Category = "Branca"
	CategoryPreta    Category = "Preta"
	CategoryAmarela  Category = "Amarela"
	CategoryParda    Category = "Parda"
	CategoryIndigena Category = "Indígena"
	CategoryTotal    Category = "Total"
)

// Categories returns the five color/race categories in official release
// order. The Total row is deliberately excluded: it never participates in
// the percentage denominator.
func Categories() []Category {
	return []Category{
		CategoryBranca,
		CategoryPreta,
		CategoryAmarela,
		CategoryParda,
		CategoryIndigena,
	}
}

// categoryAliases maps normalized labels to categories. SIDRA responses and
// user-facing flags both spell the accented form; the ASCII fallback keeps
// shell usage painless.
var categoryAliases = map[string]Category{
	"branca":   CategoryBranca,
	"preta":    CategoryPreta,
	"amarela":  CategoryAmarela,
	"parda":    CategoryParda,
	"indígena": CategoryIndigena,
	"indigena": CategoryIndigena,
	"total":    CategoryTotal,
}

// ParseCategory resolves a category label, case-insensitively and with or
// without the accent on Indígena.
func ParseCategory(s string) (Category, error) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", eris.Errorf("census: unknown category %q", s)
	}
	return c, nil
}

// Slug returns an ASCII, lowercase form usable in file names and URLs.
func (c Category) Slug() string {
	switch c {
	case CategoryIndigena:
		return "indigena"
	default:
		return strings.ToLower(string(c))
	}
}
