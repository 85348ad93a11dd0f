package report

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/geodata-br/censomap/internal/census"
)

// Palette holds the two endpoints of a sequential color ramp.
type Palette struct {
	Low  string `yaml:"low"`
	High string `yaml:"high"`
}

// Palettes maps categories to their map color ramps.
type Palettes struct {
	Default    Palette            `yaml:"default"`
	Categories map[string]Palette `yaml:"categories"`
}

// DefaultPalettes returns the built-in sequential ramps, one hue per
// category so the five maps are distinguishable at a glance.
func DefaultPalettes() Palettes {
	return Palettes{
		Default: Palette{Low: "#f7fbff", High: "#08306b"},
		Categories: map[string]Palette{
			census.CategoryBranca.Slug():   {Low: "#f7fbff", High: "#08306b"},
			census.CategoryPreta.Slug():    {Low: "#fcfbfd", High: "#3f007d"},
			census.CategoryAmarela.Slug():  {Low: "#fff5eb", High: "#7f2704"},
			census.CategoryParda.Slug():    {Low: "#f7fcf5", High: "#00441b"},
			census.CategoryIndigena.Slug(): {Low: "#fff5f0", High: "#67000d"},
		},
	}
}

// LoadPalettes reads palette overrides from a YAML file. Categories
// missing from the file keep their built-in ramp.
func LoadPalettes(path string) (Palettes, error) {
	p := DefaultPalettes()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, eris.Wrapf(err, "report: read palettes %s", path)
	}

	// The YAML has a top-level "palettes" key.
	var wrapper struct {
		Palettes struct {
			Default    *Palette           `yaml:"default"`
			Categories map[string]Palette `yaml:"categories"`
		} `yaml:"palettes"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return p, eris.Wrap(err, "report: parse palettes")
	}

	if wrapper.Palettes.Default != nil {
		p.Default = *wrapper.Palettes.Default
	}
	for slug, pal := range wrapper.Palettes.Categories {
		p.Categories[slug] = pal
	}
	return p, nil
}

// For returns the ramp for a category, falling back to the default.
func (p Palettes) For(c census.Category) Palette {
	if pal, ok := p.Categories[c.Slug()]; ok {
		return pal
	}
	return p.Default
}
