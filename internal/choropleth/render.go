package choropleth

import (
	"bytes"
	"fmt"
	"html"
	"strconv"

	"github.com/twpayne/go-geom"

	"github.com/geodata-br/censomap/internal/census"
)

// Options configures a rendered map.
type Options struct {
	Width       int
	Height      int
	Title       string
	StrokeColor string
	StrokeWidth float64
	NeutralFill string // fill for municipalities with no value
	Precision   int    // decimals shown in tooltips and legend
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 960
	}
	if o.Height == 0 {
		o.Height = 920
	}
	if o.StrokeColor == "" {
		o.StrokeColor = "#ffffff"
	}
	if o.StrokeWidth == 0 {
		o.StrokeWidth = 0.2
	}
	if o.NeutralFill == "" {
		o.NeutralFill = "#d0d0d0"
	}
	if o.Precision == 0 {
		o.Precision = 2
	}
	return o
}

const legendHeight = 56

// projection maps lon/lat onto the SVG viewport, preserving aspect ratio.
type projection struct {
	minX, maxY float64
	k          float64
	offX, offY float64
}

func fitProjection(ds *census.Dataset, width, height int) projection {
	bounds := geom.NewBounds(geom.XY)
	for _, m := range ds.Municipalities {
		if m.Boundary != nil {
			bounds.Extend(m.Boundary)
		}
	}

	const pad = 8.0
	w := float64(width) - 2*pad
	h := float64(height-legendHeight) - 2*pad

	dx := bounds.Max(0) - bounds.Min(0)
	dy := bounds.Max(1) - bounds.Min(1)
	if dx <= 0 || dy <= 0 {
		return projection{k: 1, offX: pad, offY: pad}
	}

	k := w / dx
	if alt := h / dy; alt < k {
		k = alt
	}

	return projection{
		minX: bounds.Min(0),
		maxY: bounds.Max(1),
		k:    k,
		offX: pad + (w-dx*k)/2,
		offY: pad + (h-dy*k)/2,
	}
}

func (p projection) apply(lon, lat float64) (float64, float64) {
	return p.offX + (lon-p.minX)*p.k, p.offY + (p.maxY-lat)*p.k
}

// Render draws one choropleth: every boundary in the dataset, filled by
// the scale color of its value, or the neutral fill when the value is
// missing.
func Render(ds *census.Dataset, values map[int64]float64, scale Scale, opts Options) []byte {
	opts = opts.withDefaults()
	proj := fitProjection(ds, opts.Width, opts.Height)

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height)

	if opts.Title != "" {
		fmt.Fprintf(&b, `<text x="%d" y="20" font-family="sans-serif" font-size="16" font-weight="bold">%s</text>`+"\n",
			opts.Width/2-len(opts.Title)*4, html.EscapeString(opts.Title))
	}

	for _, m := range ds.Municipalities {
		if m.Boundary == nil {
			continue
		}

		fill := opts.NeutralFill
		tooltip := fmt.Sprintf("%s (%d): sem dados", m.Name, m.Code)
		if v, ok := values[m.Code]; ok {
			fill = scale.ColorAt(v).Hex()
			tooltip = fmt.Sprintf("%s (%d): %s%%", m.Name, m.Code,
				strconv.FormatFloat(v, 'f', opts.Precision, 64))
		}

		path := boundaryPath(m.Boundary, proj)
		if path == "" {
			continue
		}

		fmt.Fprintf(&b, `<path d="%s" fill="%s" stroke="%s" stroke-width="%s"><title>%s</title></path>`+"\n",
			path, fill, opts.StrokeColor,
			strconv.FormatFloat(opts.StrokeWidth, 'f', -1, 64),
			html.EscapeString(tooltip))
	}

	renderLegend(&b, scale, opts)
	b.WriteString("</svg>\n")
	return b.Bytes()
}

// boundaryPath builds the SVG path data for a multipolygon: one closed
// subpath per ring.
func boundaryPath(mp *geom.MultiPolygon, proj projection) string {
	var b bytes.Buffer
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := poly.LinearRing(j)
			coords := ring.FlatCoords()
			stride := ring.Stride()
			for k := 0; k+1 < len(coords); k += stride {
				x, y := proj.apply(coords[k], coords[k+1])
				if k == 0 {
					b.WriteByte('M')
				} else {
					b.WriteByte('L')
				}
				b.WriteString(strconv.FormatFloat(x, 'f', 2, 64))
				b.WriteByte(',')
				b.WriteString(strconv.FormatFloat(y, 'f', 2, 64))
			}
			b.WriteByte('Z')
		}
	}
	return b.String()
}

func renderLegend(b *bytes.Buffer, scale Scale, opts Options) {
	gradY := opts.Height - legendHeight + 12
	gradW := opts.Width / 3

	b.WriteString(`<defs><linearGradient id="ramp" x1="0" y1="0" x2="1" y2="0">` + "\n")
	for _, stop := range scale.Stops(5) {
		offset := 0.0
		if scale.Max > scale.Min {
			offset = (stop.Value - scale.Min) / (scale.Max - scale.Min)
		}
		fmt.Fprintf(b, `<stop offset="%s" stop-color="%s"/>`+"\n",
			strconv.FormatFloat(offset, 'f', 2, 64), stop.Color.Hex())
	}
	b.WriteString("</linearGradient></defs>\n")

	fmt.Fprintf(b, `<rect x="16" y="%d" width="%d" height="12" fill="url(#ramp)" stroke="#999" stroke-width="0.5"/>`+"\n",
		gradY, gradW)
	fmt.Fprintf(b, `<text x="16" y="%d" font-family="sans-serif" font-size="11">%s%%</text>`+"\n",
		gradY+26, strconv.FormatFloat(scale.Min, 'f', opts.Precision, 64))
	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="11" text-anchor="end">%s%%</text>`+"\n",
		16+gradW, gradY+26, strconv.FormatFloat(scale.Max, 'f', opts.Precision, 64))
	fmt.Fprintf(b, `<rect x="%d" y="%d" width="12" height="12" fill="%s" stroke="#999" stroke-width="0.5"/>`+"\n",
		32+gradW, gradY, opts.NeutralFill)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="11">sem dados</text>`+"\n",
		48+gradW, gradY+10)
}
