package census

import (
	"sort"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Observation is a single tabulated row from the statistics API: the
// resident population of one color/race category in one municipality.
// Count is nil when the source suppressed the value.
type Observation struct {
	Code     int64
	Name     string
	Category Category
	Count    *int64
}

// Geometry is a municipal boundary in SIRGAS 2000 (EPSG:4674).
type Geometry struct {
	Code     int64
	Name     string
	Boundary *geom.MultiPolygon
}

// Municipality is one joined record: a boundary plus the per-category
// counts observed for it. Counts may be missing entirely for boundaries
// with no matching observation.
type Municipality struct {
	Code     int64
	Name     string
	Boundary *geom.MultiPolygon
	Counts   map[Category]*int64
}

// Denominator returns the sum of the five category counts, and false when
// no category has a value. The Total row never contributes.
func (m *Municipality) Denominator() (int64, bool) {
	var sum int64
	var seen bool
	for _, c := range Categories() {
		if v := m.Counts[c]; v != nil {
			sum += *v
			seen = true
		}
	}
	return sum, seen
}

// Dataset is the joined set of municipalities, ordered by code.
type Dataset struct {
	Municipalities []*Municipality

	byCode map[int64]*Municipality
}

// BuildDataset left-joins observations onto boundaries by municipality
// code. Every geometry yields exactly one Municipality; observations
// without a boundary are dropped (and counted in the log).
func BuildDataset(geoms []Geometry, obs []Observation) *Dataset {
	ds := &Dataset{
		Municipalities: make([]*Municipality, 0, len(geoms)),
		byCode:         make(map[int64]*Municipality, len(geoms)),
	}

	for _, g := range geoms {
		m := &Municipality{
			Code:     g.Code,
			Name:     g.Name,
			Boundary: g.Boundary,
			Counts:   make(map[Category]*int64, len(Categories())+1),
		}
		ds.Municipalities = append(ds.Municipalities, m)
		ds.byCode[g.Code] = m
	}

	var orphans int
	for _, o := range obs {
		m, ok := ds.byCode[o.Code]
		if !ok {
			orphans++
			continue
		}
		m.Counts[o.Category] = o.Count
		// The statistics side often carries the nicer-cased name.
		if o.Name != "" {
			m.Name = o.Name
		}
	}

	if orphans > 0 {
		zap.L().Warn("census: observations without a matching boundary",
			zap.Int("orphans", orphans),
		)
	}

	sort.Slice(ds.Municipalities, func(i, j int) bool {
		return ds.Municipalities[i].Code < ds.Municipalities[j].Code
	})

	return ds
}

// Get returns the municipality with the given code, or nil.
func (d *Dataset) Get(code int64) *Municipality {
	return d.byCode[code]
}

// Len returns the number of joined municipalities.
func (d *Dataset) Len() int {
	return len(d.Municipalities)
}
