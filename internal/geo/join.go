package geo

import (
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// JoinedCountry is a data value with the geometry it matched, if any
type JoinedCountry struct {
	Value   contracts.GeoValue
	Country Country // zero when unmatched
}

// Joined is the result of a left join from data values onto world shapes
type Joined struct {
	Rows      []JoinedCountry
	Unmatched []string // entity ids without a shape
	world     *World
}

// Join attaches geometries to values by entity code.
// Every value is kept; values without a shape are listed in Unmatched.
func Join(world *World, values []contracts.GeoValue) *Joined {
	j := &Joined{
		Rows:      make([]JoinedCountry, 0, len(values)),
		Unmatched: make([]string, 0),
		world:     world,
	}

	for _, v := range values {
		country, ok := world.Lookup(v.Entity)
		v.Matched = ok
		if v.Name == "" && ok {
			v.Name = country.Name
		}
		if !ok {
			j.Unmatched = append(j.Unmatched, v.Entity)
		}
		j.Rows = append(j.Rows, JoinedCountry{Value: v, Country: country})
	}

	return j
}

// World returns the world the join was made against
func (j *Joined) World() *World {
	return j.world
}

// Matched returns only rows that found a shape
func (j *Joined) Matched() []JoinedCountry {
	out := make([]JoinedCountry, 0, len(j.Rows))
	for _, r := range j.Rows {
		if r.Value.Matched {
			out = append(out, r)
		}
	}
	return out
}

// FeatureCollection renders matched rows as GeoJSON features
// carrying name, iso_a3 and value properties
func (j *Joined) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range j.Matched() {
		f := geojson.NewFeature(r.Country.Geometry)
		f.Properties[PropName] = r.Country.Name
		f.Properties[PropCode] = r.Value.Entity
		f.Properties[PropValue] = r.Value.Value
		fc.Append(f)
	}
	return fc
}

// WithSupplemental fills values from supplemental. An entity whose value is 0
// (missing in the dataset) takes the supplemental value; absent entities are
// appended in code order.
func WithSupplemental(values []contracts.GeoValue, supplemental map[string]float64) []contracts.GeoValue {
	out := make([]contracts.GeoValue, len(values), len(values)+len(supplemental))
	copy(out, values)

	present := make(map[string]struct{}, len(values))
	for i, v := range out {
		present[v.Entity] = struct{}{}
		if s, ok := supplemental[v.Entity]; ok && v.Value == 0 {
			out[i].Value = s
		}
	}

	codes := make([]string, 0, len(supplemental))
	for code := range supplemental {
		if _, ok := present[code]; !ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	for _, code := range codes {
		out = append(out, contracts.GeoValue{Entity: code, Value: supplemental[code]})
	}
	return out
}
