package geo

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature properties read from the world file
const (
	PropName  = "name"
	PropCode  = "iso_a3"
	PropValue = "value"
)

// MissingCode is what Natural Earth uses for countries without an ISO code
const MissingCode = "-99"

// CodeOverrides maps a world feature name to the entity code the dataset
// uses for it. Natural Earth leaves these as -99 or disagrees with OWID.
var CodeOverrides = map[string]string{
	"Norway":     "NOR",
	"France":     "FRA",
	"N. Cyprus":  "OWID_NCY",
	"Somaliland": "SOM",
	"Kosovo":     "OWID_KOS",
}

// SupplementalGDP fills GDP per capita for entities the dataset has none for
var SupplementalGDP = map[string]float64{
	"TKM": 6966.64,
}

// Country is one world feature with its resolved code
type Country struct {
	Name     string
	Code     string
	Geometry orb.Geometry
}

// World is the set of country shapes used by the map reports
type World struct {
	Countries []Country
	byCode    map[string]int
}

// LoadWorld reads a GeoJSON FeatureCollection with name and iso_a3
// properties and applies CodeOverrides by name
func LoadWorld(r io.Reader) (*World, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read world geojson: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode world geojson: %w", err)
	}

	w := &World{
		Countries: make([]Country, 0, len(fc.Features)),
		byCode:    make(map[string]int, len(fc.Features)),
	}

	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		name := f.Properties.MustString(PropName, "")
		code := f.Properties.MustString(PropCode, MissingCode)
		if override, ok := CodeOverrides[name]; ok {
			code = override
		}

		c := Country{Name: name, Code: code, Geometry: f.Geometry}
		if code != MissingCode {
			if _, dup := w.byCode[code]; !dup {
				w.byCode[code] = len(w.Countries)
			}
		}
		w.Countries = append(w.Countries, c)
	}

	return w, nil
}

// LoadWorldFile reads the world GeoJSON from disk
func LoadWorldFile(path string) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open world geojson: %w", err)
	}
	defer f.Close()

	return LoadWorld(f)
}

// Lookup returns the country with the given code
func (w *World) Lookup(code string) (Country, bool) {
	if w == nil {
		return Country{}, false
	}
	i, ok := w.byCode[code]
	if !ok {
		return Country{}, false
	}
	return w.Countries[i], true
}

// Codes returns all resolved codes, sorted
func (w *World) Codes() []string {
	codes := make([]string, 0, len(w.byCode))
	for c := range w.byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Bound returns the bounding box of every country
func (w *World) Bound() orb.Bound {
	var b orb.Bound
	first := true
	for _, c := range w.Countries {
		cb := c.Geometry.Bound()
		if first {
			b = cb
			first = false
			continue
		}
		b = b.Union(cb)
	}
	return b
}
