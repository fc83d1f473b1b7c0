package export

import (
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb/geojson"
)

// WriteGeoJSON writes a FeatureCollection.
// Non-finite float properties are written as null.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		c := *f
		c.Properties = make(geojson.Properties, len(f.Properties))
		for k, v := range f.Properties {
			if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
				v = nil
			}
			c.Properties[k] = v
		}
		out.Append(&c)
	}

	data, err := out.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
