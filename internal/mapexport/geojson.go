package mapexport

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/bozhu/estatemap/internal/geo"
)

// BoundariesGeoJSON renders the district boundaries as a GeoJSON
// FeatureCollection, one polygon feature per district with its display
// color in the properties.
func BoundariesGeoJSON(boundaries []geo.Boundary) ([]byte, error) {
	fc := &geojson.FeatureCollection{}
	for _, b := range boundaries {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: b.Polygon(),
			Properties: map[string]interface{}{
				"name":  b.Name,
				"color": b.Color,
			},
		})
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "mapexport: marshal boundaries")
	}
	return data, nil
}
