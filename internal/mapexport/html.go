package mapexport

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"

	"github.com/rotisserie/eris"

	"github.com/bozhu/estatemap/internal/geo"
)

//go:embed assets/map.tmpl.html
var mapTemplateText string

var mapTemplate = template.Must(template.New("map").Parse(mapTemplateText))

// zone is a district boundary in the shape the Leaflet page consumes:
// coords as (lat, lng) pairs, the reverse of GeoJSON order.
type zone struct {
	Name   string       `json:"name"`
	Color  string       `json:"color"`
	Coords [][2]float64 `json:"coords"`
}

func zonesFromBoundaries(boundaries []geo.Boundary) []zone {
	zones := make([]zone, 0, len(boundaries))
	for _, b := range boundaries {
		flat := b.Polygon().LinearRing(0).FlatCoords()
		coords := make([][2]float64, 0, len(flat)/2)
		for i := 0; i+1 < len(flat); i += 2 {
			coords = append(coords, [2]float64{flat[i+1], flat[i]})
		}
		zones = append(zones, zone{Name: b.Name, Color: b.Color, Coords: coords})
	}
	return zones
}

type mapPage struct {
	Total     int
	Zones     []zone
	DataJSON  template.JS
	ZonesJSON template.JS
	CenterLat float64
	CenterLng float64
}

// RenderMapHTML renders the self-contained interactive map page.
func RenderMapHTML(points []Point, boundaries []geo.Boundary) ([]byte, error) {
	zones := zonesFromBoundaries(boundaries)

	dataJSON, err := json.Marshal(points)
	if err != nil {
		return nil, eris.Wrap(err, "mapexport: marshal points")
	}
	zonesJSON, err := json.Marshal(zones)
	if err != nil {
		return nil, eris.Wrap(err, "mapexport: marshal zones")
	}

	centerLat, centerLng := center(points)
	var buf bytes.Buffer
	err = mapTemplate.Execute(&buf, mapPage{
		Total:     len(points),
		Zones:     zones,
		DataJSON:  template.JS(dataJSON),  //nolint:gosec
		ZonesJSON: template.JS(zonesJSON), //nolint:gosec
		CenterLat: centerLat,
		CenterLng: centerLng,
	})
	if err != nil {
		return nil, eris.Wrap(err, "mapexport: render map page")
	}
	return buf.Bytes(), nil
}

// center averages the marker positions so the initial view frames the data.
// Falls back to the Gaoxin district center with no points.
func center(points []Point) (lat, lng float64) {
	if len(points) == 0 {
		return 34.20, 108.87
	}
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return lat / n, lng / n
}
