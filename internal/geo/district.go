package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// DistrictUnclassified is the sentinel label for points no boundary contains.
const DistrictUnclassified = "其他"

// Boundary is one named sub-district with its defining polygon in WGS-84.
// Boundaries are read-only after load and safe to share.
type Boundary struct {
	Name    string
	Color   string
	polygon *geom.Polygon
}

// Polygon returns the boundary shape for export.
func (b Boundary) Polygon() *geom.Polygon { return b.polygon }

// NewBoundary builds a Boundary from a ring of (lng, lat) pairs. The ring is
// closed automatically when the input leaves it open.
func NewBoundary(name, color string, ring [][2]float64) (Boundary, error) {
	if name == "" {
		return Boundary{}, eris.New("geo: boundary name is required")
	}
	if len(ring) < 3 {
		return Boundary{}, eris.Errorf("geo: boundary %q needs at least 3 vertices, got %d", name, len(ring))
	}

	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	flat := make([]float64, 0, len(ring)*2)
	for _, v := range ring {
		flat = append(flat, v[0], v[1])
	}

	polygon := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
	return Boundary{Name: name, Color: color, polygon: polygon}, nil
}

// Contains reports whether the WGS-84 point lies inside the boundary.
func (b Boundary) Contains(c Coordinate) bool {
	ring := b.polygon.LinearRing(0)
	return xy.IsPointInRing(geom.XY, geom.Coord{c.Lng, c.Lat}, ring.FlatCoords())
}

// Classifier maps a WGS-84 coordinate to a district label. Boundaries are
// tested in configuration order; the first containing boundary wins, which
// keeps overlapping definitions deterministic.
type Classifier struct {
	boundaries []Boundary
}

// NewClassifier creates a Classifier over the given ordered boundary set.
func NewClassifier(boundaries []Boundary) *Classifier {
	return &Classifier{boundaries: boundaries}
}

// Boundaries returns the configured boundary set in priority order.
func (cl *Classifier) Boundaries() []Boundary { return cl.boundaries }

// Classify returns the label of the first boundary containing the coordinate,
// or DistrictUnclassified. Only WGS-84 input is accepted.
func (cl *Classifier) Classify(c Coordinate) (string, error) {
	if c.Datum != DatumWGS84 {
		return "", eris.Errorf("geo: classify requires wgs84 input, got %q", c.Datum)
	}
	for _, b := range cl.boundaries {
		if b.Contains(c) {
			return b.Name, nil
		}
	}
	return DistrictUnclassified, nil
}
