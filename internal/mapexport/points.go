// Package mapexport produces the publishable artifacts of a run: the merged
// CSV, a GeoJSON file with the district boundaries and a self-contained
// interactive Leaflet map.
package mapexport

import (
	"strconv"

	"github.com/bozhu/estatemap/internal/model"
)

// Point is one map marker, with the short JSON keys the map page expects.
// Only resolved records become points.
type Point struct {
	Name     string  `json:"n"`
	Price    *int    `json:"p"`
	Lng      float64 `json:"lng"`
	Lat      float64 `json:"lat"`
	District string  `json:"z"`
	Type     string  `json:"t"`
	Year     *int    `json:"y,omitempty"`
	Units    *int    `json:"u,omitempty"`
}

// typeLabel mirrors the 类型 vocabulary of the merged CSV.
func typeLabel(p model.Provenance) string {
	switch p {
	case model.ProvenanceNewOnly:
		return "新房"
	case model.ProvenanceBoth:
		return "二手房/新房"
	default:
		return "二手房"
	}
}

func parseInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Some prices arrive as floats.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		n = int(f)
	}
	return &n
}

// Points converts fused records to map markers, dropping unresolved ones.
func Points(records []model.FusedRecord) []Point {
	points := make([]Point, 0, len(records))
	for _, r := range records {
		if !r.Status.Resolved() {
			continue
		}
		points = append(points, Point{
			Name:     r.Name,
			Price:    parseInt(r.Price),
			Lng:      r.Lng,
			Lat:      r.Lat,
			District: r.District,
			Type:     typeLabel(r.Provenance),
			Year:     parseInt(r.BuildYear),
			Units:    parseInt(r.UnitsForSale),
		})
	}
	return points
}
