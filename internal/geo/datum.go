// Package geo provides datum conversion and district classification for
// coordinates returned by the mapping service.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// Datum identifies the coordinate reference system a coordinate is in.
type Datum string

const (
	// DatumGCJ02 is the vendor-local datum used by Amap responses.
	DatumGCJ02 Datum = "gcj02"
	// DatumWGS84 is the standard global datum used by everything downstream.
	DatumWGS84 Datum = "wgs84"
)

// Coordinate is a (longitude, latitude) pair tagged with its datum.
type Coordinate struct {
	Lng   float64
	Lat   float64
	Datum Datum
}

// Krasovsky 1940 ellipsoid parameters used by the GCJ-02 obfuscation.
const (
	semiMajorAxis     = 6378245.0
	eccentricitySq    = 0.00669342162296594323
	chinaRegionMinLng = 72.004
	chinaRegionMaxLng = 137.8347
	chinaRegionMinLat = 0.8293
	chinaRegionMaxLat = 55.8271
)

// Converter converts vendor-local (GCJ-02) coordinates to WGS-84 and applies
// a fixed empirical correction for the target city. The correction is
// subtracted after the general inverse transform; both offsets are
// configuration, not code.
type Converter struct {
	OffsetLng float64
	OffsetLat float64
}

// Convert converts a GCJ-02 coordinate to WGS-84. It refuses input already
// tagged WGS-84 so a coordinate can never be double-converted.
func (c Converter) Convert(in Coordinate) (Coordinate, error) {
	if in.Datum == DatumWGS84 {
		return Coordinate{}, eris.Errorf("geo: coordinate (%f, %f) already wgs84", in.Lng, in.Lat)
	}
	if in.Datum != DatumGCJ02 {
		return Coordinate{}, eris.Errorf("geo: unknown datum %q", in.Datum)
	}

	lng, lat := gcjToWGS(in.Lng, in.Lat)
	return Coordinate{
		Lng:   lng - c.OffsetLng,
		Lat:   lat - c.OffsetLat,
		Datum: DatumWGS84,
	}, nil
}

// gcjToWGS inverts the published GCJ-02 obfuscation by computing the forward
// offset at the input position and subtracting it. Coordinates outside the
// obfuscated region are passed through unchanged.
func gcjToWGS(lng, lat float64) (float64, float64) {
	if outsideChina(lng, lat) {
		return lng, lat
	}

	dLat := transformLat(lng-105.0, lat-35.0)
	dLng := transformLng(lng-105.0, lat-35.0)
	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - eccentricitySq*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((semiMajorAxis * (1 - eccentricitySq)) / (magic * sqrtMagic) * math.Pi)
	dLng = (dLng * 180.0) / (semiMajorAxis / sqrtMagic * math.Cos(radLat) * math.Pi)
	return lng - dLng, lat - dLat
}

func outsideChina(lng, lat float64) bool {
	return lng < chinaRegionMinLng || lng > chinaRegionMaxLng ||
		lat < chinaRegionMinLat || lat > chinaRegionMaxLat
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLng(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}
