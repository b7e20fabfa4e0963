package amap

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Result is a single validated match from the service. Coordinates are in
// the vendor's GCJ-02 datum; conversion happens downstream.
type Result struct {
	Lng     float64
	Lat     float64
	Matched bool
}

// envelope is the common Amap REST response header. status is "1" on
// success, "0" on business failure with the reason in infocode/info.
type envelope struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	InfoCode string `json:"infocode"`
}

// poiResponse is the v5 place/text response body.
type poiResponse struct {
	envelope
	POIs []poi `json:"pois"`
}

type poi struct {
	Name     string   `json:"name"`
	Location location `json:"location"`
}

// geocodeResponse is the v3 geocode/geo response body.
type geocodeResponse struct {
	envelope
	Geocodes []geocode `json:"geocodes"`
}

type geocode struct {
	Location location `json:"location"`
}

// location normalizes the service's two wire shapes for a coordinate: the
// v3 API and most v5 responses use the string "lng,lat", but v5 sometimes
// returns {"lng": "...", "lat": "..."}. Validated here, at the boundary;
// nothing downstream sees the raw variants.
type location struct {
	Lng   float64
	Lat   float64
	Valid bool
}

func (l *location) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == `""` || trimmed == "[]" {
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "amap: location string")
		}
		return l.parsePair(s)
	}

	var obj struct {
		Lng json.Number `json:"lng"`
		Lat json.Number `json:"lat"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return eris.Wrap(err, "amap: location object")
	}
	lng, err := obj.Lng.Float64()
	if err != nil {
		return eris.Wrapf(err, "amap: location lng %q", obj.Lng)
	}
	lat, err := obj.Lat.Float64()
	if err != nil {
		return eris.Wrapf(err, "amap: location lat %q", obj.Lat)
	}
	l.Lng, l.Lat, l.Valid = lng, lat, true
	return nil
}

func (l *location) parsePair(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return eris.Errorf("amap: malformed location %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return eris.Wrapf(err, "amap: location lng %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return eris.Wrapf(err, "amap: location lat %q", s)
	}
	l.Lng, l.Lat, l.Valid = lng, lat, true
	return nil
}
