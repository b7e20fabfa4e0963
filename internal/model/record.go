// Package model defines the record types that flow through the pipeline.
package model

// Source identifies which listing dataset a record came from.
type Source string

const (
	// SourceResale is the second-hand (二手房) community dataset.
	SourceResale Source = "resale"
	// SourceNewDev is the new-development (新房) dataset.
	SourceNewDev Source = "newdev"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	return s == SourceResale || s == SourceNewDev
}

// RawRecord is one scraped listing row. Immutable once read by the pipeline.
// Price, BuildYear and UnitsForSale keep the source's string representation;
// an empty string means the portal did not publish the value.
type RawRecord struct {
	Name         string
	Price        string
	Address      string
	Subarea      string // 板块 hint from the listing page
	BuildYear    string
	UnitsForSale string
	SaleStatus   string // newdev only (在售 / 待售 / ...)
	Source       Source
}

// ResolutionStatus records which resolution stage produced a coordinate.
type ResolutionStatus string

const (
	// StatusPOI means the POI search returned a match.
	StatusPOI ResolutionStatus = "poi"
	// StatusGeocode means the address-geocoding fallback matched.
	StatusGeocode ResolutionStatus = "geocode"
	// StatusCached means the coordinate was reused from the geocode cache.
	StatusCached ResolutionStatus = "cached"
	// StatusNone means neither stage located the place. Not an error.
	StatusNone ResolutionStatus = "none"
)

// Resolved reports whether the status carries a usable coordinate.
func (s ResolutionStatus) Resolved() bool {
	return s == StatusPOI || s == StatusGeocode || s == StatusCached
}

// ResolvedRecord is a RawRecord after geocoding, datum conversion and
// district classification. One per RawRecord, 1:1, immutable after creation.
// Lng/Lat are WGS-84 and only meaningful when Status.Resolved().
type ResolvedRecord struct {
	RawRecord

	Lng      float64
	Lat      float64
	Status   ResolutionStatus
	District string
}

// Provenance records which source(s) contributed to a fused record.
type Provenance string

const (
	ProvenanceResaleOnly Provenance = "resale-only"
	ProvenanceNewOnly    Provenance = "new-only"
	ProvenanceBoth       Provenance = "both"
)

// FusedRecord is the merge of the ResolvedRecords that share an identity key,
// or a singleton with no counterpart in the other source.
type FusedRecord struct {
	Name         string
	Price        string
	Address      string
	BuildYear    string
	UnitsForSale string
	District     string
	Lng          float64
	Lat          float64
	Status       ResolutionStatus
	Provenance   Provenance
}
