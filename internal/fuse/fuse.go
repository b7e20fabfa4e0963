package fuse

import (
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/geo"
	"github.com/bozhu/estatemap/internal/model"
)

// Fuse merges the two independently geocoded record sets into one
// deduplicated set. Within-source duplicates are collapsed first (first
// occurrence wins), then records sharing a key across sources merge into a
// single record with provenance "both". Output order is stable: resale input
// order, with cross-source merges at the resale record's position, followed
// by unmatched new-development records in their input order. Every input
// record contributes to exactly one output record, so
// len(out) == number of distinct keys across both inputs.
func Fuse(resale, newdev []model.ResolvedRecord) []model.FusedRecord {
	resaleByKey, resaleOrder := dedupe(resale)
	newdevByKey, newdevOrder := dedupe(newdev)

	out := make([]model.FusedRecord, 0, len(resaleOrder)+len(newdevOrder))

	for _, key := range resaleOrder {
		r := resaleByKey[key]
		if n, ok := newdevByKey[key]; ok {
			out = append(out, merge(r, n))
			continue
		}
		out = append(out, single(r, model.ProvenanceResaleOnly))
	}

	for _, key := range newdevOrder {
		if _, ok := resaleByKey[key]; ok {
			continue
		}
		out = append(out, single(newdevByKey[key], model.ProvenanceNewOnly))
	}

	return out
}

// dedupe collapses records sharing a key within one source, keeping the
// first-encountered record, and preserves first-occurrence order.
func dedupe(records []model.ResolvedRecord) (map[string]model.ResolvedRecord, []string) {
	byKey := make(map[string]model.ResolvedRecord, len(records))
	order := make([]string, 0, len(records))

	for _, r := range records {
		key := Key(r.Name)
		if _, seen := byKey[key]; seen {
			zap.L().Debug("fuse: duplicate listing within source",
				zap.String("source", string(r.Source)),
				zap.String("name", r.Name),
			)
			continue
		}
		byKey[key] = r
		order = append(order, key)
	}

	return byKey, order
}

func single(r model.ResolvedRecord, p model.Provenance) model.FusedRecord {
	return model.FusedRecord{
		Name:         r.Name,
		Price:        r.Price,
		Address:      r.Address,
		BuildYear:    r.BuildYear,
		UnitsForSale: r.UnitsForSale,
		District:     r.District,
		Lng:          r.Lng,
		Lat:          r.Lat,
		Status:       r.Status,
		Provenance:   p,
	}
}

// merge combines a resale and a new-development record that share a key.
// Resale listings reflect lived-in communities, so their price and build
// year win whenever present; the coordinate and district follow whichever
// side actually resolved, resale on a tie.
func merge(r, n model.ResolvedRecord) model.FusedRecord {
	out := model.FusedRecord{
		Name:       r.Name,
		Provenance: model.ProvenanceBoth,
	}

	out.Price = firstNonEmpty(r.Price, n.Price)
	out.BuildYear = firstNonEmpty(r.BuildYear, n.BuildYear)
	out.UnitsForSale = firstNonEmpty(r.UnitsForSale, n.UnitsForSale)
	out.Address = firstNonEmpty(r.Address, n.Address)

	switch {
	case r.Status.Resolved():
		out.Lng, out.Lat, out.Status, out.District = r.Lng, r.Lat, r.Status, r.District
	case n.Status.Resolved():
		out.Lng, out.Lat, out.Status, out.District = n.Lng, n.Lat, n.Status, n.District
	default:
		out.Status = model.StatusNone
		out.District = firstNonEmpty(r.District, geo.DistrictUnclassified)
	}

	// Both sides resolved but disagree on the district: the rules above still
	// pick the resale side, but the disagreement is worth surfacing.
	if r.Status.Resolved() && n.Status.Resolved() && r.District != n.District {
		zap.L().Warn("fuse: sources disagree on district",
			zap.String("name", r.Name),
			zap.String("resale_district", r.District),
			zap.String("newdev_district", n.District),
		)
	}

	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
