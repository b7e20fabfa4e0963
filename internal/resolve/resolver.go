// Package resolve turns scraped listing rows into georeferenced records. It
// drives the two-stage Amap lookup (POI search first, address geocoding as
// fallback), converts the vendor datum to WGS-84 and classifies each point
// into a district zone.
package resolve

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/geo"
	"github.com/bozhu/estatemap/internal/geocache"
	"github.com/bozhu/estatemap/internal/model"
	"github.com/bozhu/estatemap/pkg/amap"
)

// Geocoder is the subset of the Amap client the resolver needs.
type Geocoder interface {
	SearchPOI(ctx context.Context, keywords, region string) (*amap.Result, error)
	GeocodeAddress(ctx context.Context, address, city string) (*amap.Result, error)
}

// Resolver resolves community names to classified WGS-84 coordinates.
type Resolver struct {
	client     Geocoder
	converter  geo.Converter
	classifier *geo.Classifier
	cache      *geocache.Cache // nil disables caching
	city       string
}

// New creates a Resolver. cache may be nil.
func New(client Geocoder, conv geo.Converter, cl *geo.Classifier, cache *geocache.Cache, city string) *Resolver {
	return &Resolver{
		client:     client,
		converter:  conv,
		classifier: cl,
		cache:      cache,
		city:       city,
	}
}

// Resolve geocodes a single raw record. A record the service cannot place
// comes back with StatusNone and no error; errors are reserved for quota,
// blocking and transport failures.
func (r *Resolver) Resolve(ctx context.Context, raw model.RawRecord) (model.ResolvedRecord, error) {
	rec := model.ResolvedRecord{RawRecord: raw, Status: model.StatusNone, District: geo.DistrictUnclassified}

	if r.cache != nil {
		hit, err := r.cache.Get(ctx, raw.Name)
		if err != nil {
			return rec, err
		}
		if hit != nil {
			if !hit.Status.Resolved() {
				return rec, nil
			}
			return r.finish(rec, hit.Lng, hit.Lat, model.StatusCached)
		}
	}

	res, err := r.client.SearchPOI(ctx, raw.Name, r.city)
	if err != nil {
		return rec, err
	}
	if res.Matched {
		if err := r.remember(ctx, raw, res, model.StatusPOI); err != nil {
			return rec, err
		}
		return r.finish(rec, res.Lng, res.Lat, model.StatusPOI)
	}

	if addr := r.fullAddress(raw); addr != "" {
		res, err = r.client.GeocodeAddress(ctx, addr, r.city)
		if err != nil {
			return rec, err
		}
		if res.Matched {
			if err := r.remember(ctx, raw, res, model.StatusGeocode); err != nil {
				return rec, err
			}
			return r.finish(rec, res.Lng, res.Lat, model.StatusGeocode)
		}
	}

	zap.L().Debug("community could not be located",
		zap.String("name", raw.Name),
		zap.String("source", string(raw.Source)),
	)
	if err := r.remember(ctx, raw, &amap.Result{}, model.StatusNone); err != nil {
		return rec, err
	}
	return rec, nil
}

// finish converts a GCJ-02 hit to WGS-84 and classifies it.
func (r *Resolver) finish(rec model.ResolvedRecord, lng, lat float64, status model.ResolutionStatus) (model.ResolvedRecord, error) {
	wgs, err := r.converter.Convert(geo.Coordinate{Lng: lng, Lat: lat, Datum: geo.DatumGCJ02})
	if err != nil {
		return rec, eris.Wrapf(err, "resolve: convert %q", rec.Name)
	}
	district, err := r.classifier.Classify(wgs)
	if err != nil {
		return rec, eris.Wrapf(err, "resolve: classify %q", rec.Name)
	}

	rec.Lng = wgs.Lng
	rec.Lat = wgs.Lat
	rec.Status = status
	rec.District = district
	return rec, nil
}

func (r *Resolver) remember(ctx context.Context, raw model.RawRecord, res *amap.Result, status model.ResolutionStatus) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Put(ctx, geocache.Entry{
		Name:   raw.Name,
		Lng:    res.Lng,
		Lat:    res.Lat,
		Status: status,
		Source: string(raw.Source),
	})
}

// fullAddress builds the fallback geocoding query. The community name alone
// is too ambiguous for the address geocoder, so the scraped street address
// is prefixed when present.
func (r *Resolver) fullAddress(raw model.RawRecord) string {
	addr := strings.TrimSpace(raw.Address)
	if addr == "" {
		return strings.TrimSpace(raw.Name)
	}
	if strings.Contains(addr, raw.Name) {
		return addr
	}
	return addr + raw.Name
}

// BatchResult is the outcome of resolving a slice of raw records. Records
// holds every record resolved before Err stopped the batch, so a quota or
// block abort still yields a usable partial output.
type BatchResult struct {
	RunID   string
	Records []model.ResolvedRecord
	Err     error
}

// Batch resolves records sequentially, preserving input order. Quota
// exhaustion and blocking abort the batch; per-record no-matches do not.
func (r *Resolver) Batch(ctx context.Context, raws []model.RawRecord) BatchResult {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("resolving batch", zap.Int("records", len(raws)), zap.String("city", r.city))

	out := BatchResult{RunID: runID, Records: make([]model.ResolvedRecord, 0, len(raws))}
	resolved := 0
	for i, raw := range raws {
		rec, err := r.Resolve(ctx, raw)
		if err != nil {
			log.Error("batch aborted",
				zap.Int("completed", i),
				zap.Int("remaining", len(raws)-i),
				zap.Error(err),
			)
			out.Err = eris.Wrapf(err, "resolve: batch aborted after %d of %d records", i, len(raws))
			return out
		}
		out.Records = append(out.Records, rec)
		if rec.Status.Resolved() {
			resolved++
		}
		if (i+1)%50 == 0 {
			log.Info("batch progress", zap.Int("done", i+1), zap.Int("total", len(raws)))
		}
	}

	log.Info("batch complete",
		zap.Int("records", len(out.Records)),
		zap.Int("resolved", resolved),
		zap.Int("unresolved", len(out.Records)-resolved),
	)
	return out
}
