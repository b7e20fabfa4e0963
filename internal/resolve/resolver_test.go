package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bozhu/estatemap/internal/geo"
	"github.com/bozhu/estatemap/internal/geocache"
	"github.com/bozhu/estatemap/internal/model"
	"github.com/bozhu/estatemap/pkg/amap"
)

// fakeGeocoder scripts responses per name and counts endpoint hits.
type fakeGeocoder struct {
	poiCalls int
	geoCalls int

	poiRes   map[string]*amap.Result
	geoRes   map[string]*amap.Result
	poiErr   error
	errAfter int // fail POI calls once poiCalls exceeds this, if > 0
	lastGeo  string
}

func (f *fakeGeocoder) SearchPOI(_ context.Context, keywords, _ string) (*amap.Result, error) {
	f.poiCalls++
	if f.poiErr != nil && (f.errAfter == 0 || f.poiCalls > f.errAfter) {
		return nil, f.poiErr
	}
	if r, ok := f.poiRes[keywords]; ok {
		return r, nil
	}
	return &amap.Result{}, nil
}

func (f *fakeGeocoder) GeocodeAddress(_ context.Context, address, _ string) (*amap.Result, error) {
	f.geoCalls++
	f.lastGeo = address
	if r, ok := f.geoRes[address]; ok {
		return r, nil
	}
	return &amap.Result{}, nil
}

// wideClassifier covers the whole test area with a single zone so every
// resolved point classifies into it.
func wideClassifier(t *testing.T) *geo.Classifier {
	t.Helper()
	b, err := geo.NewBoundary("新区", "#ff0000", [][2]float64{
		{108.0, 33.5}, {110.0, 33.5}, {110.0, 35.0}, {108.0, 35.0},
	})
	require.NoError(t, err)
	return geo.NewClassifier([]geo.Boundary{b})
}

func newTestResolver(t *testing.T, client Geocoder, cache *geocache.Cache) *Resolver {
	t.Helper()
	return New(client, geo.Converter{}, wideClassifier(t), cache, "西安")
}

func TestResolve_POIHitSkipsGeocodeFallback(t *testing.T) {
	fake := &fakeGeocoder{poiRes: map[string]*amap.Result{
		"万科城": {Lng: 108.8812, Lat: 34.2019, Matched: true},
	}}
	r := newTestResolver(t, fake, nil)

	rec, err := r.Resolve(context.Background(), model.RawRecord{Name: "万科城", Address: "锦业路", Source: model.SourceResale})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPOI, rec.Status)
	assert.Equal(t, "新区", rec.District)
	assert.Equal(t, 1, fake.poiCalls)
	assert.Equal(t, 0, fake.geoCalls, "POI hit must not trigger the geocode fallback")

	// Coordinates are converted out of the vendor datum.
	assert.NotEqual(t, 108.8812, rec.Lng)
	assert.InDelta(t, 108.8812, rec.Lng, 0.02)
	assert.InDelta(t, 34.2019, rec.Lat, 0.02)
}

func TestResolve_FallsBackToAddressGeocoding(t *testing.T) {
	fake := &fakeGeocoder{geoRes: map[string]*amap.Result{
		"锦业路12号某某公馆": {Lng: 108.87, Lat: 34.19, Matched: true},
	}}
	r := newTestResolver(t, fake, nil)

	rec, err := r.Resolve(context.Background(), model.RawRecord{Name: "某某公馆", Address: "锦业路12号", Source: model.SourceResale})
	require.NoError(t, err)
	assert.Equal(t, model.StatusGeocode, rec.Status)
	assert.Equal(t, 1, fake.poiCalls)
	assert.Equal(t, 1, fake.geoCalls)
	assert.Equal(t, "锦业路12号某某公馆", fake.lastGeo, "address query is street address plus name")
}

func TestResolve_AddressAlreadyContainingNameIsNotDoubled(t *testing.T) {
	fake := &fakeGeocoder{}
	r := newTestResolver(t, fake, nil)

	_, err := r.Resolve(context.Background(), model.RawRecord{Name: "万科城", Address: "高新区万科城东门"})
	require.NoError(t, err)
	assert.Equal(t, "高新区万科城东门", fake.lastGeo)
}

func TestResolve_BothStagesMissIsNotAnError(t *testing.T) {
	fake := &fakeGeocoder{}
	r := newTestResolver(t, fake, nil)

	rec, err := r.Resolve(context.Background(), model.RawRecord{Name: "查无此盘", Address: "某路"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusNone, rec.Status)
	assert.False(t, rec.Status.Resolved())
	assert.Equal(t, geo.DistrictUnclassified, rec.District)
	assert.Zero(t, rec.Lng)
	assert.Zero(t, rec.Lat)
}

func newTestCache(t *testing.T) *geocache.Cache {
	t.Helper()
	c, err := geocache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func TestResolve_CacheHitSkipsAPIEntirely(t *testing.T) {
	cache := newTestCache(t)
	fake := &fakeGeocoder{poiRes: map[string]*amap.Result{
		"万科城": {Lng: 108.8812, Lat: 34.2019, Matched: true},
	}}
	r := newTestResolver(t, fake, cache)
	ctx := context.Background()

	first, err := r.Resolve(ctx, model.RawRecord{Name: "万科城"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPOI, first.Status)
	assert.Equal(t, 1, fake.poiCalls)

	second, err := r.Resolve(ctx, model.RawRecord{Name: "万科城"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCached, second.Status)
	assert.Equal(t, 1, fake.poiCalls, "cache hit must not call the API")
	assert.Equal(t, 0, fake.geoCalls)

	// Same converted coordinate either way.
	assert.InDelta(t, first.Lng, second.Lng, 1e-9)
	assert.InDelta(t, first.Lat, second.Lat, 1e-9)
	assert.Equal(t, first.District, second.District)
}

func TestResolve_NegativeCacheHitSkipsAPI(t *testing.T) {
	cache := newTestCache(t)
	fake := &fakeGeocoder{}
	r := newTestResolver(t, fake, cache)
	ctx := context.Background()

	_, err := r.Resolve(ctx, model.RawRecord{Name: "查无此盘"})
	require.NoError(t, err)
	callsAfterFirst := fake.poiCalls + fake.geoCalls
	assert.Positive(t, callsAfterFirst)

	rec, err := r.Resolve(ctx, model.RawRecord{Name: "查无此盘"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusNone, rec.Status)
	assert.Equal(t, callsAfterFirst, fake.poiCalls+fake.geoCalls)
}

func TestBatch_PreservesOrderAndCountsResolution(t *testing.T) {
	fake := &fakeGeocoder{poiRes: map[string]*amap.Result{
		"万科城":  {Lng: 108.88, Lat: 34.20, Matched: true},
		"紫薇公馆": {Lng: 108.86, Lat: 34.19, Matched: true},
	}}
	r := newTestResolver(t, fake, nil)

	res := r.Batch(context.Background(), []model.RawRecord{
		{Name: "万科城"}, {Name: "查无此盘"}, {Name: "紫薇公馆"},
	})
	require.NoError(t, res.Err)
	require.NotEmpty(t, res.RunID)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "万科城", res.Records[0].Name)
	assert.Equal(t, "查无此盘", res.Records[1].Name)
	assert.Equal(t, "紫薇公馆", res.Records[2].Name)
	assert.Equal(t, model.StatusNone, res.Records[1].Status)
}

func TestBatch_QuotaAbortKeepsPartialResults(t *testing.T) {
	// First record resolves, then the client starts reporting quota
	// exhaustion.
	fake := &fakeGeocoder{
		poiRes:   map[string]*amap.Result{"万科城": {Lng: 108.88, Lat: 34.20, Matched: true}},
		poiErr:   amap.ErrQuotaExhausted,
		errAfter: 1,
	}
	r := newTestResolver(t, fake, nil)

	res := r.Batch(context.Background(), []model.RawRecord{
		{Name: "万科城"}, {Name: "紫薇公馆"}, {Name: "某某花园"},
	})

	require.Error(t, res.Err)
	require.ErrorIs(t, res.Err, amap.ErrQuotaExhausted)
	assert.Len(t, res.Records, 1, "records resolved before the abort survive")
	assert.Equal(t, "万科城", res.Records[0].Name)
}
