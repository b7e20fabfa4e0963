package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/geo"
	"github.com/bozhu/estatemap/internal/geocache"
	"github.com/bozhu/estatemap/internal/resolve"
	"github.com/bozhu/estatemap/pkg/amap"
)

// Default working file names inside the data directory.
const (
	resaleRawFile = "gaoxin_esf_all.csv"
	newdevRawFile = "gaoxin_newhouse_all.csv"
	resaleGeoFile = "gaoxin_esf_all_geo.csv"
	newdevGeoFile = "gaoxin_newhouse_all_geo.csv"
)

func dataPath(name string) string {
	return filepath.Join(cfg.Data.Dir, name)
}

func newAmapClient() (*amap.Client, error) {
	if cfg.Amap.Key == "" {
		return nil, eris.New("amap key is required (set amap.key or ESTATEMAP_AMAP_KEY)")
	}
	return amap.NewClient(cfg.Amap.Key,
		amap.WithBaseURL(cfg.Amap.BaseURL),
		amap.WithPacer(amap.NewPacer(cfg.Amap.Delay())),
		amap.WithMaxRetries(cfg.Amap.MaxRetries),
		amap.WithDailyQuota(cfg.Amap.DailyQuota),
	), nil
}

func loadClassifier() (*geo.Classifier, error) {
	boundaries, err := geo.LoadBoundaries(cfg.Boundaries.Path)
	if err != nil {
		return nil, err
	}
	return geo.NewClassifier(boundaries), nil
}

// newResolver wires the full resolution stack. The returned closer shuts the
// cache down; it is a no-op when caching is disabled.
func newResolver(ctx context.Context) (*resolve.Resolver, func(), error) {
	client, err := newAmapClient()
	if err != nil {
		return nil, nil, err
	}
	classifier, err := loadClassifier()
	if err != nil {
		return nil, nil, err
	}

	var cache *geocache.Cache
	closer := func() {}
	if cfg.Cache.Enabled {
		cache, err = geocache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.Migrate(ctx); err != nil {
			cache.Close() //nolint:errcheck
			return nil, nil, err
		}
		closer = func() {
			if err := cache.Close(); err != nil {
				zap.L().Warn("closing geocode cache", zap.Error(err))
			}
		}
	}

	converter := geo.Converter{OffsetLng: cfg.Datum.OffsetLng, OffsetLat: cfg.Datum.OffsetLat}
	return resolve.New(client, converter, classifier, cache, cfg.Amap.City), closer, nil
}
