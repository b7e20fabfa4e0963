package mapexport

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bozhu/estatemap/internal/dataio"
	"github.com/bozhu/estatemap/internal/geo"
	"github.com/bozhu/estatemap/internal/model"
)

// Output file names within the export directory.
const (
	MergedCSVName  = "gaoxin_merged_all.csv"
	BoundariesName = "gaoxin_boundaries.geojson"
	MapHTMLName    = "gaoxin_map.html"
)

// Export writes the three run artifacts into dir. The writes are
// independent, so they run concurrently; the first failure cancels the rest.
func Export(ctx context.Context, dir string, records []model.FusedRecord, boundaries []geo.Boundary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "mapexport: create %s", dir)
	}

	points := Points(records)
	zap.L().Info("exporting artifacts",
		zap.String("dir", dir),
		zap.Int("records", len(records)),
		zap.Int("markers", len(points)),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return dataio.WriteFused(filepath.Join(dir, MergedCSVName), records)
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := BoundariesGeoJSON(boundaries)
		if err != nil {
			return err
		}
		return eris.Wrap(os.WriteFile(filepath.Join(dir, BoundariesName), data, 0o644), "mapexport: write boundaries")
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := RenderMapHTML(points, boundaries)
		if err != nil {
			return err
		}
		return eris.Wrap(os.WriteFile(filepath.Join(dir, MapHTMLName), page, 0o644), "mapexport: write map page")
	})
	return g.Wait()
}
