package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/dataio"
	"github.com/bozhu/estatemap/internal/fuse"
	"github.com/bozhu/estatemap/internal/mapexport"
	"github.com/bozhu/estatemap/internal/model"
	"github.com/bozhu/estatemap/internal/scrape"
)

var runSkipScrape bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scrape, geocode, fuse, export",
	Long: `Runs every stage end to end. Each stage writes its working file under
the data directory, so a partially completed run can be resumed with the
individual subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
			return eris.Wrap(err, "run: create data dir")
		}

		var resaleRaw, newdevRaw []model.RawRecord
		var err error
		if runSkipScrape {
			resaleRaw, err = dataio.ReadRaw(dataPath(resaleRawFile), model.SourceResale)
			if err != nil {
				return err
			}
			newdevRaw, err = dataio.ReadRaw(dataPath(newdevRawFile), model.SourceNewDev)
			if err != nil {
				return err
			}
		} else {
			resaleRaw, newdevRaw, err = scrapeBoth(ctx)
			if err != nil {
				return err
			}
		}

		resolver, closeCache, err := newResolver(ctx)
		if err != nil {
			return err
		}
		defer closeCache()

		resaleRes := resolver.Batch(ctx, resaleRaw)
		if len(resaleRes.Records) > 0 {
			if werr := dataio.WriteResolved(dataPath(resaleGeoFile), resaleRes.Records, model.SourceResale); werr != nil {
				return werr
			}
		}
		if resaleRes.Err != nil {
			return resaleRes.Err
		}

		newdevRes := resolver.Batch(ctx, newdevRaw)
		if len(newdevRes.Records) > 0 {
			if werr := dataio.WriteResolved(dataPath(newdevGeoFile), newdevRes.Records, model.SourceNewDev); werr != nil {
				return werr
			}
		}
		if newdevRes.Err != nil {
			return newdevRes.Err
		}

		classifier, err := loadClassifier()
		if err != nil {
			return err
		}
		fused := fuse.Fuse(resaleRes.Records, newdevRes.Records)
		if err := mapexport.Export(ctx, cfg.Data.Dir, fused, classifier.Boundaries()); err != nil {
			return err
		}

		zap.L().Info("pipeline complete",
			zap.Int("resale", len(resaleRes.Records)),
			zap.Int("newdev", len(newdevRes.Records)),
			zap.Int("fused", len(fused)),
			zap.String("dir", cfg.Data.Dir),
		)
		return nil
	},
}

// scrapeBoth walks both portal indexes with one shared fetcher and persists
// the raw files as it goes.
func scrapeBoth(ctx context.Context) (resale, newdev []model.RawRecord, err error) {
	fetcher := scrape.NewFetcher(cfg.Scrape.Delay(), cfg.Scrape.Referer)

	resale, err = scrape.Run(ctx, fetcher, scrape.Job{
		URLTemplate: cfg.Scrape.ResaleURLTemplate,
		Pages:       cfg.Scrape.ResalePages,
		Parse:       scrape.ParseResalePage,
		RetryPause:  cfg.Scrape.RetryPause(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err = dataio.WriteRaw(dataPath(resaleRawFile), resale, model.SourceResale); err != nil {
		return nil, nil, err
	}

	newdev, err = scrape.Run(ctx, fetcher, scrape.Job{
		URLTemplate: cfg.Scrape.NewDevURLTemplate,
		Pages:       cfg.Scrape.NewDevPages,
		Parse:       scrape.ParseNewDevPage,
		RetryPause:  cfg.Scrape.RetryPause(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err = dataio.WriteRaw(dataPath(newdevRawFile), newdev, model.SourceNewDev); err != nil {
		return nil, nil, err
	}
	return resale, newdev, nil
}

func init() {
	runCmd.Flags().BoolVar(&runSkipScrape, "skip-scrape", false, "reuse the raw CSVs already in the data dir")
	rootCmd.AddCommand(runCmd)
}
