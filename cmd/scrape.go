package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/dataio"
	"github.com/bozhu/estatemap/internal/model"
	"github.com/bozhu/estatemap/internal/scrape"
)

var (
	scrapeSource string
	scrapePages  int
	scrapeOut    string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape listing data from the fang.com portal",
	Long: `Walks the portal index pages for the chosen source and writes the raw
listing rows as CSV. A page that fails twice is skipped; a verification
interstitial aborts the scrape with whatever was collected so far.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		source := model.Source(scrapeSource)
		if !source.Valid() {
			return eris.Errorf("scrape: unknown source %q (want resale or newdev)", scrapeSource)
		}

		if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
			return eris.Wrap(err, "scrape: create data dir")
		}

		job := scrape.Job{
			URLTemplate: cfg.Scrape.ResaleURLTemplate,
			Pages:       cfg.Scrape.ResalePages,
			Parse:       scrape.ParseResalePage,
			RetryPause:  cfg.Scrape.RetryPause(),
		}
		out := scrapeOut
		if out == "" {
			out = dataPath(resaleRawFile)
		}
		if source == model.SourceNewDev {
			job.URLTemplate = cfg.Scrape.NewDevURLTemplate
			job.Pages = cfg.Scrape.NewDevPages
			job.Parse = scrape.ParseNewDevPage
			if scrapeOut == "" {
				out = dataPath(newdevRawFile)
			}
		}
		if scrapePages > 0 {
			job.Pages = scrapePages
		}

		fetcher := scrape.NewFetcher(cfg.Scrape.Delay(), cfg.Scrape.Referer)
		records, scrapeErr := scrape.Run(cmd.Context(), fetcher, job)

		// A blocked scrape still writes the partial file before failing.
		if len(records) > 0 {
			if err := dataio.WriteRaw(out, records, source); err != nil {
				return err
			}
			zap.L().Info("raw listings written",
				zap.String("path", out),
				zap.Int("rows", len(records)),
			)
		}
		return scrapeErr
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", "resale", "dataset to scrape: resale or newdev")
	scrapeCmd.Flags().IntVar(&scrapePages, "pages", 0, "override the number of index pages to walk")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "output CSV path (default under the data dir)")
	rootCmd.AddCommand(scrapeCmd)
}
