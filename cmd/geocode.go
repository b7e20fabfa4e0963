package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/dataio"
	"github.com/bozhu/estatemap/internal/model"
)

var (
	geocodeSource string
	geocodeIn     string
	geocodeOut    string
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve scraped listings to WGS-84 coordinates",
	Long: `Reads a raw listing CSV, resolves each community through the Amap POI
search with an address-geocoding fallback, converts the coordinates to
WGS-84, classifies them into district zones and writes the result CSV.

Quota exhaustion or a blocked key aborts the batch; rows resolved before
the abort are still written.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source := model.Source(geocodeSource)
		if !source.Valid() {
			return eris.Errorf("geocode: unknown source %q (want resale or newdev)", geocodeSource)
		}

		in, out := geocodeIn, geocodeOut
		if in == "" {
			in = dataPath(resaleRawFile)
			if source == model.SourceNewDev {
				in = dataPath(newdevRawFile)
			}
		}
		if out == "" {
			out = dataPath(resaleGeoFile)
			if source == model.SourceNewDev {
				out = dataPath(newdevGeoFile)
			}
		}

		raws, err := dataio.ReadRaw(in, source)
		if err != nil {
			return err
		}

		resolver, closeCache, err := newResolver(ctx)
		if err != nil {
			return err
		}
		defer closeCache()

		result := resolver.Batch(ctx, raws)
		if len(result.Records) > 0 {
			if err := dataio.WriteResolved(out, result.Records, source); err != nil {
				return err
			}
			zap.L().Info("geocoded listings written",
				zap.String("path", out),
				zap.Int("rows", len(result.Records)),
				zap.String("run_id", result.RunID),
			)
		}
		return result.Err
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeSource, "source", "resale", "dataset to geocode: resale or newdev")
	geocodeCmd.Flags().StringVar(&geocodeIn, "in", "", "input raw CSV (default under the data dir)")
	geocodeCmd.Flags().StringVar(&geocodeOut, "out", "", "output CSV path (default under the data dir)")
	rootCmd.AddCommand(geocodeCmd)
}
