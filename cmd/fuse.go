package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/dataio"
	"github.com/bozhu/estatemap/internal/fuse"
	"github.com/bozhu/estatemap/internal/mapexport"
	"github.com/bozhu/estatemap/internal/model"
)

var (
	fuseResaleIn string
	fuseNewdevIn string
	fuseOut      string
)

var fuseCmd = &cobra.Command{
	Use:   "fuse",
	Short: "Merge the geocoded resale and new-development datasets",
	Long: `Reads both geocoded CSVs, deduplicates by normalized community name,
merges records that appear in both sources (resale values win) and writes
the merged CSV.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resaleIn, newdevIn := fuseResaleIn, fuseNewdevIn
		if resaleIn == "" {
			resaleIn = dataPath(resaleGeoFile)
		}
		if newdevIn == "" {
			newdevIn = dataPath(newdevGeoFile)
		}
		out := fuseOut
		if out == "" {
			out = dataPath(mapexport.MergedCSVName)
		}

		resale, err := dataio.ReadResolved(resaleIn, model.SourceResale)
		if err != nil {
			return err
		}
		newdev, err := dataio.ReadResolved(newdevIn, model.SourceNewDev)
		if err != nil {
			return err
		}

		fused := fuse.Fuse(resale, newdev)
		if err := dataio.WriteFused(out, fused); err != nil {
			return err
		}
		zap.L().Info("merged dataset written",
			zap.String("path", out),
			zap.Int("resale", len(resale)),
			zap.Int("newdev", len(newdev)),
			zap.Int("fused", len(fused)),
		)
		return nil
	},
}

func init() {
	fuseCmd.Flags().StringVar(&fuseResaleIn, "resale", "", "geocoded resale CSV (default under the data dir)")
	fuseCmd.Flags().StringVar(&fuseNewdevIn, "newdev", "", "geocoded new-development CSV (default under the data dir)")
	fuseCmd.Flags().StringVar(&fuseOut, "out", "", "merged CSV path (default under the data dir)")
	rootCmd.AddCommand(fuseCmd)
}
