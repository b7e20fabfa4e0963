package main

import (
	"github.com/spf13/cobra"

	"github.com/bozhu/estatemap/internal/dataio"
	"github.com/bozhu/estatemap/internal/fuse"
	"github.com/bozhu/estatemap/internal/mapexport"
	"github.com/bozhu/estatemap/internal/model"
)

var (
	exportResaleIn string
	exportNewdevIn string
	exportDir      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Produce the merged CSV, boundary GeoJSON and interactive map",
	Long: `Fuses the geocoded datasets and writes all publishable artifacts:
the merged CSV, the district boundaries as GeoJSON and a self-contained
Leaflet map page.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resaleIn, newdevIn := exportResaleIn, exportNewdevIn
		if resaleIn == "" {
			resaleIn = dataPath(resaleGeoFile)
		}
		if newdevIn == "" {
			newdevIn = dataPath(newdevGeoFile)
		}
		dir := exportDir
		if dir == "" {
			dir = cfg.Data.Dir
		}

		resale, err := dataio.ReadResolved(resaleIn, model.SourceResale)
		if err != nil {
			return err
		}
		newdev, err := dataio.ReadResolved(newdevIn, model.SourceNewDev)
		if err != nil {
			return err
		}
		classifier, err := loadClassifier()
		if err != nil {
			return err
		}

		fused := fuse.Fuse(resale, newdev)
		return mapexport.Export(cmd.Context(), dir, fused, classifier.Boundaries())
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportResaleIn, "resale", "", "geocoded resale CSV (default under the data dir)")
	exportCmd.Flags().StringVar(&exportNewdevIn, "newdev", "", "geocoded new-development CSV (default under the data dir)")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "artifact output directory (default the data dir)")
	rootCmd.AddCommand(exportCmd)
}
