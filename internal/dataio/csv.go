// Package dataio reads and writes the pipeline's CSV files. All files are
// UTF-8 with a BOM so spreadsheet software opens the Chinese headers
// correctly; readers accept files with or without one.
package dataio

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/bozhu/estatemap/internal/model"
)

// Raw listing columns, matching what the portals publish.
const (
	colResaleName  = "小区名称"
	colResalePrice = "均价(元/㎡)"
	colAddress     = "地址"
	colSubarea     = "板块"
	colBuildYear   = "建成年份"
	colUnits       = "在售套数"

	colNewName    = "楼盘名称"
	colNewPrice   = "参考均价(元/㎡)"
	colNewAddress = "地址/位置"
	colNewStatus  = "状态"
)

// Resolution columns appended to a raw file by the geocode step.
const (
	colLng      = "经度"
	colLat      = "纬度"
	colAccuracy = "坐标精度"
	colDistrict = "片区分类"
)

// Fused output columns.
var fusedHeader = []string{"名称", "均价(元/㎡)", "地址", "经度", "纬度", "片区", "类型", "建成年份", "在售套数"}

// accuracyLabels maps resolution statuses to the human-readable 坐标精度
// vocabulary used in the output files.
var accuracyLabels = map[model.ResolutionStatus]string{
	model.StatusPOI:     "POI精确",
	model.StatusGeocode: "地理编码",
	model.StatusCached:  "缓存",
	model.StatusNone:    "",
}

func statusFromAccuracy(label string) model.ResolutionStatus {
	for status, l := range accuracyLabels {
		if l == label && label != "" {
			return status
		}
	}
	return model.StatusNone
}

// table is a header-indexed CSV, read in full. Lookups by column name
// tolerate extra columns and arbitrary column order.
type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataio: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	// Strips the BOM when present, passes through when absent.
	r := csv.NewReader(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, eris.Errorf("dataio: %s is empty", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataio: read header of %s", path)
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, name := range header {
		t.index[name] = i
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataio: read %s", path)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (t *table) require(path string, cols ...string) error {
	for _, col := range cols {
		if _, ok := t.index[col]; !ok {
			return eris.Errorf("dataio: %s is missing column %q", path, col)
		}
	}
	return nil
}

// ReadRaw reads a scraped listing file for the given source.
func ReadRaw(path string, source model.Source) ([]model.RawRecord, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	var records []model.RawRecord
	switch source {
	case model.SourceResale:
		if err := t.require(path, colResaleName); err != nil {
			return nil, err
		}
		for _, row := range t.rows {
			records = append(records, model.RawRecord{
				Name:         t.get(row, colResaleName),
				Price:        t.get(row, colResalePrice),
				Address:      t.get(row, colAddress),
				Subarea:      t.get(row, colSubarea),
				BuildYear:    t.get(row, colBuildYear),
				UnitsForSale: t.get(row, colUnits),
				Source:       source,
			})
		}
	case model.SourceNewDev:
		if err := t.require(path, colNewName); err != nil {
			return nil, err
		}
		for _, row := range t.rows {
			records = append(records, model.RawRecord{
				Name:       t.get(row, colNewName),
				Price:      t.get(row, colNewPrice),
				Address:    t.get(row, colNewAddress),
				SaleStatus: t.get(row, colNewStatus),
				Source:     source,
			})
		}
	default:
		return nil, eris.Errorf("dataio: unknown source %q", source)
	}
	return records, nil
}

// ReadResolved reads a geocoded listing file back into memory, typically as
// input to the fuse step.
func ReadResolved(path string, source model.Source) ([]model.ResolvedRecord, error) {
	raws, err := ReadRaw(path, source)
	if err != nil {
		return nil, err
	}
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.require(path, colLng, colLat, colAccuracy, colDistrict); err != nil {
		return nil, err
	}

	records := make([]model.ResolvedRecord, 0, len(raws))
	for i, row := range t.rows {
		rec := model.ResolvedRecord{
			RawRecord: raws[i],
			Status:    statusFromAccuracy(t.get(row, colAccuracy)),
			District:  t.get(row, colDistrict),
		}
		if rec.Status.Resolved() {
			rec.Lng, err = strconv.ParseFloat(t.get(row, colLng), 64)
			if err != nil {
				return nil, eris.Wrapf(err, "dataio: %s row %d: bad longitude", path, i+2)
			}
			rec.Lat, err = strconv.ParseFloat(t.get(row, colLat), 64)
			if err != nil {
				return nil, eris.Wrapf(err, "dataio: %s row %d: bad latitude", path, i+2)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dataio: create %s", path)
	}

	// utf-8-sig output, same as the files the portals' consumers expect.
	bw := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(bw)

	if err := w.Write(header); err != nil {
		f.Close()
		return eris.Wrapf(err, "dataio: write header of %s", path)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return eris.Wrapf(err, "dataio: write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return eris.Wrapf(err, "dataio: flush %s", path)
	}
	if err := bw.Close(); err != nil {
		f.Close()
		return eris.Wrapf(err, "dataio: finish %s", path)
	}
	return eris.Wrapf(f.Close(), "dataio: close %s", path)
}

func formatCoord(rec model.ResolvedRecord) (lng, lat string) {
	if !rec.Status.Resolved() {
		return "", ""
	}
	return strconv.FormatFloat(rec.Lng, 'f', 6, 64), strconv.FormatFloat(rec.Lat, 'f', 6, 64)
}

// WriteRaw writes a scraped listing file for the given source.
func WriteRaw(path string, records []model.RawRecord, source model.Source) error {
	var header []string
	var rows [][]string
	switch source {
	case model.SourceResale:
		header = []string{colResaleName, colResalePrice, colAddress, colSubarea, colBuildYear, colUnits}
		for _, r := range records {
			rows = append(rows, []string{r.Name, r.Price, r.Address, r.Subarea, r.BuildYear, r.UnitsForSale})
		}
	case model.SourceNewDev:
		header = []string{colNewName, colNewPrice, colNewAddress, colNewStatus}
		for _, r := range records {
			rows = append(rows, []string{r.Name, r.Price, r.Address, r.SaleStatus})
		}
	default:
		return eris.Errorf("dataio: unknown source %q", source)
	}
	return writeCSV(path, header, rows)
}

// WriteResolved writes a geocoded listing file: the raw columns plus
// coordinates, accuracy and district classification.
func WriteResolved(path string, records []model.ResolvedRecord, source model.Source) error {
	extra := []string{colLng, colLat, colAccuracy, colDistrict}
	var header []string
	var rows [][]string
	switch source {
	case model.SourceResale:
		header = append([]string{colResaleName, colResalePrice, colAddress, colSubarea, colBuildYear, colUnits}, extra...)
		for _, r := range records {
			lng, lat := formatCoord(r)
			rows = append(rows, []string{
				r.Name, r.Price, r.Address, r.Subarea, r.BuildYear, r.UnitsForSale,
				lng, lat, accuracyLabels[r.Status], r.District,
			})
		}
	case model.SourceNewDev:
		header = append([]string{colNewName, colNewPrice, colNewAddress, colNewStatus}, extra...)
		for _, r := range records {
			lng, lat := formatCoord(r)
			rows = append(rows, []string{
				r.Name, r.Price, r.Address, r.SaleStatus,
				lng, lat, accuracyLabels[r.Status], r.District,
			})
		}
	default:
		return eris.Errorf("dataio: unknown source %q", source)
	}
	return writeCSV(path, header, rows)
}

// typeLabels maps provenance to the 类型 vocabulary of the merged file.
var typeLabels = map[model.Provenance]string{
	model.ProvenanceResaleOnly: "二手房",
	model.ProvenanceNewOnly:    "新房",
	model.ProvenanceBoth:       "二手房/新房",
}

// WriteFused writes the merged output file.
func WriteFused(path string, records []model.FusedRecord) error {
	var rows [][]string
	for _, r := range records {
		var lng, lat string
		if r.Status.Resolved() {
			lng = strconv.FormatFloat(r.Lng, 'f', 6, 64)
			lat = strconv.FormatFloat(r.Lat, 'f', 6, 64)
		}
		rows = append(rows, []string{
			r.Name, r.Price, r.Address, lng, lat, r.District,
			typeLabels[r.Provenance], r.BuildYear, r.UnitsForSale,
		})
	}
	return writeCSV(path, fusedHeader, rows)
}
