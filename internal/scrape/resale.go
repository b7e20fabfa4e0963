package scrape

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/bozhu/estatemap/internal/model"
)

// skipTypes lists the non-residential property types the portal mixes into
// the community index.
var skipTypes = map[string]bool{
	"写字楼": true,
	"商铺":  true,
	"车位":  true,
	"商业":  true,
	"办公":  true,
	"工业":  true,
	"厂房":  true,
	"仓库":  true,
}

var (
	buildYearRe = regexp.MustCompile(`(\d{4})年建成`)
	unitsRe     = regexp.MustCompile(`(\d+)\s*套在售`)
	priceRe     = regexp.MustCompile(`\d+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// ParseResalePage extracts community rows from one page of the second-hand
// community index. Non-residential entries are dropped.
func ParseResalePage(html []byte) ([]model.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse resale page")
	}

	var records []model.RawRecord
	doc.Find(`div[id^="houselist_"]`).Each(func(_ int, block *goquery.Selection) {
		name := strings.TrimSpace(block.Find("a.plotTit").First().Text())
		if name == "" {
			return
		}
		if ftype := strings.TrimSpace(block.Find("span.plotFangType").First().Text()); skipTypes[ftype] {
			return
		}

		rec := model.RawRecord{Name: name, Source: model.SourceResale}
		rec.Price = priceRe.FindString(block.Find("p.priceAverage span").First().Text())
		rec.Address, rec.Subarea = parseAddressLine(block)

		blockText := block.Text()
		if m := buildYearRe.FindStringSubmatch(blockText); m != nil {
			rec.BuildYear = m[1]
		}
		if m := unitsRe.FindStringSubmatch(blockText); m != nil {
			rec.UnitsForSale = m[1]
		}

		records = append(records, rec)
	})
	return records, nil
}

// parseAddressLine reads the second paragraph of the listing detail block:
// district and sub-area links followed by the street address text.
func parseAddressLine(block *goquery.Selection) (addr, subarea string) {
	line := block.Find("dd p").Eq(1)
	if line.Length() == 0 {
		return "", ""
	}

	links := line.Find("a")
	switch {
	case links.Length() >= 2:
		subarea = strings.TrimSpace(links.Eq(1).Text())
	case links.Length() == 1:
		subarea = strings.TrimSpace(links.Eq(0).Text())
	}

	addr = strings.TrimSpace(spaceRe.ReplaceAllString(line.Text(), " "))
	addr = strings.Trim(addr, "- ")
	return addr, subarea
}
