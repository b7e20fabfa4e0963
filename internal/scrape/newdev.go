package scrape

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/bozhu/estatemap/internal/model"
)

// ParseNewDevPage extracts development rows from one page of the new-house
// index. The 地址/位置 column prefers the full address in the link's title
// attribute; the visible text is usually elided with an ellipsis.
func ParseNewDevPage(html []byte) ([]model.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse newdev page")
	}

	var records []model.RawRecord
	doc.Find("div.nlc_details").Each(func(_ int, block *goquery.Selection) {
		name := strings.TrimSpace(block.Find(".nlcd_name a").First().Text())
		if name == "" {
			return
		}
		if ftype := strings.TrimSpace(block.Find(".house_type").First().Text()); skipTypes[ftype] {
			return
		}

		rec := model.RawRecord{Name: name, Source: model.SourceNewDev}
		rec.Price = priceRe.FindString(block.Find(".nhouse_price span").First().Text())
		rec.SaleStatus = strings.TrimSpace(block.Find(".fangyuan span").First().Text())

		addrLink := block.Find(".address a").First()
		if title, ok := addrLink.Attr("title"); ok && strings.TrimSpace(title) != "" {
			rec.Address = strings.TrimSpace(title)
		} else {
			addr := spaceRe.ReplaceAllString(addrLink.Text(), " ")
			rec.Address = strings.Trim(strings.TrimSpace(addr), "[]… ")
		}

		records = append(records, rec)
	})
	return records, nil
}
