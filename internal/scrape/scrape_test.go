package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bozhu/estatemap/internal/model"
)

const resaleBlock = `
<div id="houselist_B09_%02d" class="list">
  <dl>
    <dd>
      <p class="title"><a class="plotTit" href="/plot/1/">%s</a><span class="plotFangType">%s</span></p>
      <p><a href="/house/">高新</a>-<a href="/house/a073/">%s</a> %s</p>
      <p>%s</p>
    </dd>
  </dl>
  <div class="listRiconwrap">
    <p class="priceAverage"><span> %s </span>元/㎡</p>
    <p><a href="/plot/1/forsale/"> %s </a>套在售</p>
  </div>
</div>`

func resaleEntry(n int, name, ftype, subarea, addr, yearLine, price, units string) string {
	return fmt.Sprintf(resaleBlock, n, name, ftype, subarea, addr, yearLine, price, units)
}

func pad(html string) []byte {
	return []byte(html + strings.Repeat("<!-- filler -->", 100))
}

func TestParseResalePage(t *testing.T) {
	html := "<html><body>" +
		resaleEntry(1, "万科城", "住宅", "丈八", "锦业路12号", "2016年建成", "12000", "45") +
		resaleEntry(2, "某写字楼中心", "写字楼", "唐延路", "唐延路1号", "2018年建成", "20000", "3") +
		resaleEntry(3, "紫薇田园都市", "住宅", "电子城", "电子正街", "", "", "") +
		"</body></html>"

	records, err := ParseResalePage([]byte(html))
	require.NoError(t, err)
	require.Len(t, records, 2, "non-residential entries are dropped")

	first := records[0]
	assert.Equal(t, "万科城", first.Name)
	assert.Equal(t, "12000", first.Price)
	assert.Equal(t, "丈八", first.Subarea)
	assert.Contains(t, first.Address, "锦业路12号")
	assert.Equal(t, "2016", first.BuildYear)
	assert.Equal(t, "45", first.UnitsForSale)
	assert.Equal(t, model.SourceResale, first.Source)

	second := records[1]
	assert.Equal(t, "紫薇田园都市", second.Name)
	assert.Equal(t, "", second.Price, "暂无均价 stays empty")
	assert.Equal(t, "", second.BuildYear)
	assert.Equal(t, "", second.UnitsForSale)
}

func TestParseResalePage_SingleAreaLink(t *testing.T) {
	html := `<div id="houselist_B09_01"><dl><dd>
		<p><a class="plotTit" href="#">某小区</a></p>
		<p><a href="#">高新</a> 科技路8号</p>
	</dd></dl></div>`

	records, err := ParseResalePage([]byte(html))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "高新", records[0].Subarea)
}

func TestParseNewDevPage(t *testing.T) {
	html := `<html><body>
	<div class="nlc_details">
		<div class="nlcd_name"><a href="/loupan/1/">某某府</a></div>
		<div class="address"><a href="/loupan/1/" title="科技路与团结南路十字西北角">[高新]科技路与团结…</a></div>
		<div class="fangyuan"><span>在售</span></div>
		<div class="nhouse_price"><span>15000</span>元/㎡</div>
	</div>
	<div class="nlc_details">
		<div class="nlcd_name"><a href="/loupan/2/">某某公馆</a></div>
		<div class="address"><a href="/loupan/2/">[高新]锦业路南侧</a></div>
		<div class="fangyuan"><span>待售</span></div>
		<div class="nhouse_price"><i>价格待定</i></div>
	</div>
	</body></html>`

	records, err := ParseNewDevPage([]byte(html))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "某某府", records[0].Name)
	assert.Equal(t, "15000", records[0].Price)
	assert.Equal(t, "科技路与团结南路十字西北角", records[0].Address, "title attribute wins over elided text")
	assert.Equal(t, "在售", records[0].SaleStatus)
	assert.Equal(t, model.SourceNewDev, records[0].Source)

	assert.Equal(t, "某某公馆", records[1].Name)
	assert.Equal(t, "", records[1].Price, "价格待定 stays empty")
	assert.Equal(t, "[高新]锦业路南侧", records[1].Address)
	assert.Equal(t, "待售", records[1].SaleStatus)
}

func TestDetectBlock(t *testing.T) {
	ok := &http.Response{StatusCode: 200}
	blocked, _ := DetectBlock(ok, pad("<html><body>listings</body></html>"))
	assert.False(t, blocked)

	blocked, blockType := DetectBlock(&http.Response{StatusCode: 403}, nil)
	assert.True(t, blocked)
	assert.Equal(t, BlockVerification, blockType)

	blocked, blockType = DetectBlock(ok, []byte("<html>请完成安全验证后继续访问</html>"))
	assert.True(t, blocked)
	assert.Equal(t, BlockVerification, blockType)

	blocked, blockType = DetectBlock(ok, []byte("<html>拖动滑块完成拼图</html>"))
	assert.True(t, blocked)
	assert.Equal(t, BlockCaptcha, blockType)
}

func testFetcher(srv *httptest.Server) *Fetcher {
	return NewFetcher(0, "").WithHTTPClient(srv.Client())
}

func noWait(_ context.Context, _ time.Duration) error { return nil }

func TestRun_CollectsAllPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		fmt.Sscanf(r.URL.Path, "/housing/page/%d/", &n) //nolint:errcheck
		w.Write(pad(resaleEntry(n, fmt.Sprintf("小区%d", n), "住宅", "丈八", "锦业路", "2016年建成", "12000", "5"))) //nolint:errcheck
	}))
	defer srv.Close()

	records, err := Run(context.Background(), testFetcher(srv), Job{
		URLTemplate: srv.URL + "/housing/page/%d/",
		Pages:       3,
		Parse:       ParseResalePage,
		sleep:       noWait,
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "小区1", records[0].Name)
	assert.Equal(t, "小区3", records[2].Name)
}

func TestRun_RetriesFailedPageOnce(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(pad(resaleEntry(1, "万科城", "住宅", "丈八", "锦业路", "", "12000", ""))) //nolint:errcheck
	}))
	defer srv.Close()

	var paused []time.Duration
	records, err := Run(context.Background(), testFetcher(srv), Job{
		URLTemplate: srv.URL + "/housing/page/%d/",
		Pages:       1,
		Parse:       ParseResalePage,
		RetryPause:  5 * time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			paused = append(paused, d)
			return nil
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, hits)
	assert.Equal(t, []time.Duration{5 * time.Second}, paused, "retry waits the longer pause")
}

func TestRun_SkipsPageThatFailsTwice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/2/") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var n int
		fmt.Sscanf(r.URL.Path, "/housing/page/%d/", &n) //nolint:errcheck
		w.Write(pad(resaleEntry(n, fmt.Sprintf("小区%d", n), "住宅", "丈八", "锦业路", "", "12000", ""))) //nolint:errcheck
	}))
	defer srv.Close()

	records, err := Run(context.Background(), testFetcher(srv), Job{
		URLTemplate: srv.URL + "/housing/page/%d/",
		Pages:       3,
		Parse:       ParseResalePage,
		sleep:       noWait,
	})
	require.NoError(t, err, "a skipped page does not fail the job")
	require.Len(t, records, 2)
	assert.Equal(t, "小区1", records[0].Name)
	assert.Equal(t, "小区3", records[1].Name)
}

func TestRun_AbortsOnVerificationBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/2/") {
			w.Write([]byte("<html>请完成安全验证后继续访问</html>")) //nolint:errcheck
			return
		}
		w.Write(pad(resaleEntry(1, "万科城", "住宅", "丈八", "锦业路", "", "12000", ""))) //nolint:errcheck
	}))
	defer srv.Close()

	records, err := Run(context.Background(), testFetcher(srv), Job{
		URLTemplate: srv.URL + "/housing/page/%d/",
		Pages:       5,
		Parse:       ParseResalePage,
		sleep:       noWait,
	})
	require.ErrorIs(t, err, ErrBlocked)
	assert.Len(t, records, 1, "rows scraped before the block survive")
}
