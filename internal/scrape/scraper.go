package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bozhu/estatemap/internal/model"
)

// PageParser turns one page of portal HTML into listing rows.
type PageParser func(html []byte) ([]model.RawRecord, error)

// Job describes one paginated scrape of a portal index.
type Job struct {
	// URLTemplate contains one %d verb for the page number.
	URLTemplate string
	Pages       int
	Parse       PageParser
	// RetryPause is the extra wait before the single retry of a failed page.
	RetryPause time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func (j Job) wait(ctx context.Context, d time.Duration) error {
	if j.sleep != nil {
		return j.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run walks the job's pages in order. A failed page is retried once after
// the longer pause and then skipped; a verification block aborts the whole
// job, returning the rows collected so far alongside the error.
func Run(ctx context.Context, f *Fetcher, job Job) ([]model.RawRecord, error) {
	if job.Pages <= 0 || job.Parse == nil {
		return nil, eris.New("scrape: job needs pages and a parser")
	}

	log := zap.L().With(zap.String("url_template", job.URLTemplate))
	log.Info("scraping portal index", zap.Int("pages", job.Pages))

	var records []model.RawRecord
	var failed []int
	for page := 1; page <= job.Pages; page++ {
		pageURL := fmt.Sprintf(job.URLTemplate, page)

		body, err := f.Fetch(ctx, pageURL)
		if err != nil && !eris.Is(err, ErrBlocked) && ctx.Err() == nil {
			log.Warn("page fetch failed, retrying once", zap.Int("page", page), zap.Error(err))
			if werr := job.wait(ctx, job.RetryPause); werr != nil {
				return records, eris.Wrap(werr, "scrape: interrupted")
			}
			body, err = f.Fetch(ctx, pageURL)
		}
		if err != nil {
			if eris.Is(err, ErrBlocked) {
				log.Error("portal is blocking, aborting scrape", zap.Int("page", page), zap.Error(err))
				return records, err
			}
			if ctx.Err() != nil {
				return records, eris.Wrap(ctx.Err(), "scrape: interrupted")
			}
			log.Warn("page skipped after retry", zap.Int("page", page), zap.Error(err))
			failed = append(failed, page)
			continue
		}

		rows, err := job.Parse(body)
		if err != nil {
			log.Warn("page did not parse", zap.Int("page", page), zap.Error(err))
			failed = append(failed, page)
			continue
		}
		records = append(records, rows...)

		if page%5 == 0 || page == 1 {
			log.Info("scrape progress",
				zap.Int("page", page),
				zap.Int("total_pages", job.Pages),
				zap.Int("rows", len(records)),
			)
		}
	}

	log.Info("scrape complete",
		zap.Int("rows", len(records)),
		zap.Ints("failed_pages", failed),
	)
	return records, nil
}
