package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/metrics"
)

// ParseDetail builds an instrument record from every table row that has
// exactly two cells. Later labels overwrite earlier ones.
func ParseDetail(body []byte) (*bond.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse detail html: %w", err)
	}
	rec := bond.NewRecord()
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() != 2 {
			return
		}
		rec.Set(strings.TrimSpace(cells.Eq(0).Text()), strings.TrimSpace(cells.Eq(1).Text()))
	})
	return rec, nil
}

// FetchDetail downloads and parses one instrument page.
func (c *Crawler) FetchDetail(ctx context.Context, href string) (*bond.Record, error) {
	target := c.cfg.AbsoluteURL(href)
	start := time.Now()
	page, err := c.fetcher.Fetch(ctx, target)
	metrics.ObserveRequest("detail", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch detail %s: %w", target, err)
	}
	rec, err := ParseDetail(page.Body)
	if err != nil {
		return nil, fmt.Errorf("detail %s: %w", target, err)
	}
	return rec, nil
}
