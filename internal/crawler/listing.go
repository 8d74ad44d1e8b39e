package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/metrics"
)

// ParseListing extracts the first anchor href of every table row after the
// first headerRows rows. Rows without an anchor are counted in skipped.
func ParseListing(body []byte, headerRows int) (hrefs []string, skipped int, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse listing html: %w", err)
	}
	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i < headerRows {
			return
		}
		href, ok := row.Find("a").First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			skipped++
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs, skipped, nil
}

// CollectSection walks the listing pages of one section from page 1 until a
// page yields no instrument links or the page cap is reached. It pauses after
// every page that produced links.
func (c *Crawler) CollectSection(ctx context.Context, section string) ([]string, error) {
	logger := c.logger.With(zap.String("section", section))
	var hrefs []string
	for page := 1; page <= c.cfg.maxPages(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageURL := c.cfg.ListingURL(section, page)
		found, err := c.listingPage(ctx, pageURL)
		if err != nil {
			if isCanceled(err) || !c.cfg.SkipFailedPages {
				return nil, fmt.Errorf("listing %s page %d: %w", section, page, err)
			}
			logger.Warn("Listing page failed, ending section",
				zap.Int("page", page),
				zap.String("url", pageURL),
				zap.Error(err),
			)
			return hrefs, nil
		}
		metrics.ObserveListingPage(section, len(found))
		if len(found) == 0 {
			logger.Info("Section exhausted", zap.Int("pages", page-1), zap.Int("urls", len(hrefs)))
			return hrefs, nil
		}
		hrefs = append(hrefs, found...)
		logger.Debug("Listing page collected", zap.Int("page", page), zap.Int("urls", len(found)))
		c.pauser.Pause(ctx, c.cfg.Backoff)
	}
	logger.Warn("Page cap reached", zap.Int("max_pages", c.cfg.maxPages()), zap.Int("urls", len(hrefs)))
	return hrefs, nil
}

func (c *Crawler) listingPage(ctx context.Context, pageURL string) ([]string, error) {
	start := time.Now()
	page, err := c.fetcher.Fetch(ctx, pageURL)
	metrics.ObserveRequest("listing", time.Since(start))
	if err != nil {
		return nil, err
	}
	hrefs, skipped, err := ParseListing(page.Body, c.cfg.HeaderRows)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.Debug("Skipped listing rows without a link",
			zap.String("url", pageURL),
			zap.Int("rows", skipped),
		)
	}
	return hrefs, nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
