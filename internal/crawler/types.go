package crawler

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SectionPlaceholder is replaced by the section name in Config.ListingTemplate.
const SectionPlaceholder = "{section}"

const (
	defaultMaxPages       = 999
	defaultRequestTimeout = 15 * time.Second
)

// Page is the raw result of a single GET.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Config controls discovery and enrichment.
type Config struct {
	BaseURL         string
	ListingTemplate string
	Sections        []string
	HeaderRows      int
	MaxPages        int
	Backoff         time.Duration
	SkipFailedPages bool
	MaxInstruments  int
}

// ListingURL returns the URL of one listing page of section.
func (c Config) ListingURL(section string, page int) string {
	tmpl := strings.ReplaceAll(c.ListingTemplate, SectionPlaceholder, section)
	return c.BaseURL + tmpl + strconv.Itoa(page)
}

// AbsoluteURL resolves an instrument href against the site base. Hrefs that
// already carry a scheme are returned untouched; anything else is appended to
// the base as-is.
func (c Config) AbsoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return c.BaseURL + href
}

func (c Config) maxPages() int {
	if c.MaxPages <= 0 {
		return defaultMaxPages
	}
	return c.MaxPages
}
