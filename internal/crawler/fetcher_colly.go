package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/logging"
)

// FetcherConfig controls the Colly collector.
type FetcherConfig struct {
	UserAgent      string
	RespectRobots  bool
	RequestTimeout time.Duration
}

// CollyFetcher implements the Fetcher interface using a synchronous Colly collector.
type CollyFetcher struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg FetcherConfig, logger *zap.Logger) *CollyFetcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	base := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}
	// Instrument URLs may repeat across sections and are fetched every time.
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = !cfg.RespectRobots
	base.WithTransport(newHTTPTransport(timeout))
	base.SetRequestTimeout(timeout)

	return &CollyFetcher{
		baseCollector: base,
		logger:        logging.OrNop(logger).Named("fetcher"),
	}
}

// Fetch retrieves a page via the configured Colly collector.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, fmt.Errorf("colly fetch canceled: %w", err)
	}
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	f.configureHooks(collector, rawURL, resultCh)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return Page{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			// OnError has already run in sync mode and carries the status code.
			select {
			case res := <-resultCh:
				if res.err != nil {
					return Page{}, res.err
				}
			default:
			}
			return Page{}, fmt.Errorf("colly visit %s: %w", rawURL, err)
		}
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return Page{}, res.err
		}
		f.logger.Debug("Fetched page",
			zap.String("url", rawURL),
			zap.Int("status", res.page.StatusCode),
			zap.Int("bytes", len(res.page.Body)),
		)
		return res.page, nil
	default:
		return Page{}, errors.New("colly fetch produced no result")
	}
}

func (f *CollyFetcher) configureHooks(hooks collectorHooks, rawURL string, resultCh chan<- fetchResult) {
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	hooks.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		send(fetchResult{page: Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
		}})
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{err: fmt.Errorf("colly response %s (status %d): %w", rawURL, status, err)})
	})
}

type fetchResult struct {
	page Page
	err  error
}

func newHTTPTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
