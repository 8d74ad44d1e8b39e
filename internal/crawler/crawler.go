package crawler

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/bond-envelope/internal/logging"
)

// Crawler drives discovery and enrichment against a Fetcher.
type Crawler struct {
	cfg     Config
	fetcher Fetcher
	pauser  Pauser
	logger  *zap.Logger
}

// Option customises a Crawler.
type Option func(*Crawler)

// WithPauser replaces the timer-based pause between requests.
func WithPauser(p Pauser) Option {
	return func(c *Crawler) {
		if p != nil {
			c.pauser = p
		}
	}
}

// New builds a Crawler.
func New(cfg Config, fetcher Fetcher, logger *zap.Logger, opts ...Option) *Crawler {
	c := &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		pauser:  &timerPauseController{},
		logger:  logging.OrNop(logger).Named("crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
