// Package config loads the bond-envelope configuration with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/chart"
	"github.com/JakeFAU/bond-envelope/internal/crawler"
	"github.com/JakeFAU/bond-envelope/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. BONDS_CRAWLER_BACKOFF=1s.
const EnvPrefix = "BONDS"

// Config captures every runtime setting of the pipeline.
type Config struct {
	Logging logging.Config `mapstructure:"logging"`
	Site    SiteConfig     `mapstructure:"site"`
	Crawler CrawlerConfig  `mapstructure:"crawler"`
	HTTP    HTTPConfig     `mapstructure:"http"`
	Storage StorageConfig  `mapstructure:"storage"`
	PubSub  PubSubConfig   `mapstructure:"pubsub"`
	DB      DBConfig       `mapstructure:"db"`
	Clean   bond.Rules     `mapstructure:"clean"`
	Chart   chart.Config   `mapstructure:"chart"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
}

// SiteConfig locates the listing pages.
type SiteConfig struct {
	BaseURL         string   `mapstructure:"base_url"`
	ListingTemplate string   `mapstructure:"listing_template"`
	Sections        []string `mapstructure:"sections"`
	HeaderRows      int      `mapstructure:"header_rows"`
}

// CrawlerConfig tunes politeness and failure handling.
type CrawlerConfig struct {
	Backoff         time.Duration `mapstructure:"backoff"`
	MaxPages        int           `mapstructure:"max_pages"`
	MaxInstruments  int           `mapstructure:"max_instruments"`
	SkipFailedPages bool          `mapstructure:"skip_failed_pages"`
	UserAgent       string        `mapstructure:"user_agent"`
	RespectRobots   bool          `mapstructure:"respect_robots"`
}

// HTTPConfig tunes the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StorageConfig controls where snapshots are written.
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig configures snapshot notifications. Empty values disable them.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// DBConfig configures the optional envelope table.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// MetricsConfig configures the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Enabled reports whether Pub/Sub notifications are configured.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// Load builds a Config from defaults, an optional file and BONDS_* env vars.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")

	v.SetDefault("site.base_url", "https://www.borsaitaliana.it")
	v.SetDefault("site.listing_template", "/borsa/obbligazioni/mot/"+crawler.SectionPlaceholder+"/lista.html?lang=en&page=")
	v.SetDefault("site.sections", []string{
		"btp",
		"obbligazioni-euro",
		"euro-obbligazioni",
		"cct",
		"../green-e-social-bond",
	})
	v.SetDefault("site.header_rows", 2)

	v.SetDefault("crawler.backoff", 500*time.Millisecond)
	v.SetDefault("crawler.max_pages", 999)
	v.SetDefault("crawler.max_instruments", 0)
	v.SetDefault("crawler.skip_failed_pages", false)
	v.SetDefault("crawler.user_agent", "bond-envelope/1.0 (+https://github.com/JakeFAU/bond-envelope)")
	v.SetDefault("crawler.respect_robots", false)

	v.SetDefault("http.timeout_seconds", 15)

	v.SetDefault("storage.output_dir", "./data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")

	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "bond_envelope")
	v.SetDefault("db.max_conns", 4)

	rules := bond.DefaultRules()
	v.SetDefault("clean.drop_columns", rules.DropColumns)
	v.SetDefault("clean.numeric_columns", rules.NumericColumns)
	v.SetDefault("clean.date_columns", rules.DateColumns)
	v.SetDefault("clean.date_layout", rules.DateLayout)
	v.SetDefault("clean.reference_date_column", rules.ReferenceDateColumn)
	v.SetDefault("clean.reference_date_layout", rules.ReferenceDateLayout)
	v.SetDefault("clean.date_errors", string(rules.DateErrors))
	v.SetDefault("clean.isin_column", rules.ISINColumn)
	v.SetDefault("clean.expiry_column", rules.ExpiryColumn)
	v.SetDefault("clean.yield_column", rules.YieldColumn)
	v.SetDefault("clean.currency_column", rules.CurrencyColumn)
	v.SetDefault("clean.currency", rules.Currency)
	v.SetDefault("clean.category_column", rules.CategoryColumn)
	v.SetDefault("clean.categories", rules.Categories)
	v.SetDefault("clean.structure_column", rules.StructureColumn)
	v.SetDefault("clean.structure", rules.Structure)
	v.SetDefault("clean.countries", rules.Countries)

	ch := chart.DefaultConfig()
	v.SetDefault("chart.width_inches", ch.WidthInches)
	v.SetDefault("chart.height_inches", ch.HeightInches)
	v.SetDefault("chart.title", ch.Title)
	v.SetDefault("chart.lowess_frac", ch.LowessFrac)
	v.SetDefault("chart.lowess_iterations", ch.LowessIterations)
	v.SetDefault("chart.ticks", ch.Ticks)

	v.SetDefault("metrics.textfile", "")
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if !strings.Contains(c.Site.ListingTemplate, crawler.SectionPlaceholder) {
		return fmt.Errorf("site.listing_template must contain %s", crawler.SectionPlaceholder)
	}
	if len(c.Site.Sections) == 0 {
		return fmt.Errorf("site.sections must list at least one section")
	}
	if c.Site.HeaderRows < 0 {
		return fmt.Errorf("site.header_rows must be >= 0")
	}
	if c.Crawler.Backoff < 0 {
		return fmt.Errorf("crawler.backoff must be >= 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.MaxInstruments < 0 {
		return fmt.Errorf("crawler.max_instruments must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must be set")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	if c.DB.DSN != "" && c.DB.MaxConns <= 0 {
		return fmt.Errorf("db.max_conns must be > 0")
	}
	if err := c.Clean.Validate(); err != nil {
		return err
	}
	return c.Chart.Validate()
}

// CrawlerConfig converts the settings into the crawler package's form.
func (c Config) CrawlerConfig() crawler.Config {
	return crawler.Config{
		BaseURL:         c.Site.BaseURL,
		ListingTemplate: c.Site.ListingTemplate,
		Sections:        append([]string(nil), c.Site.Sections...),
		HeaderRows:      c.Site.HeaderRows,
		MaxPages:        c.Crawler.MaxPages,
		Backoff:         c.Crawler.Backoff,
		SkipFailedPages: c.Crawler.SkipFailedPages,
		MaxInstruments:  c.Crawler.MaxInstruments,
	}
}

// FetcherConfig returns the HTTP settings for the colly fetcher.
func (c Config) FetcherConfig() crawler.FetcherConfig {
	return crawler.FetcherConfig{
		UserAgent:      c.Crawler.UserAgent,
		RespectRobots:  c.Crawler.RespectRobots,
		RequestTimeout: time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
	}
}
