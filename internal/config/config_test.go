package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/bond-envelope/internal/bond"
	"github.com/JakeFAU/bond-envelope/internal/chart"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Site.BaseURL != "https://www.borsaitaliana.it" {
		t.Fatalf("unexpected base url %q", cfg.Site.BaseURL)
	}
	if len(cfg.Site.Sections) != 5 || cfg.Site.Sections[4] != "../green-e-social-bond" {
		t.Fatalf("unexpected sections %v", cfg.Site.Sections)
	}
	if cfg.Site.HeaderRows != 2 {
		t.Fatalf("expected 2 header rows, got %d", cfg.Site.HeaderRows)
	}
	if cfg.Crawler.Backoff != 500*time.Millisecond {
		t.Fatalf("expected 500ms backoff, got %s", cfg.Crawler.Backoff)
	}
	if cfg.Crawler.MaxPages != 999 {
		t.Fatalf("expected max pages 999, got %d", cfg.Crawler.MaxPages)
	}
	if cfg.Clean.DateErrors != bond.DateRaise {
		t.Fatalf("expected raise policy, got %q", cfg.Clean.DateErrors)
	}
	if strings.Join(cfg.Clean.Countries, ",") != "IT,AT,BE,DE,FI,FR,NL" {
		t.Fatalf("unexpected countries %v", cfg.Clean.Countries)
	}
	if cfg.Chart != chart.DefaultConfig() {
		t.Fatalf("unexpected chart config %+v", cfg.Chart)
	}
	if cfg.PubSub.Enabled() {
		t.Fatalf("pubsub should be disabled by default")
	}

	cc := cfg.CrawlerConfig()
	if got := cc.ListingURL("btp", 3); got != "https://www.borsaitaliana.it/borsa/obbligazioni/mot/btp/lista.html?lang=en&page=3" {
		t.Fatalf("unexpected listing url %q", got)
	}
	if fc := cfg.FetcherConfig(); fc.RequestTimeout != 15*time.Second {
		t.Fatalf("expected 15s request timeout, got %s", fc.RequestTimeout)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
logging:
  development: false
  level: debug
site:
  base_url: "https://www.borsaitaliana.it"
  listing_template: "/borsa/obbligazioni/mot/{section}/lista.html?lang=it&page="
  sections: ["btp"]
crawler:
  backoff: 2s
  max_instruments: 25
  skip_failed_pages: true
storage:
  output_dir: "/tmp/bonds"
  gcs_bucket: "bond-snapshots"
pubsub:
  project_id: "demo"
  topic_name: "bond-snapshots"
clean:
  yield_column: "Rendimento netto a scadenza"
  countries: ["IT"]
  date_errors: coerce
chart:
  width_inches: 8
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if len(cfg.Site.Sections) != 1 || cfg.Site.Sections[0] != "btp" {
		t.Fatalf("unexpected sections %v", cfg.Site.Sections)
	}
	if cfg.Crawler.Backoff != 2*time.Second {
		t.Fatalf("expected 2s backoff, got %s", cfg.Crawler.Backoff)
	}
	if cfg.Crawler.MaxInstruments != 25 || !cfg.Crawler.SkipFailedPages {
		t.Fatalf("unexpected crawler config %+v", cfg.Crawler)
	}
	if cfg.Storage.OutputDir != "/tmp/bonds" || cfg.Storage.GCSBucket != "bond-snapshots" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if !cfg.PubSub.Enabled() {
		t.Fatalf("expected pubsub to be enabled")
	}
	if cfg.Clean.YieldColumn != "Rendimento netto a scadenza" {
		t.Fatalf("unexpected yield column %q", cfg.Clean.YieldColumn)
	}
	if cfg.Clean.DateErrors != bond.DateCoerce {
		t.Fatalf("expected coerce policy, got %q", cfg.Clean.DateErrors)
	}
	if cfg.Clean.ISINColumn != "Isin Code" {
		t.Fatalf("unset clean keys should keep defaults, got %q", cfg.Clean.ISINColumn)
	}
	if cfg.Chart.WidthInches != 8 || cfg.Chart.HeightInches != 7 {
		t.Fatalf("unexpected chart size %vx%v", cfg.Chart.WidthInches, cfg.Chart.HeightInches)
	}
	if !cfg.CrawlerConfig().SkipFailedPages {
		t.Fatalf("crawler config should carry skip_failed_pages")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BONDS_CRAWLER_BACKOFF", "1s")
	t.Setenv("BONDS_STORAGE_OUTPUT_DIR", "/var/lib/bonds")
	t.Setenv("BONDS_HTTP_TIMEOUT_SECONDS", "30")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Crawler.Backoff != time.Second {
		t.Fatalf("expected 1s backoff, got %s", cfg.Crawler.Backoff)
	}
	if cfg.Storage.OutputDir != "/var/lib/bonds" {
		t.Fatalf("unexpected output dir %q", cfg.Storage.OutputDir)
	}
	if cfg.HTTP.TimeoutSeconds != 30 {
		t.Fatalf("expected timeout 30, got %d", cfg.HTTP.TimeoutSeconds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read config error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	tests := []struct {
		name string
		cfg  func() Config
		want string
	}{
		{
			name: "missing base url",
			cfg: func() Config {
				c := *base
				c.Site.BaseURL = ""
				return c
			},
			want: "site.base_url",
		},
		{
			name: "template without placeholder",
			cfg: func() Config {
				c := *base
				c.Site.ListingTemplate = "/lista.html?page="
				return c
			},
			want: "site.listing_template",
		},
		{
			name: "no sections",
			cfg: func() Config {
				c := *base
				c.Site.Sections = nil
				return c
			},
			want: "site.sections",
		},
		{
			name: "negative backoff",
			cfg: func() Config {
				c := *base
				c.Crawler.Backoff = -time.Second
				return c
			},
			want: "crawler.backoff",
		},
		{
			name: "zero max pages",
			cfg: func() Config {
				c := *base
				c.Crawler.MaxPages = 0
				return c
			},
			want: "crawler.max_pages",
		},
		{
			name: "zero timeout",
			cfg: func() Config {
				c := *base
				c.HTTP.TimeoutSeconds = 0
				return c
			},
			want: "http.timeout_seconds",
		},
		{
			name: "missing output dir",
			cfg: func() Config {
				c := *base
				c.Storage.OutputDir = ""
				return c
			},
			want: "storage.output_dir",
		},
		{
			name: "topic without project",
			cfg: func() Config {
				c := *base
				c.PubSub.TopicName = "bond-snapshots"
				return c
			},
			want: "pubsub.project_id",
		},
		{
			name: "dsn without pool size",
			cfg: func() Config {
				c := *base
				c.DB.DSN = "postgres://localhost/bonds"
				c.DB.MaxConns = 0
				return c
			},
			want: "db.max_conns",
		},
		{
			name: "bad date policy",
			cfg: func() Config {
				c := *base
				c.Clean.DateErrors = "ignore"
				return c
			},
			want: "clean.date_errors",
		},
		{
			name: "bad lowess fraction",
			cfg: func() Config {
				c := *base
				c.Chart.LowessFrac = 2
				return c
			},
			want: "chart.lowess_frac",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg().Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
