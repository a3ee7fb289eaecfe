package main

import (
	"time"

	"github.com/fwojciec/docindex"
	dochttp "github.com/fwojciec/docindex/http"
	"github.com/fwojciec/docindex/index"
	"github.com/fwojciec/docindex/minio"
)

// CLI defines the command-line interface structure for Kong. Every option
// can also be set through the environment or a .env file.
type CLI struct {
	Out           string `env:"OUT" default:"tractusx-docs" help:"Output directory for the published snapshot"`
	IntervalHours int    `env:"INTERVAL_HOURS" default:"24" help:"Hours between scheduled runs"`
	AdminSecret   string `env:"ADMIN_SECRET" help:"Secret required by POST /run (unset: no check)"`
	AdminFirst    bool   `env:"ADMIN_FIRST" help:"Send visitors of / to the admin page"`
	FastMode      bool   `env:"FAST_MODE" default:"true" negatable:"" help:"Label the index as fast mode"`
	Workers       int    `env:"WORKERS" default:"12" help:"Concurrent tree fetches"`

	Paths      []string `env:"PATHS" default:"docs,documentation,doc,website/docs" sep:"," help:"Documentation path prefixes"`
	Org        string   `env:"ORG" default:"eclipse-tractusx" help:"Organization to index"`
	MonthsBack int      `env:"MONTHS_BACK" default:"6" help:"Only index repositories pushed within this many months"`

	GitHubToken       string  `name:"github-token" env:"GITHUB_TOKEN" help:"Default GitHub token"`
	GitHubAPIURL      string  `name:"github-api-url" env:"GITHUB_API_URL" default:"https://api.github.com/" help:"GitHub REST API base URL"`
	GitHubRawURL      string  `name:"github-raw-url" env:"GITHUB_RAW_URL" default:"https://raw.githubusercontent.com/" help:"Raw content base URL"`
	ListingPolicy     string  `env:"LISTING_POLICY" default:"best-effort" enum:"best-effort,fail-fast" help:"What a failed listing page does to a run"`
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" default:"0" help:"Pace GitHub API requests (0: unlimited)"`

	Host      string `env:"HOST" default:"0.0.0.0" help:"Listen host"`
	Port      int    `env:"PORT" default:"5000" help:"Listen port"`
	PublicURL string `name:"public-url" env:"PUBLIC_URL" help:"Public base URL; enables sitemap.xml"`

	RawCacheSize int           `env:"RAW_CACHE_SIZE" default:"512" help:"Raw content cache entries"`
	RawCacheTTL  time.Duration `name:"raw-cache-ttl" env:"RAW_CACHE_TTL" default:"5m" help:"Raw content cache lifetime"`

	LogLevel  string `env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `env:"LOG_FORMAT" default:"text" enum:"text,json" help:"Log format"`

	Once bool `help:"Run one index and exit"`

	S3 S3Flags `embed:"" prefix:"s3-" envprefix:"S3_"`
}

// S3Flags configure the optional object storage mirror.
type S3Flags struct {
	Endpoint  string `env:"ENDPOINT" help:"S3 endpoint (host:port); enables the mirror"`
	Bucket    string `env:"BUCKET" default:"docindex" help:"S3 bucket"`
	AccessKey string `env:"ACCESS_KEY" help:"S3 access key"`
	SecretKey string `env:"SECRET_KEY" help:"S3 secret key"`
	Region    string `env:"REGION" help:"S3 region"`
	Prefix    string `env:"PREFIX" help:"Object key prefix"`
	UseSSL    bool   `name:"use-ssl" env:"USE_SSL" default:"true" negatable:"" help:"Use TLS for S3"`
}

// Config is the validated configuration derived from the command line.
type Config struct {
	RunConfig     index.RunConfig
	HTTP          dochttp.Config
	ListingPolicy index.ListingPolicy
	Interval      time.Duration
	Workers       int

	GitHubAPIURL      string
	GitHubRawURL      string
	RequestsPerSecond float64

	RawCacheSize int
	RawCacheTTL  time.Duration

	S3 *minio.Config
}

// Config validates the parsed flags and converts them once into the values
// passed to constructors.
func (c *CLI) Config() (*Config, error) {
	prefixes := docindex.CleanPrefixes(c.Paths)
	if len(prefixes) == 0 {
		return nil, docindex.Errorf(docindex.EINVALID, "at least one path prefix required")
	}
	if c.Org == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "organization required")
	}
	if c.MonthsBack < 0 {
		return nil, docindex.Errorf(docindex.EINVALID, "months back must not be negative")
	}
	if c.IntervalHours <= 0 {
		return nil, docindex.Errorf(docindex.EINVALID, "interval hours must be positive")
	}
	if c.Workers <= 0 {
		return nil, docindex.Errorf(docindex.EINVALID, "workers must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid port %d", c.Port)
	}
	policy, err := index.ParseListingPolicy(c.ListingPolicy)
	if err != nil {
		return nil, err
	}

	token := docindex.Credential(c.GitHubToken)
	cfg := &Config{
		RunConfig: index.RunConfig{
			Organization: c.Org,
			MonthsBack:   c.MonthsBack,
			Prefixes:     prefixes,
			FastMode:     c.FastMode,
			PublicURL:    c.PublicURL,
			Token:        token,
		},
		HTTP: dochttp.Config{
			Host:         c.Host,
			Port:         c.Port,
			Organization: c.Org,
			OutputDir:    c.Out,
			AdminSecret:  docindex.Credential(c.AdminSecret),
			AdminFirst:   c.AdminFirst,
			Token:        token,
		},
		ListingPolicy:     policy,
		Interval:          time.Duration(c.IntervalHours) * time.Hour,
		Workers:           c.Workers,
		GitHubAPIURL:      c.GitHubAPIURL,
		GitHubRawURL:      c.GitHubRawURL,
		RequestsPerSecond: c.RequestsPerSecond,
		RawCacheSize:      c.RawCacheSize,
		RawCacheTTL:       c.RawCacheTTL,
	}

	if c.S3.Endpoint != "" {
		cfg.S3 = &minio.Config{
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: docindex.Credential(c.S3.SecretKey),
			Bucket:    c.S3.Bucket,
			Prefix:    c.S3.Prefix,
			UseSSL:    c.S3.UseSSL,
		}
	}
	return cfg, nil
}
