package shared

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EngineConfiguration holds every tunable of the market data engine
type EngineConfiguration struct {
	Provider  ProviderConfig  `yaml:"provider" json:"provider"`
	Ticker    TickerConfig    `yaml:"ticker" json:"ticker"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Scanner   ScannerConfig   `yaml:"scanner" json:"scanner"`
	WriteBack WriteBackConfig `yaml:"write_back" json:"write_back"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Schedule  ScheduleConfig  `yaml:"schedule" json:"schedule"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ProviderConfig configures the market-data endpoints and their pacing
type ProviderConfig struct {
	YahooSearchURL string        `yaml:"yahoo_search_url" json:"yahoo_search_url"`
	YahooChartURL  string        `yaml:"yahoo_chart_url" json:"yahoo_chart_url"`
	FinnhubBaseURL string        `yaml:"finnhub_base_url" json:"finnhub_base_url"`
	FinnhubAPIKey  string        `yaml:"finnhub_api_key" json:"-"`
	HTTPTimeout    time.Duration `yaml:"http_timeout" json:"http_timeout"`
	QuoteInterval  time.Duration `yaml:"quote_interval" json:"quote_interval"`
	LookupInterval time.Duration `yaml:"lookup_interval" json:"lookup_interval"`
	HistoryStart   string        `yaml:"history_start" json:"history_start"`
	SearchLimit    int           `yaml:"search_limit" json:"search_limit"`
}

// TickerConfig controls name normalization and symbol acceptance
type TickerConfig struct {
	NoiseWords       []string `yaml:"noise_words" json:"noise_words"`
	ExchangeSuffixes []string `yaml:"exchange_suffixes" json:"exchange_suffixes"`
}

// CacheConfig holds live listings cache configuration
type CacheConfig struct {
	LiveListingsTTL time.Duration `yaml:"live_listings_ttl" json:"live_listings_ttl"`
	TopListings     int           `yaml:"top_listings" json:"top_listings"`
}

// ScannerConfig holds duplicate scanner configuration
type ScannerConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	MaxCandidates       int     `yaml:"max_candidates" json:"max_candidates"`
}

// WriteBackConfig sizes the symbol write-back queue
type WriteBackConfig struct {
	QueueSize int           `yaml:"queue_size" json:"queue_size"`
	Workers   int           `yaml:"workers" json:"workers"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" json:"driver"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	PingTimeout     time.Duration `yaml:"ping_timeout" json:"ping_timeout"`
}

// ScheduleConfig holds cron specs (with seconds field) for background jobs.
// An empty spec disables the job.
type ScheduleConfig struct {
	WarmupCron string `yaml:"warmup_cron" json:"warmup_cron"`
	StatsCron  string `yaml:"stats_cron" json:"stats_cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Format      string `yaml:"format" json:"format"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverMemory   = "memory"
)

// NewDefaultEngineConfiguration returns production defaults
func NewDefaultEngineConfiguration() *EngineConfiguration {
	return &EngineConfiguration{
		Provider: ProviderConfig{
			YahooSearchURL: "https://query2.finance.yahoo.com/v1/finance/search",
			YahooChartURL:  "https://query1.finance.yahoo.com/v8/finance/chart",
			FinnhubBaseURL: "https://finnhub.io/api/v1",
			HTTPTimeout:    10 * time.Second,
			QuoteInterval:  1200 * time.Millisecond,
			LookupInterval: 500 * time.Millisecond,
			HistoryStart:   "2000-01-01",
			SearchLimit:    10,
		},
		Ticker: TickerConfig{
			NoiseWords:       []string{"ipo", "limited", "ltd", "pvt", "private", "public"},
			ExchangeSuffixes: []string{".NS", ".BO"},
		},
		Cache: CacheConfig{
			LiveListingsTTL: 15 * time.Second,
			TopListings:     5,
		},
		Scanner: ScannerConfig{
			SimilarityThreshold: 0.30,
			MaxCandidates:       50,
		},
		WriteBack: WriteBackConfig{
			QueueSize: 256,
			Workers:   1,
			Timeout:   5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DatabaseDriverPostgres,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			PingTimeout:     5 * time.Second,
		},
		Schedule: ScheduleConfig{
			WarmupCron: "*/30 * * * * *",
			StatsCron:  "0 */15 * * * *",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "ipo-radar",
		},
	}
}

// LoadEngineConfiguration reads a YAML file over the defaults. A missing file is not an error.
func LoadEngineConfiguration(path string) (*EngineConfiguration, error) {
	cfg := NewDefaultEngineConfiguration()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read engine config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse engine config: %w", err)
			}
		}
	}

	cfg.ValidateAndApplyDefaults()
	return cfg, nil
}

// ValidateAndApplyDefaults validates configuration and applies defaults for invalid values
func (c *EngineConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "EngineConfiguration")
	defaults := NewDefaultEngineConfiguration()

	if c.Provider.YahooSearchURL == "" {
		c.Provider.YahooSearchURL = defaults.Provider.YahooSearchURL
		logger.Debug("Applied default Provider.YahooSearchURL")
	}

	if c.Provider.YahooChartURL == "" {
		c.Provider.YahooChartURL = defaults.Provider.YahooChartURL
		logger.Debug("Applied default Provider.YahooChartURL")
	}

	if c.Provider.FinnhubBaseURL == "" {
		c.Provider.FinnhubBaseURL = defaults.Provider.FinnhubBaseURL
		logger.Debug("Applied default Provider.FinnhubBaseURL")
	}

	if c.Provider.HTTPTimeout <= 0 {
		c.Provider.HTTPTimeout = defaults.Provider.HTTPTimeout
		logger.Debug("Applied default Provider.HTTPTimeout")
	}

	if c.Provider.QuoteInterval <= 0 {
		c.Provider.QuoteInterval = defaults.Provider.QuoteInterval
		logger.Debug("Applied default Provider.QuoteInterval")
	}

	if c.Provider.LookupInterval < 0 {
		c.Provider.LookupInterval = defaults.Provider.LookupInterval
		logger.Debug("Applied default Provider.LookupInterval")
	}

	if _, err := time.Parse("2006-01-02", c.Provider.HistoryStart); err != nil {
		c.Provider.HistoryStart = defaults.Provider.HistoryStart
		logger.Debug("Applied default Provider.HistoryStart")
	}

	if c.Provider.SearchLimit <= 0 {
		c.Provider.SearchLimit = defaults.Provider.SearchLimit
		logger.Debug("Applied default Provider.SearchLimit")
	}

	if len(c.Ticker.NoiseWords) == 0 {
		c.Ticker.NoiseWords = defaults.Ticker.NoiseWords
		logger.Debug("Applied default Ticker.NoiseWords")
	}

	if len(c.Ticker.ExchangeSuffixes) == 0 {
		c.Ticker.ExchangeSuffixes = defaults.Ticker.ExchangeSuffixes
		logger.Debug("Applied default Ticker.ExchangeSuffixes")
	}

	if c.Cache.LiveListingsTTL <= 0 {
		c.Cache.LiveListingsTTL = defaults.Cache.LiveListingsTTL
		logger.Debug("Applied default Cache.LiveListingsTTL")
	}

	if c.Cache.TopListings <= 0 {
		c.Cache.TopListings = defaults.Cache.TopListings
		logger.Debug("Applied default Cache.TopListings")
	}

	if c.Scanner.SimilarityThreshold <= 0 || c.Scanner.SimilarityThreshold > 1 {
		c.Scanner.SimilarityThreshold = defaults.Scanner.SimilarityThreshold
		logger.Debug("Applied default Scanner.SimilarityThreshold")
	}

	if c.Scanner.MaxCandidates <= 0 {
		c.Scanner.MaxCandidates = defaults.Scanner.MaxCandidates
		logger.Debug("Applied default Scanner.MaxCandidates")
	}

	if c.WriteBack.QueueSize <= 0 {
		c.WriteBack.QueueSize = defaults.WriteBack.QueueSize
		logger.Debug("Applied default WriteBack.QueueSize")
	}

	if c.WriteBack.Workers <= 0 {
		c.WriteBack.Workers = defaults.WriteBack.Workers
		logger.Debug("Applied default WriteBack.Workers")
	}

	if c.WriteBack.Timeout <= 0 {
		c.WriteBack.Timeout = defaults.WriteBack.Timeout
		logger.Debug("Applied default WriteBack.Timeout")
	}

	switch c.Database.Driver {
	case DatabaseDriverPostgres, DatabaseDriverSQLite, DatabaseDriverMemory:
	default:
		logger.WithField("driver", c.Database.Driver).Warn("Unknown database driver, using postgres")
		c.Database.Driver = DatabaseDriverPostgres
	}

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}

	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}

	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
		logger.Debug("Applied default Database.ConnMaxLifetime")
	}

	if c.Database.ConnMaxIdleTime <= 0 {
		c.Database.ConnMaxIdleTime = defaults.Database.ConnMaxIdleTime
		logger.Debug("Applied default Database.ConnMaxIdleTime")
	}

	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
		logger.Debug("Applied default Database.PingTimeout")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		logger.Debug("Applied default Logging.Level")
	}

	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
		logger.Debug("Applied default Logging.Format")
	}

	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = defaults.Logging.ServiceName
		logger.Debug("Applied default Logging.ServiceName")
	}
}

// HistoryStartTime returns Provider.HistoryStart as a UTC time
func (c *EngineConfiguration) HistoryStartTime() time.Time {
	start, err := time.Parse("2006-01-02", c.Provider.HistoryStart)
	if err != nil {
		return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return start
}
