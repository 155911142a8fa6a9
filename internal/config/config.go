// Package config loads and validates crawl job configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Relevance model names accepted in relevance.model.
const (
	ModelKeyword    = "keyword"
	ModelEmbedding  = "embedding"
	ModelClassifier = "classifier"
	ModelHybrid     = "hybrid"
)

// JobConfig captures every knob of a crawl job. It is validated once at load
// time and treated as read-only afterwards; shards derive their copy through
// WithOutputDir.
type JobConfig struct {
	JobName   string          `mapstructure:"job_name"`
	Keywords  []string        `mapstructure:"keywords"`
	Languages []string        `mapstructure:"languages"`
	Seeds     []string        `mapstructure:"seeds"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Relevance RelevanceConfig `mapstructure:"relevance"`
	Output    OutputConfig    `mapstructure:"output"`
	Search    SearchConfig    `mapstructure:"search"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Publish   PublishConfig   `mapstructure:"publish"`
	DB        DBConfig        `mapstructure:"db"`
}

// LimitsConfig holds the hard budgets of one run.
type LimitsConfig struct {
	MaxDomains        int `mapstructure:"max_domains"`
	MaxPages          int `mapstructure:"max_pages"`
	MemoryLimitMB     int `mapstructure:"memory_limit_mb"`
	MaxPagesPerDomain int `mapstructure:"max_pages_per_domain"`
}

// CrawlerConfig governs fetching and politeness.
type CrawlerConfig struct {
	UserAgent         string  `mapstructure:"user_agent"`
	RequestTimeout    int     `mapstructure:"request_timeout"`
	ObeyRobotsTxt     bool    `mapstructure:"obey_robots_txt"`
	PolitenessDelay   float64 `mapstructure:"politeness_delay"`
	FollowLinks       bool    `mapstructure:"follow_links"`
	RenderJS          bool    `mapstructure:"render_js"`
	RenderTimeout     int     `mapstructure:"render_timeout"`
	RenderMaxParallel int     `mapstructure:"render_max_parallel"`
	RenderDomainQPS   float64 `mapstructure:"render_domain_qps"`
	PromotionBytes    int     `mapstructure:"promotion_threshold_bytes"`
}

// RelevanceConfig selects and tunes the relevance scorer.
type RelevanceConfig struct {
	MinChars            int     `mapstructure:"min_chars"`
	RelevanceThreshold  float64 `mapstructure:"relevance_threshold"`
	Model               string  `mapstructure:"model"`
	EmbeddingModelName  string  `mapstructure:"embedding_model_name"`
	EmbeddingServerURL  string  `mapstructure:"embedding_server_url"`
	EmbeddingMaxTokens  int     `mapstructure:"embedding_max_tokens"`
	ClassifierModelPath string  `mapstructure:"classifier_model_path"`
	HybridAlpha         float64 `mapstructure:"hybrid_alpha"`
}

// OutputConfig locates the corpus files.
type OutputConfig struct {
	Dir              string `mapstructure:"dir"`
	RawPagesFile     string `mapstructure:"raw_pages_file"`
	FilteredDocsFile string `mapstructure:"filtered_docs_file"`
	MaxFileBytes     int64  `mapstructure:"max_file_bytes"`
}

// SearchConfig configures seed discovery when no explicit seeds are given.
type SearchConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	ResultsPerQuery int    `mapstructure:"results_per_query"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the status and metrics endpoint.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// PublishConfig controls where finished corpora are announced and uploaded.
type PublishConfig struct {
	GCSBucket     string `mapstructure:"gcs_bucket"`
	GCSPrefix     string `mapstructure:"gcs_prefix"`
	PubSubProject string `mapstructure:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic"`
}

// DBConfig controls the run summary table.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// Load builds a JobConfig from disk/environment.
func Load(path string) (JobConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return JobConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg JobConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return JobConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return JobConfig{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("job_name", "")
	v.SetDefault("keywords", []string{})
	v.SetDefault("languages", []string{})
	v.SetDefault("seeds", []string{})
	v.SetDefault("limits.max_domains", 100)
	v.SetDefault("limits.max_pages", 1000)
	v.SetDefault("limits.memory_limit_mb", 1024)
	v.SetDefault("limits.max_pages_per_domain", 50)
	v.SetDefault("crawler.user_agent", "corpus-crawler/0.1")
	v.SetDefault("crawler.request_timeout", 15)
	v.SetDefault("crawler.obey_robots_txt", true)
	v.SetDefault("crawler.politeness_delay", 1.0)
	v.SetDefault("crawler.follow_links", false)
	v.SetDefault("crawler.render_js", false)
	v.SetDefault("crawler.render_timeout", 30)
	v.SetDefault("crawler.render_max_parallel", 1)
	v.SetDefault("crawler.render_domain_qps", 0.5)
	v.SetDefault("crawler.promotion_threshold_bytes", 2048)
	v.SetDefault("relevance.min_chars", 200)
	v.SetDefault("relevance.relevance_threshold", 0.1)
	v.SetDefault("relevance.model", ModelKeyword)
	v.SetDefault("relevance.embedding_model_name", "")
	v.SetDefault("relevance.embedding_server_url", "")
	v.SetDefault("relevance.embedding_max_tokens", 512)
	v.SetDefault("relevance.classifier_model_path", "")
	v.SetDefault("relevance.hybrid_alpha", 0.5)
	v.SetDefault("output.dir", "data/jobs")
	v.SetDefault("output.raw_pages_file", "raw_pages.jsonl")
	v.SetDefault("output.filtered_docs_file", "filtered_docs.jsonl")
	v.SetDefault("output.max_file_bytes", int64(2_000_000_000))
	v.SetDefault("search.endpoint", "")
	v.SetDefault("search.results_per_query", 20)
	v.SetDefault("search.timeout_seconds", 15)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("publish.gcs_bucket", "")
	v.SetDefault("publish.gcs_prefix", "corpora")
	v.SetDefault("publish.pubsub_project", "")
	v.SetDefault("publish.pubsub_topic", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "crawl_runs")
}

// Validate enforces required values and reasonable limits.
func (c JobConfig) Validate() error {
	if strings.TrimSpace(c.JobName) == "" {
		return fmt.Errorf("job_name is required")
	}
	if c.Limits.MaxDomains <= 0 {
		return fmt.Errorf("limits.max_domains must be > 0")
	}
	if c.Limits.MaxPages <= 0 {
		return fmt.Errorf("limits.max_pages must be > 0")
	}
	if c.Limits.MemoryLimitMB <= 0 {
		return fmt.Errorf("limits.memory_limit_mb must be > 0")
	}
	if c.Limits.MaxPagesPerDomain <= 0 {
		return fmt.Errorf("limits.max_pages_per_domain must be > 0")
	}
	if strings.TrimSpace(c.Crawler.UserAgent) == "" {
		return fmt.Errorf("crawler.user_agent is required")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.PolitenessDelay < 0 {
		return fmt.Errorf("crawler.politeness_delay must be >= 0")
	}
	if c.Crawler.RenderJS && c.Crawler.RenderMaxParallel <= 0 {
		return fmt.Errorf("crawler.render_max_parallel must be > 0 when render_js is enabled")
	}
	if c.Relevance.MinChars < 0 {
		return fmt.Errorf("relevance.min_chars must be >= 0")
	}
	if err := c.validateRelevanceModel(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Output.RawPagesFile == "" || c.Output.FilteredDocsFile == "" {
		return fmt.Errorf("output.raw_pages_file and output.filtered_docs_file are required")
	}
	if c.Output.RawPagesFile == c.Output.FilteredDocsFile {
		return fmt.Errorf("output.raw_pages_file and output.filtered_docs_file must differ")
	}
	if c.Publish.PubSubTopic != "" && c.Publish.PubSubProject == "" {
		return fmt.Errorf("publish.pubsub_project must be set when publish.pubsub_topic is set")
	}
	return nil
}

func (c JobConfig) validateRelevanceModel() error {
	switch c.Relevance.Model {
	case ModelKeyword:
		if len(c.Keywords) == 0 {
			return fmt.Errorf("keywords are required for the keyword relevance model")
		}
	case ModelEmbedding:
		if err := c.validateEmbedding(); err != nil {
			return err
		}
	case ModelClassifier:
		if c.Relevance.ClassifierModelPath == "" {
			return fmt.Errorf("relevance.classifier_model_path is required for the classifier model")
		}
	case ModelHybrid:
		if err := c.validateEmbedding(); err != nil {
			return err
		}
		if c.Relevance.ClassifierModelPath == "" {
			return fmt.Errorf("relevance.classifier_model_path is required for the hybrid model")
		}
		if c.Relevance.HybridAlpha < 0 || c.Relevance.HybridAlpha > 1 {
			return fmt.Errorf("relevance.hybrid_alpha must be within [0, 1]")
		}
	default:
		return fmt.Errorf("unknown relevance model %q", c.Relevance.Model)
	}
	return nil
}

func (c JobConfig) validateEmbedding() error {
	if c.Relevance.EmbeddingModelName == "" {
		return fmt.Errorf("relevance.embedding_model_name is required for embedding scoring")
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("keywords are required for embedding scoring")
	}
	return nil
}

// RequestTimeout returns the per-request fetch timeout.
func (c JobConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Crawler.RequestTimeout) * time.Second
}

// PolitenessDelay returns the pause applied after every successful fetch.
func (c JobConfig) PolitenessDelay() time.Duration {
	return time.Duration(c.Crawler.PolitenessDelay * float64(time.Second))
}

// RenderTimeout returns the navigation budget of the render path.
func (c JobConfig) RenderTimeout() time.Duration {
	return time.Duration(c.Crawler.RenderTimeout) * time.Second
}

// RawPagesPath returns the location of the raw corpus.
func (c JobConfig) RawPagesPath() string {
	return filepath.Join(c.Output.Dir, c.Output.RawPagesFile)
}

// FilteredDocsPath returns the location of the filtered corpus.
func (c JobConfig) FilteredDocsPath() string {
	return filepath.Join(c.Output.Dir, c.Output.FilteredDocsFile)
}

// WithOutputDir returns a copy writing under dir. Slices are copied so the
// result shares no mutable state with c.
func (c JobConfig) WithOutputDir(dir string) JobConfig {
	out := c
	out.Keywords = append([]string(nil), c.Keywords...)
	out.Languages = append([]string(nil), c.Languages...)
	out.Seeds = append([]string(nil), c.Seeds...)
	out.Output.Dir = dir
	return out
}

// LanguageAllowed reports whether lang passes the job's language allow-list.
// An empty list allows every language.
func (c JobConfig) LanguageAllowed(lang string) bool {
	if len(c.Languages) == 0 {
		return true
	}
	for _, allowed := range c.Languages {
		if strings.EqualFold(strings.TrimSpace(allowed), lang) {
			return true
		}
	}
	return false
}
