// Package config holds the explicit configuration record passed into every
// component. Values come from a TOML file merged over defaults, with
// environment variables taking final precedence for secrets and provider
// selection. Nothing in this package is global.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type NotionConfig struct {
	Token             string  `toml:"token"`
	InboxDB           string  `toml:"inbox_db"`
	ContentDB         string  `toml:"content_db"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	// TimeoutSeconds bounds one generation call. Generation latency dwarfs
	// the other outbound calls, so it carries its own budget.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout is the per-generation deadline.
func (c LLMConfig) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = 300
	}
	return time.Duration(secs) * time.Second
}

type PromptsConfig struct {
	Blog   string `toml:"blog"`
	Script string `toml:"script"`
}

type SourceConfig struct {
	Name        string `toml:"name"`
	Kind        string `toml:"kind"` // "rss" or "listing"
	URL         string `toml:"url"`
	FallbackURL string `toml:"fallback_url"`
	Limit       int    `toml:"limit"`
}

type CollectConfig struct {
	MaxPerSource int            `toml:"max_per_source"`
	Sources      []SourceConfig `toml:"sources"`
}

type ArtifactsConfig struct {
	BlogDir   string `toml:"blog_dir"`
	ScriptDir string `toml:"script_dir"`
}

type PipelineConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RunLog         string `toml:"run_log"`
}

type WordPressConfig struct {
	BaseURL         string `toml:"base_url"`
	Username        string `toml:"username"`
	AppPassword     string `toml:"app_password"`
	CategoryIDs     []int  `toml:"category_ids"`
	TagIDs          []int  `toml:"tag_ids"`
	FeaturedMediaID int    `toml:"featured_media_id"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type Config struct {
	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`

	Notion    NotionConfig    `toml:"notion"`
	LLM       LLMConfig       `toml:"llm"`
	Prompts   PromptsConfig   `toml:"prompts"`
	Collect   CollectConfig   `toml:"collect"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	WordPress WordPressConfig `toml:"wordpress"`
	Server    ServerConfig    `toml:"server"`
}

// Default returns the configuration used when the TOML file omits a value.
// The news sources mirror the production watch list.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Notion: NotionConfig{
			RequestsPerSecond: 3,
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          "gemini-1.5-flash",
			TimeoutSeconds: 300,
		},
		Collect: CollectConfig{
			MaxPerSource: 20,
			Sources: []SourceConfig{
				{Name: "mhlw", Kind: "rss", URL: "https://www.mhlw.go.jp/stf/news.rdf"},
				{Name: "hgpi", Kind: "listing", URL: "https://hgpi.org/news/"},
				{
					Name:        "who",
					Kind:        "rss",
					URL:         "https://www.who.int/feeds/entity/mediacentre/news/en/rss.xml",
					FallbackURL: "https://www.who.int/news",
				},
			},
		},
		Artifacts: ArtifactsConfig{
			BlogDir:   "output/blog",
			ScriptDir: "output/script",
		},
		Pipeline: PipelineConfig{
			TimeoutSeconds: 30,
			RunLog:         "relay_runs.log",
		},
		Server: ServerConfig{
			Addr: ":8787",
		},
	}
}

// Load reads the TOML file at path over the defaults and then applies
// environment overrides. A missing file is not an error — env-only setups
// are supported — but an unreadable or unparsable file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env
	default:
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the environment override file values. Secrets normally
// arrive only this way.
func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Notion.Token, "NOTION_TOKEN")
	set(&c.Notion.InboxDB, "NOTION_INBOX_DB")
	set(&c.Notion.ContentDB, "NOTION_CONTENT_DB")

	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.Model, "LLM_MODEL")
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.LLM.BaseURL, "LLM_BASE_URL")

	set(&c.WordPress.BaseURL, "WORDPRESS_BASE_URL")
	set(&c.WordPress.Username, "WORDPRESS_USERNAME")
	set(&c.WordPress.AppPassword, "WORDPRESS_APP_PASSWORD")

	set(&c.Artifacts.BlogDir, "RELAY_BLOG_DIR")
	set(&c.Artifacts.ScriptDir, "RELAY_SCRIPT_DIR")
	set(&c.Pipeline.RunLog, "RELAY_RUN_LOG")

	if v := os.Getenv("RELAY_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.LLM.TimeoutSeconds = n
		}
	}
}

// Timeout is the per-call deadline for outbound work.
func (c *Config) Timeout() time.Duration {
	secs := c.Pipeline.TimeoutSeconds
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}
