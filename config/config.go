package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the catalog service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Index     IndexConfig     `mapstructure:"index"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	JWTSecret   string   `mapstructure:"jwt_secret"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LLMConfig configures the OpenAI-compatible provider used for both
// embeddings and answer synthesis.
type LLMConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	ChatModel      string  `mapstructure:"chat_model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	QueryCacheSize int     `mapstructure:"query_cache_size"`
}

// SourcesConfig carries per-adapter credentials plus shared HTTP tuning.
type SourcesConfig struct {
	Timeout           time.Duration     `mapstructure:"timeout"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second"`
	Rebrickable       RebrickableConfig `mapstructure:"rebrickable"`
	Brickset          BricksetConfig    `mapstructure:"brickset"`
	BrickOwl          BrickOwlConfig    `mapstructure:"brickowl"`
	BrickLink         BrickLinkConfig   `mapstructure:"bricklink"`
	Curated           CuratedConfig     `mapstructure:"curated"`
}

// RebrickableConfig configures the Rebrickable API adapter.
type RebrickableConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
	PageSize int    `mapstructure:"page_size"`
}

// BricksetConfig configures the Brickset API adapter.
type BricksetConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Endpoint string `mapstructure:"endpoint"`
}

// BrickOwlConfig configures the BrickOwl API adapter.
type BrickOwlConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// BrickLinkConfig configures the BrickLink API adapter.
type BrickLinkConfig struct {
	Token    string `mapstructure:"token"`
	Endpoint string `mapstructure:"endpoint"`
}

// CuratedConfig toggles the built-in curated sources that need no
// credentials.
type CuratedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StorageConfig groups the backing stores.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN renders the connection string, preferring an explicit URL.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	user := p.User
	if p.Password != "" {
		user = fmt.Sprintf("%s:%s", p.User, p.Password)
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", user, p.Host, p.Port, p.DBName, sslmode)
}

// RedisConfig contains Redis connection settings. An empty host disables
// the answer cache and the scheduler lock.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

// Addr renders host:port for the redis client.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// IndexConfig controls index construction and snapshot persistence.
type IndexConfig struct {
	Dir              string `mapstructure:"dir"`
	BatchSize        int    `mapstructure:"batch_size"`
	DetailCap        int    `mapstructure:"detail_cap"`
	RebuildOnStartup bool   `mapstructure:"rebuild_on_startup"`
}

// RetrievalConfig tunes query answering.
type RetrievalConfig struct {
	Hybrid   bool          `mapstructure:"hybrid"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// IngestConfig tunes ingestion runs.
type IngestConfig struct {
	Limit       int `mapstructure:"limit"`
	Parallelism int `mapstructure:"parallelism"`
}

// ScheduleConfig drives periodic ingestion from the API server.
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
	Rebuild bool   `mapstructure:"rebuild"`
}

// LoadConfig loads config from file (json), environment (BRICKSAGE_*) and
// defaults, in ascending precedence of defaults < file < env. A missing
// file is fine when no explicit path was given; any other load error is
// fatal.
func LoadConfig(path string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("llm.chat_model", "gpt-4o-mini")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 600)
	v.SetDefault("llm.query_cache_size", 512)
	v.SetDefault("sources.timeout", "30s")
	v.SetDefault("sources.requests_per_second", 2.0)
	v.SetDefault("sources.rebrickable.page_size", 100)
	v.SetDefault("sources.curated.enabled", true)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.dbname", "bricksage")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("index.dir", "./data/index")
	v.SetDefault("index.batch_size", 32)
	v.SetDefault("index.detail_cap", 500)
	v.SetDefault("retrieval.cache_ttl", "10m")
	v.SetDefault("ingest.limit", 100)
	v.SetDefault("ingest.parallelism", 4)
	v.SetDefault("schedule.cron", "@daily")
	v.SetDefault("schedule.rebuild", true)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("BRICKSAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.normalize()

	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}

// normalize fills credential fields from the conventional environment
// variables when the config leaves them blank, matching how the upstream
// catalog APIs document their keys.
func (c *Config) normalize() {
	fallback := func(dst *string, env string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = os.Getenv(env)
		}
	}
	fallback(&c.LLM.APIKey, "OPENAI_API_KEY")
	fallback(&c.Sources.Rebrickable.APIKey, "REBRICKABLE_API_KEY")
	fallback(&c.Sources.Brickset.APIKey, "BRICKSET_API_KEY")
	fallback(&c.Sources.Brickset.Username, "BRICKSET_USERNAME")
	fallback(&c.Sources.Brickset.Password, "BRICKSET_PASSWORD")
	fallback(&c.Sources.BrickOwl.APIKey, "BRICKOWL_API_KEY")
	fallback(&c.Sources.BrickLink.Token, "BRICKLINK_TOKEN")
	fallback(&c.Storage.Postgres.URL, "DATABASE_URL")
	fallback(&c.Server.JWTSecret, "BRICKSAGE_JWT_SECRET")
}
