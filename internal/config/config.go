// Package config loads service settings from defaults, an optional YAML
// file, an optional .env file and the process environment, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// MaxAIRetries caps AI_MAX_RETRIES.
const MaxAIRetries = 1

// Config holds every setting of the service and its tools.
type Config struct {
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	StoreBackend string `yaml:"store_backend"`
	DatabaseURL  string `yaml:"database_url"`
	BQProject    string `yaml:"bq_project"`
	BQDataset    string `yaml:"bq_dataset"`
	GCSBucket    string `yaml:"gcs_bucket"`

	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	AITimeout    time.Duration `yaml:"ai_timeout"`
	AIMaxRetries int           `yaml:"ai_max_retries"`

	NotionToken     string `yaml:"notion_token"`
	NotionReportsDB string `yaml:"notion_reports_db"`

	JobWorkers  int      `yaml:"job_workers"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Port:         8080,
		LogLevel:     "info",
		LogFormat:    "console",
		StoreBackend: BackendMemory,
		GeminiModel:  "gemini-2.5-flash",
		AITimeout:    60 * time.Second,
		AIMaxRetries: MaxAIRetries,
		JobWorkers:   2,
		CORSOrigins:  []string{"*"},
	}
}

// Load reads configuration for the current process. A missing .env or
// config file is not an error.
func Load() (*Config, error) {
	return LoadFrom(".env", os.LookupEnv)
}

// LookupFunc resolves one environment variable.
type LookupFunc func(key string) (string, bool)

// LoadFrom builds a Config from the given .env path and environment lookup.
func LoadFrom(envFile string, lookup LookupFunc) (*Config, error) {
	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Default()
	if path, ok := get("CONFIG_FILE"); ok && path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(get); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(get LookupFunc) error {
	strs := map[string]*string{
		"LOG_LEVEL":         &c.LogLevel,
		"LOG_FORMAT":        &c.LogFormat,
		"STORE_BACKEND":     &c.StoreBackend,
		"DATABASE_URL":      &c.DatabaseURL,
		"BQ_PROJECT":        &c.BQProject,
		"BQ_DATASET":        &c.BQDataset,
		"GCS_BUCKET":        &c.GCSBucket,
		"GEMINI_API_KEY":    &c.GeminiAPIKey,
		"GEMINI_MODEL":      &c.GeminiModel,
		"NOTION_TOKEN":      &c.NotionToken,
		"NOTION_REPORTS_DB": &c.NotionReportsDB,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"PORT":           &c.Port,
		"AI_MAX_RETRIES": &c.AIMaxRetries,
		"JOB_WORKERS":    &c.JobWorkers,
	}
	for key, dst := range ints {
		v, ok := get(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", key, v)
		}
		*dst = n
	}

	if v, ok := get("AI_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := parseTimeout(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: AI_TIMEOUT=%q: %w", v, err)
		}
		c.AITimeout = d
	}
	if v, ok := get("CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	return nil
}

// parseTimeout accepts a Go duration ("45s") or a bare number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Validate checks backend requirements and clamps limits.
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(c.StoreBackend)
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres backend")
		}
	case BackendBigQuery:
		if c.BQProject == "" || c.BQDataset == "" {
			return fmt.Errorf("config: BQ_PROJECT and BQ_DATASET are required for the bigquery backend")
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("config: AI_TIMEOUT must be positive")
	}
	if c.AIMaxRetries < 0 {
		c.AIMaxRetries = 0
	}
	if c.AIMaxRetries > MaxAIRetries {
		c.AIMaxRetries = MaxAIRetries
	}
	if c.JobWorkers <= 0 {
		c.JobWorkers = 1
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NotionEnabled reports whether reports should be published to Notion.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionReportsDB != ""
}
