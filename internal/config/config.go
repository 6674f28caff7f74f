package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8000
	DefaultLogLevel          = "info"
	DefaultDatabaseDriver    = "sqlite"
	DefaultDatabaseDSN       = "file:textlab.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	DefaultProvider          = "ollama"
	DefaultBaseURL           = "http://localhost:11434"
	DefaultModel             = "llama3.2"
	DefaultEmbedModel        = "nomic-embed-text"
	DefaultGenerationTimeout = "90s"
	DefaultGenerationRetries = 1
	DefaultChunkSize         = 6000 // characters
	DefaultChunkOverlap      = 200  // characters
	DefaultCandidates        = 3
	DefaultParaphraseMode    = "sampling"
	DefaultIndexPath         = "./chromemdb"
	DefaultCollection        = "history"
	DefaultSyncSchedule      = "@every 10m"
	DefaultWatchPattern      = "**/*.{txt,md,pdf,docx,pptx}"
)

type Config struct {
	Server       ServerConfig         `yaml:"server"`
	Log          LogConfig            `yaml:"log"`
	Database     DatabaseConfig       `yaml:"database"`
	LLM          LLMConfig            `yaml:"llm"`
	Models       map[string]LLMConfig `yaml:"models"`
	EmbedLLM     LLMConfig            `yaml:"embed_llm"`
	Generation   GenerationConfig     `yaml:"generation"`
	Planner      PlannerConfig        `yaml:"planner"`
	Paraphrase   ParaphraseConfig     `yaml:"paraphrase"`
	HistoryIndex HistoryIndexConfig   `yaml:"history_index"`
	Watch        WatchConfig          `yaml:"watch"`
	Scheduler    SchedulerConfig      `yaml:"scheduler"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	// Driver is one of sqlite, pgdriver or pq.
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// LLMConfig describes one backend reachable through langchaingo.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai or ollama
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// GenerationConfig bounds model calls. Retries is the number of extra
// attempts after a failed call; a negative value disables retrying.
type GenerationConfig struct {
	Timeout      string `yaml:"timeout"`
	Retries      int    `yaml:"retries"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// TimeoutDuration parses Timeout, falling back to the default on error.
func (g GenerationConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultGenerationTimeout)
	}
	return d
}

// LengthBounds is one row of the summary length table. A zero Min means
// 30% of Max.
type LengthBounds struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type PlannerConfig struct {
	SummaryLengths map[string]LengthBounds `yaml:"summary_lengths"`
}

type ParaphraseConfig struct {
	Candidates int    `yaml:"candidates"`
	Mode       string `yaml:"mode"` // sampling or beam
}

type HistoryIndexConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	InMemory      bool   `yaml:"in_memory"`
	EncryptionKey string `yaml:"encryption_key"`
}

type WatchConfig struct {
	Pattern string `yaml:"pattern"`
}

type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SyncSchedule string `yaml:"sync_schedule"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and returns the defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return LoadConfig(path)
}

func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero field with its default value.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDatabaseDriver
	}
	if c.Database.DSN == "" && c.Database.Driver == DefaultDatabaseDriver {
		c.Database.DSN = DefaultDatabaseDSN
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultProvider
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == DefaultProvider {
		c.LLM.BaseURL = DefaultBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = c.LLM.Provider
	}
	if c.EmbedLLM.BaseURL == "" {
		c.EmbedLLM.BaseURL = c.LLM.BaseURL
	}
	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = c.LLM.Key
	}
	if c.EmbedLLM.Model == "" {
		c.EmbedLLM.Model = DefaultEmbedModel
	}
	if c.Generation.Timeout == "" {
		c.Generation.Timeout = DefaultGenerationTimeout
	}
	if c.Generation.Retries == 0 {
		c.Generation.Retries = DefaultGenerationRetries
	}
	if c.Generation.ChunkSize == 0 {
		c.Generation.ChunkSize = DefaultChunkSize
	}
	if c.Generation.ChunkOverlap == 0 {
		c.Generation.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Paraphrase.Candidates <= 0 {
		c.Paraphrase.Candidates = DefaultCandidates
	}
	if c.Paraphrase.Mode == "" {
		c.Paraphrase.Mode = DefaultParaphraseMode
	}
	if c.HistoryIndex.Path == "" {
		c.HistoryIndex.Path = DefaultIndexPath
	}
	if c.HistoryIndex.Collection == "" {
		c.HistoryIndex.Collection = DefaultCollection
	}
	if c.Watch.Pattern == "" {
		c.Watch.Pattern = DefaultWatchPattern
	}
	if c.Scheduler.SyncSchedule == "" {
		c.Scheduler.SyncSchedule = DefaultSyncSchedule
	}
}

// ApplyEnv overrides selected fields from TEXTLAB_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TEXTLAB_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("TEXTLAB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TEXTLAB_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TEXTLAB_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("TEXTLAB_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("TEXTLAB_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("TEXTLAB_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("TEXTLAB_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("TEXTLAB_LLM_KEY"); v != "" {
		c.LLM.Key = v
	}
	if v := os.Getenv("TEXTLAB_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

// ModelConfig resolves the backend for a model identifier. Identifiers
// without an entry in Models run on the default backend under their own name.
func (c *Config) ModelConfig(modelID string) LLMConfig {
	if m, ok := c.Models[modelID]; ok {
		if m.Provider == "" {
			m.Provider = c.LLM.Provider
		}
		if m.BaseURL == "" {
			m.BaseURL = c.LLM.BaseURL
		}
		if m.Key == "" {
			m.Key = c.LLM.Key
		}
		if m.Model == "" {
			m.Model = modelID
		}
		return m
	}
	m := c.LLM
	if modelID != "" {
		m.Model = modelID
	}
	return m
}
