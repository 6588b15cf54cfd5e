package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBPath    string           `json:"db_path"`
	LogConfig logger.LogConfig `json:"log_config"`
	FileStore FileStoreConfig  `json:"file_store"`
	Project   ProjectConfig    `json:"project"`
	AI        AIConfig         `json:"ai"`
	Context   ContextConfig    `json:"context"`
	Cache     CacheConfig      `json:"cache"`
	Preview   PreviewConfig    `json:"preview"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProjectConfig struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Topic    string   `json:"topic"`
	Template string   `json:"template"`
}

// AIProviderConfig is one entry of the failover chain, tried in order.
type AIProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Args     interface{} `json:"args"`
}

type AIConfig struct {
	Chain             []AIProviderConfig `json:"chain"`
	Timeout           int                `json:"timeout"`
	MaxInputChars     int                `json:"max_input_chars"`
	RequestsPerMinute int                `json:"requests_per_minute"`
	RetryWaitSeconds  int                `json:"retry_wait_seconds"`
}

type ContextConfig struct {
	MaxTokens int     `json:"max_tokens"`
	Margin    float64 `json:"margin"`
}

type CacheConfig struct {
	Disable  bool `json:"disable"`
	LruSize  int  `json:"lru_size"`
	TTLHours int  `json:"ttl_hours"`
}

type PreviewConfig struct {
	Port int `json:"port"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
		if cfg.FileStore.Data == nil {
			cfg.FileStore.Data = map[string]interface{}{"dir": "papergen_files"}
		}
	}
	if cfg.Project.Template == "" {
		cfg.Project.Template = "basic"
	}
	if len(cfg.AI.Chain) == 0 {
		cfg.AI.Chain = []AIProviderConfig{{Provider: "offline", Model: "offline"}}
	}
	for i, item := range cfg.AI.Chain {
		if item.Provider == "" {
			return nil, fmt.Errorf("ai.chain[%d].provider is required", i)
		}
		if item.Model == "" && item.Provider != "offline" {
			return nil, fmt.Errorf("ai.chain[%d].model is required", i)
		}
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 120
	}
	if cfg.AI.RetryWaitSeconds <= 0 {
		cfg.AI.RetryWaitSeconds = 30
	}
	if cfg.Context.MaxTokens <= 0 {
		cfg.Context.MaxTokens = 6000
	}
	if cfg.Context.Margin < 0 || cfg.Context.Margin >= 1 {
		return nil, fmt.Errorf("context.margin must be in [0, 1)")
	}
	if cfg.Context.Margin == 0 {
		cfg.Context.Margin = 0.25
	}
	if cfg.Cache.LruSize <= 0 {
		cfg.Cache.LruSize = 256
	}
	if cfg.Cache.TTLHours <= 0 {
		cfg.Cache.TTLHours = 720
	}
	if cfg.Preview.Port <= 0 {
		cfg.Preview.Port = 8901
	}
	return &cfg, nil
}
