// Package config loads service configuration from an optional YAML file and
// GRAPHCHAT_* environment variables. Env overrides file, file overrides
// defaults. Load never requires the file to exist; a zero-config start with
// local defaults is the common development path.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Graph        GraphConfig        `mapstructure:"graph"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Agent        AgentConfig        `mapstructure:"agent"`
	Retrieval    RetrievalConfig    `mapstructure:"retrieval"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	AuthKey  string `mapstructure:"auth_key"`
	MaxConns int    `mapstructure:"max_conns"`
}

// LLMConfig selects the model backend. Backend is "ollama" or "openai"; with
// "openai" an API key is required.
type LLMConfig struct {
	Backend    string `mapstructure:"backend"`
	BaseURL    string `mapstructure:"base_url"`
	ChatModel  string `mapstructure:"chat_model"`
	EmbedModel string `mapstructure:"embed_model"`
	APIKey     string `mapstructure:"api_key"`
}

type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type ConversationConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxMessages int           `mapstructure:"max_messages"`
}

type AgentConfig struct {
	MaxSteps         int           `mapstructure:"max_steps"`
	MaxExecutionTime time.Duration `mapstructure:"max_execution_time"`
	DynamicPlanning  bool          `mapstructure:"dynamic_planning"`
}

// RetrievalConfig tunes semantic search. Collection names the vector
// collection every retrieval path searches; it matches the ingestion default,
// so uploaded documents are reachable without extra configuration.
type RetrievalConfig struct {
	TopK       int    `mapstructure:"top_k"`
	Collection string `mapstructure:"collection"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply. Environment variables use the GRAPHCHAT_
// prefix with underscores for nesting, e.g. GRAPHCHAT_SERVER_PORT,
// GRAPHCHAT_LLM_API_KEY.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.max_conns", 256)
	v.SetDefault("llm.backend", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.chat_model", "qwen2.5:7b")
	v.SetDefault("llm.embed_model", "nomic-embed-text")
	v.SetDefault("graph.uri", "neo4j://localhost:7687")
	v.SetDefault("graph.user", "neo4j")
	v.SetDefault("storage.data_dir", defaultDataDir())
	v.SetDefault("conversation.ttl", 24*time.Hour)
	v.SetDefault("conversation.max_messages", 50)
	v.SetDefault("agent.max_steps", 5)
	v.SetDefault("agent.max_execution_time", 2*time.Minute)
	v.SetDefault("agent.dynamic_planning", true)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.collection", "documents")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("GRAPHCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LLM.Backend {
	case "ollama":
	case "openai":
		if c.LLM.APIKey == "" {
			return errors.New("llm.backend is openai but llm.api_key is empty (set GRAPHCHAT_LLM_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown llm.backend %q (want ollama or openai)", c.LLM.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

func defaultDataDir() string {
	return "./data"
}
