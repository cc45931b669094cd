package conf

import (
	"fmt"
	"time"

	"github.com/liubx8864/supportloop/internal/pkg/database"
	"github.com/liubx8864/supportloop/internal/pkg/logger"
	"github.com/liubx8864/supportloop/internal/pkg/redis"
	"github.com/liubx8864/supportloop/internal/pkg/workerpool"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database database.Config   `mapstructure:"database"`
	Redis    redis.Config      `mapstructure:"redis"`
	Log      logger.Config     `mapstructure:"log"`
	Auth     AuthConfig        `mapstructure:"auth"`
	LLM      LLMConfig         `mapstructure:"llm"`
	Chat     ChatConfig        `mapstructure:"chat"`
	Pool     workerpool.Config `mapstructure:"pool"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// LLMConfig selects and configures the inference provider.
type LLMConfig struct {
	Provider  string `mapstructure:"provider"` // anthropic | openai
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// ChatConfig bounds the inference loop.
type ChatConfig struct {
	SystemPrompt  string        `mapstructure:"system_prompt"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryBaseWait time.Duration `mapstructure:"retry_base_wait"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("SUPPORTLOOP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.Chat.MaxToolRounds == 0 {
		c.Chat.MaxToolRounds = 8
	}
	if c.Chat.MaxRetries == 0 {
		c.Chat.MaxRetries = 3
	}
	if c.Chat.RetryBaseWait == 0 {
		c.Chat.RetryBaseWait = 500 * time.Millisecond
	}
	if c.Chat.LockTTL == 0 {
		c.Chat.LockTTL = 2 * time.Minute
	}
	if c.Pool.Workers == 0 {
		c.Pool.Workers = 32
	}
}
