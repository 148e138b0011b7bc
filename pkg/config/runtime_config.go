package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 存储后端
const (
	StorageMemory = "memory"
	StorageGdata  = "gdata"
	StorageRedis  = "redis"
)

// RuntimeConfig 运行时配置，从环境变量读取
// 本地开发时可在工作目录放置 .env 文件
type RuntimeConfig struct {
	// 存储
	Storage      string `env:"RALLYX_STORAGE" envDefault:"gdata"`
	AppName      string `env:"RALLYX_APP_NAME" envDefault:"rallyx"`
	AsyncStorage bool   `env:"RALLYX_ASYNC_STORAGE" envDefault:"true"`

	// Redis
	RedisAddr         string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix    string `env:"REDIS_KEY_PREFIX" envDefault:"rallyx:"`
	RedisMaxRetries   uint64 `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisTimeoutMs    int    `env:"REDIS_TIMEOUT_MS" envDefault:"3000"`
	RedisRetryDelayMs int    `env:"REDIS_RETRY_DELAY_MS" envDefault:"500"`

	// 会话
	Seed        int64  `env:"RALLYX_SEED" envDefault:"0"` // 0 表示使用当前时间
	PlayerLevel int    `env:"RALLYX_PLAYER_LEVEL" envDefault:"1"`
	Mode        string `env:"RALLYX_MODE" envDefault:"classic"`
	Lives       int    `env:"RALLYX_LIVES" envDefault:"3"`

	// 调试
	DebugAddr string `env:"RALLYX_DEBUG_ADDR"` // 为空时不启动调试服务
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadRuntimeConfig 读取 .env（若存在）和环境变量
func LoadRuntimeConfig() (*RuntimeConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	cfg := &RuntimeConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse runtime config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验运行时配置
func (c *RuntimeConfig) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageGdata, StorageRedis:
	default:
		return fmt.Errorf("invalid RALLYX_STORAGE %q (must be memory, gdata or redis)", c.Storage)
	}
	if c.Storage == StorageGdata && c.AppName == "" {
		return fmt.Errorf("RALLYX_APP_NAME is required for gdata storage")
	}
	if c.Storage == StorageRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for redis storage")
	}
	if c.RedisTimeoutMs <= 0 {
		return fmt.Errorf("invalid REDIS_TIMEOUT_MS: %d (must be positive)", c.RedisTimeoutMs)
	}
	if c.PlayerLevel < 1 {
		return fmt.Errorf("invalid RALLYX_PLAYER_LEVEL: %d (must be at least 1)", c.PlayerLevel)
	}
	if c.Lives < 1 {
		return fmt.Errorf("invalid RALLYX_LIVES: %d (must be at least 1)", c.Lives)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (must be text or json)", c.LogFormat)
	}
	return nil
}

// ConfigureLogging 按配置设置 logrus 的级别和格式
func (c *RuntimeConfig) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.ToLower(c.LogFormat) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
