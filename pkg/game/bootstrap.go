package game

import (
	"context"
	"time"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/gonewx/rallyx/pkg/embedded"
	"github.com/gonewx/rallyx/pkg/storage"
	"github.com/gonewx/rallyx/pkg/systems"
	"github.com/sirupsen/logrus"
)

// Tables 三个组件使用的静态配置表
type Tables struct {
	Combo *config.ComboConfig
	Modes *config.GameModesConfig
	AI    *config.AITuningConfig
}

// LoadTables 从嵌入资源加载配置表
// 任何一张表加载失败都回退到内置默认值，不会中断启动
func LoadTables() Tables {
	log := logrus.WithField("component", "Bootstrap")
	tables := Tables{
		Combo: config.DefaultComboConfig(),
		Modes: config.DefaultGameModesConfig(),
		AI:    config.DefaultAITuningConfig(),
	}
	if !embedded.IsInitialized() {
		log.Warn("embedded data not initialized, using built-in tables")
		return tables
	}

	if cfg, err := config.LoadComboConfig(config.ComboConfigPath); err != nil {
		log.WithError(err).Warn("using built-in combo table")
	} else {
		tables.Combo = cfg
	}
	if cfg, err := config.LoadGameModesConfig(config.GameModesConfigPath); err != nil {
		log.WithError(err).Warn("using built-in game mode table")
	} else {
		tables.Modes = cfg
	}
	if cfg, err := config.LoadAITuningConfig(config.AITuningConfigPath); err != nil {
		log.WithError(err).Warn("using built-in AI tuning table")
	} else {
		tables.AI = cfg
	}
	return tables
}

// StoreHandle 管理 OpenStore 创建的存储的生命周期
type StoreHandle struct {
	flush   func(context.Context) error
	closers []func(context.Context) error
}

// Flush 把排队的写入落盘，存储保持可用
// 同步存储没有排队，直接返回 nil
func (h *StoreHandle) Flush(ctx context.Context) error {
	if h == nil || h.flush == nil {
		return nil
	}
	return h.flush(ctx)
}

// Close 先刷新异步写入再关闭底层连接，返回第一个错误
func (h *StoreHandle) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	var first error
	for _, c := range h.closers {
		if err := c(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenStore 按运行时配置创建存储
//
// gdata 或 Redis 不可用时降级为内存存储（画像和记录只在本次运行有效）。
// AsyncStorage 开启时用 AsyncStore 包装，写入不阻塞游戏循环。
//
// 返回：
//   - storage.Store: 存储实例
//   - *StoreHandle: 刷新异步写入、断开 Redis
func OpenStore(ctx context.Context, cfg *config.RuntimeConfig) (storage.Store, *StoreHandle) {
	log := logrus.WithField("component", "Bootstrap")
	handle := &StoreHandle{}

	var store storage.Store
	switch cfg.Storage {
	case config.StorageGdata:
		dir, err := storage.EnsureDataDir()
		if err != nil {
			log.WithError(err).Warn("failed to prepare storage directory")
		} else if dir != "" {
			log.WithField("dir", dir).Debug("storage directory ready")
		}
		gs, err := storage.OpenGdataStore(cfg.AppName)
		if err != nil {
			log.WithError(err).Warn("gdata unavailable, falling back to memory storage")
			break
		}
		store = gs
	case config.StorageRedis:
		opts := storage.RedisOptions{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			KeyPrefix:    cfg.RedisKeyPrefix,
			Timeout:      time.Duration(cfg.RedisTimeoutMs) * time.Millisecond,
			MaxRetries:   cfg.RedisMaxRetries,
			RetryBackoff: time.Duration(cfg.RedisRetryDelayMs) * time.Millisecond,
		}
		client, err := storage.NewRedisClient(ctx, opts)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, falling back to memory storage")
			break
		}
		handle.closers = append(handle.closers, func(context.Context) error { return client.Close() })
		store = storage.NewRedisStore(client, opts)
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	if cfg.AsyncStorage {
		async := storage.NewAsyncStore(store)
		// 先刷新异步写入，再关闭底层连接
		handle.closers = append([]func(context.Context) error{async.Close}, handle.closers...)
		handle.flush = async.Flush
		store = async
	}

	log.WithFields(logrus.Fields{
		"backend": cfg.Storage,
		"async":   cfg.AsyncStorage,
	}).Info("storage ready")

	return store, handle
}

// BuildSession 按运行时配置组装会话：配置表、存储、随机源和三个组件
//
// 返回的 StoreHandle 必须在退出前 Close，以刷新未写完的画像和记录。
func BuildSession(ctx context.Context, cfg *config.RuntimeConfig) (*Session, *StoreHandle) {
	tables := LoadTables()
	store, handle := OpenStore(ctx, cfg)
	rng := systems.NewRandomSource(cfg.Seed)

	session := NewSession(
		systems.NewComboSystem(tables.Combo),
		systems.NewGameModeManager(tables.Modes, store, rng),
		systems.NewAIManager(tables.AI, store),
		cfg.Lives,
	)
	logrus.WithFields(logrus.Fields{
		"component": "Bootstrap",
		"session":   session.ID(),
		"seed":      cfg.Seed,
	}).Info("session assembled")
	return session, handle
}

// StartConfigured 按运行时配置的模式和等级开始会话
func StartConfigured(s *Session, cfg *config.RuntimeConfig) (components.GameMode, error) {
	return s.Start(components.GameMode(cfg.Mode), cfg.PlayerLevel)
}
