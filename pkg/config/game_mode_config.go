package config

import (
	"fmt"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// GameModesConfigPath 游戏模式配置在嵌入资源中的路径
const GameModesConfigPath = "data/game_modes.yaml"

// DeathPolicy 死亡处理策略
type DeathPolicy string

const (
	DeathPolicyLives      DeathPolicy = "lives"      // 交给外部生命计数
	DeathPolicyRespawn    DeathPolicy = "respawn"    // 延迟后自动复活
	DeathPolicySingleLife DeathPolicy = "singleLife" // 一命通关
)

// GameModeSettings 单个模式的规则集
type GameModeSettings struct {
	Mode        components.GameMode `yaml:"mode"`
	DisplayName string              `yaml:"displayName"`
	Description string              `yaml:"description"`
	UnlockLevel int                 `yaml:"unlockLevel"`

	HasTimeLimit       bool    `yaml:"hasTimeLimit"`
	TimeLimitMs        float64 `yaml:"timeLimitMs"`
	TimeBonusPerSecond int     `yaml:"timeBonusPerSecond"`

	ScoreMultiplier  float64 `yaml:"scoreMultiplier"`
	PowerupSpawnRate float64 `yaml:"powerupSpawnRate"`

	DeathPolicy    DeathPolicy `yaml:"deathPolicy"`
	RespawnDelayMs float64     `yaml:"respawnDelayMs"`
	DeathPenaltyMs float64     `yaml:"deathPenaltyMs"`

	// 生存模式：每隔 DifficultyIncreaseIntervalMs 难度乘以 DifficultyIncreaseFactor
	DifficultyIncreaseIntervalMs float64 `yaml:"difficultyIncreaseIntervalMs"`
	DifficultyIncreaseFactor     float64 `yaml:"difficultyIncreaseFactor"`
	MaxDifficultyMultiplier      float64 `yaml:"maxDifficultyMultiplier"` // 0 表示不封顶

	// 混沌模式
	RandomEvents          bool    `yaml:"randomEvents"`
	RandomEventIntervalMs float64 `yaml:"randomEventIntervalMs"`
}

// RandomEventConfig 随机事件定义
type RandomEventConfig struct {
	ID         components.RandomEventID `yaml:"id"`
	Name       string                   `yaml:"name"`
	DurationMs float64                  `yaml:"durationMs"`
	Effect     components.EventEffect   `yaml:"effect"`
}

// GameModesConfig 游戏模式配置文件结构
type GameModesConfig struct {
	Modes        []GameModeSettings  `yaml:"modes"`
	RandomEvents []RandomEventConfig `yaml:"randomEvents"`
}

// Mode 按名称查找模式设置
func (c *GameModesConfig) Mode(mode components.GameMode) (GameModeSettings, bool) {
	for _, m := range c.Modes {
		if m.Mode == mode {
			return m, true
		}
	}
	return GameModeSettings{}, false
}

// Event 按 ID 查找随机事件
func (c *GameModesConfig) Event(id components.RandomEventID) (RandomEventConfig, bool) {
	for _, ev := range c.RandomEvents {
		if ev.ID == id {
			return ev, true
		}
	}
	return RandomEventConfig{}, false
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// DefaultGameModesConfig 返回内置的模式和随机事件表
// 与 data/game_modes.yaml 保持一致
func DefaultGameModesConfig() *GameModesConfig {
	return &GameModesConfig{
		Modes: []GameModeSettings{
			{
				Mode:             components.ModeClassic,
				DisplayName:      "Classic",
				Description:      "Collect every flag before the rally cars catch you.",
				UnlockLevel:      1,
				ScoreMultiplier:  1.0,
				PowerupSpawnRate: 1.0,
				DeathPolicy:      DeathPolicyLives,
			},
			{
				Mode:               components.ModeTimeAttack,
				DisplayName:        "Time Attack",
				Description:        "Three minutes on the clock. Crashes cost time, not lives.",
				UnlockLevel:        5,
				HasTimeLimit:       true,
				TimeLimitMs:        180000,
				TimeBonusPerSecond: 50,
				ScoreMultiplier:    1.5,
				PowerupSpawnRate:   1.2,
				DeathPolicy:        DeathPolicyRespawn,
				RespawnDelayMs:     2000,
				DeathPenaltyMs:     5000,
			},
			{
				Mode:                         components.ModeSurvival,
				DisplayName:                  "Survival",
				Description:                  "One life. The pursuit gets faster every thirty seconds.",
				UnlockLevel:                  25,
				ScoreMultiplier:              2.0,
				PowerupSpawnRate:             0.8,
				DeathPolicy:                  DeathPolicySingleLife,
				DifficultyIncreaseIntervalMs: 30000,
				DifficultyIncreaseFactor:     1.2,
			},
			{
				Mode:                  components.ModeChaos,
				DisplayName:           "Chaos",
				Description:           "Random events rewrite the rules mid-race.",
				UnlockLevel:           15,
				ScoreMultiplier:       1.75,
				PowerupSpawnRate:      1.5,
				DeathPolicy:           DeathPolicyLives,
				RandomEvents:          true,
				RandomEventIntervalMs: 15000,
			},
		},
		RandomEvents: []RandomEventConfig{
			{ID: components.EventSpeedFrenzy, Name: "Speed Frenzy", DurationMs: 10000,
				Effect: components.EventEffect{SpeedMultiplier: floatPtr(2.0)}},
			{ID: components.EventInvincibility, Name: "Invincible", DurationMs: 5000,
				Effect: components.EventEffect{Invincible: boolPtr(true)}},
			{ID: components.EventEnemySwarm, Name: "Enemy Swarm", DurationMs: 10000,
				Effect: components.EventEffect{EnemyCountMultiplier: floatPtr(3.0)}},
			{ID: components.EventDoublePoints, Name: "Double Points", DurationMs: 15000,
				Effect: components.EventEffect{ScoreMultiplier: floatPtr(2.0)}},
			{ID: components.EventSlowMotion, Name: "Slow Motion", DurationMs: 8000,
				Effect: components.EventEffect{SpeedMultiplier: floatPtr(0.5)}},
			{ID: components.EventDarkness, Name: "Darkness", DurationMs: 10000,
				Effect: components.EventEffect{VisionRadius: floatPtr(150)}},
			{ID: components.EventPowerupRain, Name: "Powerup Rain", DurationMs: 10000,
				Effect: components.EventEffect{PowerupSpawnRate: floatPtr(3.0)}},
			{ID: components.EventComboFrenzy, Name: "Combo Frenzy", DurationMs: 12000,
				Effect: components.EventEffect{ComboMultiplier: floatPtr(2.0)}},
		},
	}
}

// LoadGameModesConfig 从嵌入资源加载模式配置
func LoadGameModesConfig(path string) (*GameModesConfig, error) {
	data, err := embedded.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game modes file %s: %w", path, err)
	}
	cfg, err := ParseGameModesConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid game modes in %s: %w", path, err)
	}
	return cfg, nil
}

// ParseGameModesConfig 解析并验证模式配置 YAML
func ParseGameModesConfig(data []byte) (*GameModesConfig, error) {
	var cfg GameModesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse game modes YAML: %w", err)
	}
	if err := validateGameModes(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateGameModes 验证模式和事件表
func validateGameModes(cfg *GameModesConfig) error {
	if len(cfg.Modes) == 0 {
		return fmt.Errorf("at least one game mode is required")
	}

	seenModes := make(map[components.GameMode]bool)
	for _, m := range cfg.Modes {
		if seenModes[m.Mode] {
			return fmt.Errorf("duplicate game mode %s", m.Mode)
		}
		seenModes[m.Mode] = true

		if m.UnlockLevel < 0 {
			return fmt.Errorf("mode %s: unlockLevel cannot be negative, got %d", m.Mode, m.UnlockLevel)
		}
		if m.HasTimeLimit && m.TimeLimitMs <= 0 {
			return fmt.Errorf("mode %s: timeLimitMs must be positive when hasTimeLimit is set", m.Mode)
		}
		if m.ScoreMultiplier <= 0 {
			return fmt.Errorf("mode %s: scoreMultiplier must be positive, got %v", m.Mode, m.ScoreMultiplier)
		}
		if m.PowerupSpawnRate < 0 {
			return fmt.Errorf("mode %s: powerupSpawnRate cannot be negative, got %v", m.Mode, m.PowerupSpawnRate)
		}
		switch m.DeathPolicy {
		case DeathPolicyLives, DeathPolicySingleLife:
		case DeathPolicyRespawn:
			if m.RespawnDelayMs < 0 {
				return fmt.Errorf("mode %s: respawnDelayMs cannot be negative", m.Mode)
			}
		default:
			return fmt.Errorf("mode %s: unknown deathPolicy %q", m.Mode, m.DeathPolicy)
		}
		if m.DifficultyIncreaseIntervalMs > 0 && m.DifficultyIncreaseFactor < 1 {
			return fmt.Errorf("mode %s: difficultyIncreaseFactor must be >= 1, got %v", m.Mode, m.DifficultyIncreaseFactor)
		}
		if m.RandomEvents && m.RandomEventIntervalMs <= 0 {
			return fmt.Errorf("mode %s: randomEventIntervalMs must be positive when randomEvents is set", m.Mode)
		}
	}

	seenEvents := make(map[components.RandomEventID]bool)
	for _, ev := range cfg.RandomEvents {
		if ev.ID == "" {
			return fmt.Errorf("random event id is required")
		}
		if seenEvents[ev.ID] {
			return fmt.Errorf("duplicate random event %s", ev.ID)
		}
		seenEvents[ev.ID] = true
		if ev.DurationMs <= 0 {
			return fmt.Errorf("random event %s: durationMs must be positive, got %v", ev.ID, ev.DurationMs)
		}
	}
	return nil
}
