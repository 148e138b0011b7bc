package config

import (
	"fmt"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// AITuningConfigPath AI 调参配置在嵌入资源中的路径
const AITuningConfigPath = "data/ai_tuning.yaml"

// Range 闭区间
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Clamp 将 v 限制在 [Min, Max]
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains 判断 v 是否在区间内
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SkillTier 技能等级分档
// AverageScore < MaxAverageScore 时落入该档；最后一档 MaxAverageScore 为 0 表示无上限
type SkillTier struct {
	Level           components.SkillLevel `yaml:"level"`
	MaxAverageScore float64               `yaml:"maxAverageScore"`
	BaseDifficulty  float64               `yaml:"baseDifficulty"`
}

// AdjustmentFactors 难度调整的乘数
type AdjustmentFactors struct {
	StrugglingDifficulty float64 `yaml:"strugglingDifficulty"` // 0.9
	StrugglingEnemySpeed float64 `yaml:"strugglingEnemySpeed"` // 0.95
	StrugglingPowerups   float64 `yaml:"strugglingPowerups"`   // 1.1
	BoredDifficulty      float64 `yaml:"boredDifficulty"`      // 1.1
	BoredEnemyCount      float64 `yaml:"boredEnemyCount"`      // 1.05
	MercyDifficulty      float64 `yaml:"mercyDifficulty"`      // 0.8
	MercyPowerups        float64 `yaml:"mercyPowerups"`        // 1.3
	StreakDifficulty     float64 `yaml:"streakDifficulty"`     // 1.2
	StreakEnemySpeed     float64 `yaml:"streakEnemySpeed"`     // 1.1
}

// AITuningConfig AIManager 调参
type AITuningConfig struct {
	AdjustIntervalMs       float64 `yaml:"adjustIntervalMs"`
	FlowLowThreshold       float64 `yaml:"flowLowThreshold"`
	FlowHighThreshold      float64 `yaml:"flowHighThreshold"`
	StrugglingEfficiency   float64 `yaml:"strugglingEfficiency"`
	MercyDeathThreshold    int     `yaml:"mercyDeathThreshold"`
	PerfectStreakThreshold int     `yaml:"perfectStreakThreshold"`
	MinGamesForRanking     int     `yaml:"minGamesForRanking"`
	HistoryLimit           int     `yaml:"historyLimit"`
	BaseReactionTimeMs     float64 `yaml:"baseReactionTimeMs"`

	DifficultyRange       Range `yaml:"difficultyRange"`
	EnemySpeedRange       Range `yaml:"enemySpeedRange"`
	EnemyCountRange       Range `yaml:"enemyCountRange"`
	PowerupFrequencyRange Range `yaml:"powerupFrequencyRange"`
	SpawnRateRange        Range `yaml:"spawnRateRange"`
	ReactionTimeRange     Range `yaml:"reactionTimeRange"`

	Factors    AdjustmentFactors `yaml:"factors"`
	SkillTiers []SkillTier       `yaml:"skillTiers"`
}

// DefaultAITuningConfig 返回内置的 AI 调参
// 与 data/ai_tuning.yaml 保持一致
func DefaultAITuningConfig() *AITuningConfig {
	return &AITuningConfig{
		AdjustIntervalMs:       5000,
		FlowLowThreshold:       30,
		FlowHighThreshold:      70,
		StrugglingEfficiency:   40,
		MercyDeathThreshold:    3,
		PerfectStreakThreshold: 2,
		MinGamesForRanking:     5,
		HistoryLimit:           10,
		BaseReactionTimeMs:     800,

		DifficultyRange:       Range{Min: 0.5, Max: 3.0},
		EnemySpeedRange:       Range{Min: 0.6, Max: 2.0},
		EnemyCountRange:       Range{Min: 0.7, Max: 2.0},
		PowerupFrequencyRange: Range{Min: 0.5, Max: 2.0},
		SpawnRateRange:        Range{Min: 0.5, Max: 3.0},
		ReactionTimeRange:     Range{Min: 250, Max: 1600},

		Factors: AdjustmentFactors{
			StrugglingDifficulty: 0.9,
			StrugglingEnemySpeed: 0.95,
			StrugglingPowerups:   1.1,
			BoredDifficulty:      1.1,
			BoredEnemyCount:      1.05,
			MercyDifficulty:      0.8,
			MercyPowerups:        1.3,
			StreakDifficulty:     1.2,
			StreakEnemySpeed:     1.1,
		},
		SkillTiers: []SkillTier{
			{Level: components.SkillBeginner, MaxAverageScore: 3000, BaseDifficulty: 0.7},
			{Level: components.SkillIntermediate, MaxAverageScore: 8000, BaseDifficulty: 1.0},
			{Level: components.SkillAdvanced, MaxAverageScore: 15000, BaseDifficulty: 1.3},
			{Level: components.SkillExpert, MaxAverageScore: 25000, BaseDifficulty: 1.6},
			{Level: components.SkillMaster, MaxAverageScore: 0, BaseDifficulty: 2.0},
		},
	}
}

// BaseDifficulty 返回技能等级对应的基础难度，未知等级返回 1.0
func (c *AITuningConfig) BaseDifficulty(level components.SkillLevel) float64 {
	for _, tier := range c.SkillTiers {
		if tier.Level == level {
			return tier.BaseDifficulty
		}
	}
	return 1.0
}

// LoadAITuningConfig 从嵌入资源加载 AI 调参
func LoadAITuningConfig(path string) (*AITuningConfig, error) {
	data, err := embedded.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AI tuning file %s: %w", path, err)
	}
	cfg, err := ParseAITuningConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid AI tuning in %s: %w", path, err)
	}
	return cfg, nil
}

// ParseAITuningConfig 解析并验证 AI 调参 YAML
func ParseAITuningConfig(data []byte) (*AITuningConfig, error) {
	var cfg AITuningConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse AI tuning YAML: %w", err)
	}
	if err := validateAITuning(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateAITuning 验证 AI 调参
func validateAITuning(cfg *AITuningConfig) error {
	if cfg.AdjustIntervalMs <= 0 {
		return fmt.Errorf("adjustIntervalMs must be positive, got %v", cfg.AdjustIntervalMs)
	}
	if cfg.FlowLowThreshold > cfg.FlowHighThreshold {
		return fmt.Errorf("flowLowThreshold (%v) must not exceed flowHighThreshold (%v)", cfg.FlowLowThreshold, cfg.FlowHighThreshold)
	}
	if cfg.HistoryLimit < 1 {
		return fmt.Errorf("historyLimit must be at least 1, got %d", cfg.HistoryLimit)
	}
	if cfg.BaseReactionTimeMs <= 0 {
		return fmt.Errorf("baseReactionTimeMs must be positive, got %v", cfg.BaseReactionTimeMs)
	}

	ranges := map[string]Range{
		"difficultyRange":       cfg.DifficultyRange,
		"enemySpeedRange":       cfg.EnemySpeedRange,
		"enemyCountRange":       cfg.EnemyCountRange,
		"powerupFrequencyRange": cfg.PowerupFrequencyRange,
		"spawnRateRange":        cfg.SpawnRateRange,
		"reactionTimeRange":     cfg.ReactionTimeRange,
	}
	for name, r := range ranges {
		if r.Min <= 0 || r.Max < r.Min {
			return fmt.Errorf("%s: invalid range [%v, %v]", name, r.Min, r.Max)
		}
	}

	if len(cfg.SkillTiers) == 0 {
		return fmt.Errorf("at least one skill tier is required")
	}
	last := 0.0
	for i, tier := range cfg.SkillTiers {
		isLast := i == len(cfg.SkillTiers)-1
		if !isLast && tier.MaxAverageScore <= last {
			return fmt.Errorf("skill tier %s: maxAverageScore must increase, got %v", tier.Level, tier.MaxAverageScore)
		}
		if tier.BaseDifficulty <= 0 {
			return fmt.Errorf("skill tier %s: baseDifficulty must be positive, got %v", tier.Level, tier.BaseDifficulty)
		}
		last = tier.MaxAverageScore
	}
	return nil
}
