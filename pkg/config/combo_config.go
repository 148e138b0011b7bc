package config

import (
	"fmt"
	"sort"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// ComboConfigPath 连击配置在嵌入资源中的路径
const ComboConfigPath = "data/combo.yaml"

// ActionValue 动作的基础分和权重
type ActionValue struct {
	BasePoints int     `yaml:"basePoints"`
	Weight     float64 `yaml:"weight"`
	Derived    bool    `yaml:"derived"` // 派生奖励，不能通过 RegisterAction 登记
}

// ComboConfig 连击系统配置
type ComboConfig struct {
	InitialWindowMs         float64                               `yaml:"initialWindowMs"`
	MinWindowMs             float64                               `yaml:"minWindowMs"`
	WindowDecay             float64                               `yaml:"windowDecay"`
	MultiplierStep          float64                               `yaml:"multiplierStep"`
	FeverThreshold          int                                   `yaml:"feverThreshold"`
	FeverPointMultiplier    float64                               `yaml:"feverPointMultiplier"`
	ChainReactionWindowMs   float64                               `yaml:"chainReactionWindowMs"`
	ChainReactionMinActions int                                   `yaml:"chainReactionMinActions"`
	Actions                 map[components.ActionType]ActionValue `yaml:"actions"`
	Milestones              []components.Milestone                `yaml:"milestones"`
}

// DefaultComboConfig 返回内置的连击配置
// 与 data/combo.yaml 保持一致
func DefaultComboConfig() *ComboConfig {
	return &ComboConfig{
		InitialWindowMs:         3000,
		MinWindowMs:             500,
		WindowDecay:             0.9,
		MultiplierStep:          0.1,
		FeverThreshold:          10,
		FeverPointMultiplier:    2,
		ChainReactionWindowMs:   1000,
		ChainReactionMinActions: 3,
		Actions: map[components.ActionType]ActionValue{
			components.ActionFlagCollected:    {BasePoints: 100, Weight: 1.0},
			components.ActionEnemyAvoided:     {BasePoints: 50, Weight: 0.5},
			components.ActionPowerupCollected: {BasePoints: 75, Weight: 0.8},
			components.ActionNearMiss:         {BasePoints: 150, Weight: 1.5},
			components.ActionPerfectTurn:      {BasePoints: 50, Weight: 0.5},
			components.ActionChainReaction:    {BasePoints: 200, Weight: 2.0, Derived: true},
		},
		Milestones: []components.Milestone{
			{Threshold: 5, Name: "Nice Combo!", Bonus: 500, Color: "#4CAF50"},
			{Threshold: 10, Name: "Fever Mode!", Bonus: 1000, Color: "#FF5722", ForcesFever: true},
			{Threshold: 15, Name: "Awesome!", Bonus: 2000, Color: "#9C27B0"},
			{Threshold: 20, Name: "Incredible!", Bonus: 3500, Color: "#2196F3"},
			{Threshold: 30, Name: "Unstoppable!", Bonus: 6000, Color: "#F44336"},
			{Threshold: 50, Name: "LEGENDARY!", Bonus: 15000, Color: "#FFD700"},
		},
	}
}

// LoadComboConfig 从嵌入资源加载连击配置
func LoadComboConfig(path string) (*ComboConfig, error) {
	data, err := embedded.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read combo config file %s: %w", path, err)
	}
	cfg, err := ParseComboConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid combo config in %s: %w", path, err)
	}
	return cfg, nil
}

// ParseComboConfig 解析并验证连击配置 YAML
func ParseComboConfig(data []byte) (*ComboConfig, error) {
	var cfg ComboConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse combo config YAML: %w", err)
	}
	if err := validateComboConfig(&cfg); err != nil {
		return nil, err
	}
	sort.Slice(cfg.Milestones, func(i, j int) bool {
		return cfg.Milestones[i].Threshold < cfg.Milestones[j].Threshold
	})
	return &cfg, nil
}

// validateComboConfig 验证连击配置的合法性
func validateComboConfig(cfg *ComboConfig) error {
	if cfg.MinWindowMs <= 0 {
		return fmt.Errorf("minWindowMs must be positive, got %v", cfg.MinWindowMs)
	}
	if cfg.InitialWindowMs < cfg.MinWindowMs {
		return fmt.Errorf("initialWindowMs (%v) must not be below minWindowMs (%v)", cfg.InitialWindowMs, cfg.MinWindowMs)
	}
	if cfg.WindowDecay <= 0 || cfg.WindowDecay > 1 {
		return fmt.Errorf("windowDecay must be in (0, 1], got %v", cfg.WindowDecay)
	}
	if cfg.MultiplierStep < 0 {
		return fmt.Errorf("multiplierStep cannot be negative, got %v", cfg.MultiplierStep)
	}
	if cfg.FeverThreshold < 1 {
		return fmt.Errorf("feverThreshold must be at least 1, got %d", cfg.FeverThreshold)
	}
	if cfg.ChainReactionMinActions < 2 {
		return fmt.Errorf("chainReactionMinActions must be at least 2, got %d", cfg.ChainReactionMinActions)
	}

	for _, action := range components.AllActionTypes() {
		value, ok := cfg.Actions[action]
		if !ok {
			return fmt.Errorf("action %s is missing", action)
		}
		if value.BasePoints < 0 {
			return fmt.Errorf("action %s: basePoints cannot be negative, got %d", action, value.BasePoints)
		}
	}
	for action := range cfg.Actions {
		if !isKnownAction(action) {
			return fmt.Errorf("unknown action %q", action)
		}
	}
	if !cfg.Actions[components.ActionChainReaction].Derived {
		return fmt.Errorf("action %s must be marked derived", components.ActionChainReaction)
	}

	seen := make(map[int]bool)
	for _, m := range cfg.Milestones {
		if m.Threshold < 1 {
			return fmt.Errorf("milestone %q: threshold must be at least 1, got %d", m.Name, m.Threshold)
		}
		if seen[m.Threshold] {
			return fmt.Errorf("duplicate milestone threshold %d", m.Threshold)
		}
		seen[m.Threshold] = true
		// 狂热模式只能在达到阈值后开启
		if m.ForcesFever && m.Threshold < cfg.FeverThreshold {
			return fmt.Errorf("milestone %q forces fever below feverThreshold %d", m.Name, cfg.FeverThreshold)
		}
	}
	return nil
}

func isKnownAction(action components.ActionType) bool {
	for _, a := range components.AllActionTypes() {
		if a == action {
			return true
		}
	}
	return false
}
