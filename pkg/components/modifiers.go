package components

// RandomEventID 混沌模式随机事件 ID
type RandomEventID string

const (
	EventSpeedFrenzy   RandomEventID = "speedFrenzy"
	EventInvincibility RandomEventID = "invincibility"
	EventEnemySwarm    RandomEventID = "enemySwarm"
	EventDoublePoints  RandomEventID = "doublePoints"
	EventSlowMotion    RandomEventID = "slowMotion"
	EventDarkness      RandomEventID = "darkness"
	EventPowerupRain   RandomEventID = "powerupRain"
	EventComboFrenzy   RandomEventID = "comboFrenzy"
)

// EventEffect 随机事件对修改器的影响
// 数值字段（指针非 nil 时）与当前值相乘；Invincible 和 VisionRadius 为覆盖
type EventEffect struct {
	ScoreMultiplier      *float64 `yaml:"scoreMultiplier,omitempty"`
	SpeedMultiplier      *float64 `yaml:"speedMultiplier,omitempty"`
	EnemyCountMultiplier *float64 `yaml:"enemyCountMultiplier,omitempty"`
	ComboMultiplier      *float64 `yaml:"comboMultiplier,omitempty"`
	PowerupSpawnRate     *float64 `yaml:"powerupSpawnRate,omitempty"`
	Invincible           *bool    `yaml:"invincible,omitempty"`
	VisionRadius         *float64 `yaml:"visionRadius,omitempty"`
}

// Clone 返回不与原值共享指针的副本
func (e EventEffect) Clone() EventEffect {
	return EventEffect{
		ScoreMultiplier:      cloneValue(e.ScoreMultiplier),
		SpeedMultiplier:      cloneValue(e.SpeedMultiplier),
		EnemyCountMultiplier: cloneValue(e.EnemyCountMultiplier),
		ComboMultiplier:      cloneValue(e.ComboMultiplier),
		PowerupSpawnRate:     cloneValue(e.PowerupSpawnRate),
		Invincible:           cloneValue(e.Invincible),
		VisionRadius:         cloneValue(e.VisionRadius),
	}
}

func cloneValue[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ModifierBundle 模式 + 随机事件合成后的修改器
// 游戏循环每 tick 读取一次，作用于刷怪参数和计分
type ModifierBundle struct {
	ScoreMultiplier      float64
	SpeedMultiplier      float64
	EnemyCountMultiplier float64
	ComboMultiplier      float64
	PowerupSpawnRate     float64
	DifficultyMultiplier float64 // 生存模式递增难度，其他模式为 1.0
	Invincible           bool
	VisionRadius         float64 // 0 表示不覆盖视野
}

// NeutralModifiers 返回不产生任何影响的修改器
func NeutralModifiers() ModifierBundle {
	return ModifierBundle{
		ScoreMultiplier:      1.0,
		SpeedMultiplier:      1.0,
		EnemyCountMultiplier: 1.0,
		ComboMultiplier:      1.0,
		PowerupSpawnRate:     1.0,
		DifficultyMultiplier: 1.0,
	}
}

// Apply 将事件效果折叠进修改器
func (m *ModifierBundle) Apply(effect EventEffect) {
	if effect.ScoreMultiplier != nil {
		m.ScoreMultiplier *= *effect.ScoreMultiplier
	}
	if effect.SpeedMultiplier != nil {
		m.SpeedMultiplier *= *effect.SpeedMultiplier
	}
	if effect.EnemyCountMultiplier != nil {
		m.EnemyCountMultiplier *= *effect.EnemyCountMultiplier
	}
	if effect.ComboMultiplier != nil {
		m.ComboMultiplier *= *effect.ComboMultiplier
	}
	if effect.PowerupSpawnRate != nil {
		m.PowerupSpawnRate *= *effect.PowerupSpawnRate
	}
	if effect.Invincible != nil {
		m.Invincible = *effect.Invincible
	}
	if effect.VisionRadius != nil {
		m.VisionRadius = *effect.VisionRadius
	}
}
