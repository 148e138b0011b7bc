package components

// DifficultySettings AI 输出给刷怪层的难度旋钮
type DifficultySettings struct {
	EnemySpeedMultiplier       float64 // [0.6, 2.0]
	EnemyCountMultiplier       float64 // [0.7, 2.0]
	PowerupFrequencyMultiplier float64 // [0.5, 2.0]
	SpawnRateMultiplier        float64 // 随难度倍率变化
	ReactionTimeMs             float64 // 玩家需要的反应时间
}

// DifficultyState 动态难度的会话状态
// 由 AIManager 独占修改，所有倍率在每次修改后立即钳制
type DifficultyState struct {
	CurrentDifficultyMultiplier float64 // [0.5, 3.0]
	TensionLevel                float64 // [0, 100]
	FlowState                   float64 // [0, 100]
	ConsecutiveDeaths           int
	ConsecutivePerfectLevels    int
	AdjustTimerMs               float64 // 距离下次难度调整的累积时间
	Adjustments                 int     // 已执行的难度调整次数
	Settings                    DifficultySettings
}
