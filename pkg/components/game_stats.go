package components

// GameStats 每个 tick 由游戏循环汇总的统计数据
// 作为 AIManager 和 GameModeManager 的输入，按值传递
//
// 缺失字段保持零值即可（0 / false），各系统不会因此报错
type GameStats struct {
	Score             int     // 当前累计得分（由外部 ScoreSystem 维护）
	FlagsCollected    int     // 已收集旗帜数
	FlagsRemaining    int     // 剩余旗帜数
	EnemiesAvoided    int     // 成功躲避的敌人数（视为冒险动作）
	PowerupsCollected int     // 已收集道具数
	SurvivalTimeMs    float64 // 本局存活时间（毫秒）
	Health            float64 // 玩家生命/燃料百分比 0 ~ 100
	EnemiesNearby     int     // 附近敌人数量
	Combo             int     // 当前连击数
	HasShield         bool    // 是否有护盾
	LevelCompleted    bool    // 本局是否已清空所有旗帜
}

// ModeContext 传给 GameModeManager.Update 的上下文
type ModeContext struct {
	Stats  GameStats // 当前统计
	Paused bool      // 暂停时所有倒计时冻结
}
