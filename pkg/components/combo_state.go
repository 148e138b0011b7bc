package components

// ActionType 可计分动作类型
// 闭合枚举：只有 AllActionTypes 中列出的值是合法的
type ActionType string

const (
	ActionFlagCollected    ActionType = "flagCollected"    // 收集旗帜
	ActionEnemyAvoided     ActionType = "enemyAvoided"     // 躲避敌人
	ActionPowerupCollected ActionType = "powerupCollected" // 拾取道具
	ActionNearMiss         ActionType = "nearMiss"         // 擦身而过
	ActionPerfectTurn      ActionType = "perfectTurn"      // 完美转弯
	ActionChainReaction    ActionType = "chainReaction"    // 连锁反应（派生奖励，不可直接登记）
)

// AllActionTypes 返回所有动作类型（含派生的 chainReaction）
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionFlagCollected,
		ActionEnemyAvoided,
		ActionPowerupCollected,
		ActionNearMiss,
		ActionPerfectTurn,
		ActionChainReaction,
	}
}

// ActionLogEntry 最近动作日志条目，用于检测连锁反应
type ActionLogEntry struct {
	Action      ActionType
	TimestampMs float64
}

// Milestone 连击里程碑
type Milestone struct {
	Threshold   int    `yaml:"threshold"`   // 恰好达到该连击数时触发
	Name        string `yaml:"name"`        // 显示名称
	Bonus       int    `yaml:"bonus"`       // 奖励分数（由调用方计入总分）
	Color       string `yaml:"color"`       // UI 颜色
	ForcesFever bool   `yaml:"forcesFever"` // 是否强制进入狂热模式
}

// ComboState 连击链状态
// 每局创建一次，由 ComboSystem 独占修改
//
// 不变量：
//   - ChainCount >= 0，WindowMs ∈ [MinWindowMs, InitialWindowMs]
//   - FeverActive 为 true 时 ChainCount >= FeverThreshold
type ComboState struct {
	ChainCount    int     // 当前连续动作数
	MaxChainCount int     // 本局最高连击
	Multiplier    float64 // 1 + ChainCount * 0.1
	WindowMs      float64 // 断链前允许的间隔
	LastActionMs  float64 // 最近一次动作时间戳
	HasLastAction bool    // LastActionMs 是否有效
	FeverActive   bool    // 狂热模式
	RecentActions []ActionLogEntry
}
