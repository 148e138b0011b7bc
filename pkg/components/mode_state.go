package components

// GameMode 游戏模式
type GameMode string

const (
	ModeClassic    GameMode = "classic"
	ModeTimeAttack GameMode = "timeAttack"
	ModeSurvival   GameMode = "survival"
	ModeChaos      GameMode = "chaos"
)

// AllGameModes 按菜单顺序返回所有模式
func AllGameModes() []GameMode {
	return []GameMode{ModeClassic, ModeTimeAttack, ModeSurvival, ModeChaos}
}

// EndReason 游戏结束原因
type EndReason string

const (
	ReasonNone   EndReason = ""
	ReasonTimeUp EndReason = "timeUp"
	ReasonDeath  EndReason = "death"
	ReasonQuit   EndReason = "quit"
)

// ActiveEvent 正在生效的随机事件
type ActiveEvent struct {
	ID          RandomEventID
	Name        string
	RemainingMs float64
	Effect      EventEffect
}

// ModeState 当前模式的运行状态
// StartMode 时完全重置，每 tick 更新
type ModeState struct {
	Mode                 GameMode
	ElapsedMs            float64
	RemainingMs          float64 // 仅限时模式有效
	DifficultyMultiplier float64 // 生存模式递增，>= 1.0
	DifficultyTimerMs    float64 // 距离下次难度提升的累积时间
	ActiveEvents         []ActiveEvent
	EventsTriggered      int
	DeathCount           int
	RespawnPending       bool
	RespawnCountdownMs   float64
	Ended                bool
}

// HasEvent 判断事件是否正在生效
func (s *ModeState) HasEvent(id RandomEventID) bool {
	for _, ev := range s.ActiveEvents {
		if ev.ID == id {
			return true
		}
	}
	return false
}

// ModeRecord 单个模式的历史记录（持久化）
type ModeRecord struct {
	GamesPlayed       int     `yaml:"gamesPlayed"`
	BestScore         int     `yaml:"bestScore"`
	BestTimeMs        float64 `yaml:"bestTimeMs"` // 最快通关用时，0 表示从未通关
	LongestSurvivalMs float64 `yaml:"longestSurvivalMs"`
	TotalDeaths       int     `yaml:"totalDeaths"`
	LastScore         int     `yaml:"lastScore"`
}
