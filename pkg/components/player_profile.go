package components

// SkillLevel 长期技能等级
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
	SkillMaster       SkillLevel = "master"
)

// Playstyle 玩法风格
type Playstyle string

const (
	PlaystyleAggressive  Playstyle = "aggressive"
	PlaystyleDefensive   Playstyle = "defensive"
	PlaystyleExplorer    Playstyle = "explorer"
	PlaystyleSpeedrunner Playstyle = "speedrunner"
)

// DeathCause 死亡原因
type DeathCause string

const (
	DeathEnemy  DeathCause = "enemy"  // 被敌车撞毁
	DeathRock   DeathCause = "rock"   // 撞上岩石
	DeathFuel   DeathCause = "fuel"   // 燃料耗尽
	DeathTimeUp DeathCause = "timeUp" // 限时结束
)

// ScoreRecord 最近通关记录
type ScoreRecord struct {
	Score          int     `yaml:"score"`
	SurvivalTimeMs float64 `yaml:"survivalTimeMs"`
	Perfect        bool    `yaml:"perfect"`
}

// DeathRecord 最近死亡记录
type DeathRecord struct {
	Cause          DeathCause `yaml:"cause"`
	Score          int        `yaml:"score"`
	SurvivalTimeMs float64    `yaml:"survivalTimeMs"`
}

// PlayerProfile 玩家长期画像，跨局持久化
type PlayerProfile struct {
	SkillLevel        SkillLevel         `yaml:"skillLevel"`
	Playstyle         Playstyle          `yaml:"playstyle"`
	GamesPlayed       int                `yaml:"gamesPlayed"`
	TotalPlaytimeMs   float64            `yaml:"totalPlaytimeMs"`
	AverageScore      float64            `yaml:"averageScore"`
	AverageSurvivalMs float64            `yaml:"averageSurvivalMs"`
	DeathsByCause     map[DeathCause]int `yaml:"deathsByCause"`
	RiskTaking        float64            `yaml:"riskTaking"` // 0 ~ 100
	Efficiency        float64            `yaml:"efficiency"` // 0 ~ 100
	RecentScores      []ScoreRecord      `yaml:"recentScores"`
	RecentDeaths      []DeathRecord      `yaml:"recentDeaths"`
}

// DefaultPlayerProfile 返回新玩家的画像
func DefaultPlayerProfile() PlayerProfile {
	return PlayerProfile{
		SkillLevel:    SkillBeginner,
		Playstyle:     PlaystyleExplorer,
		DeathsByCause: map[DeathCause]int{},
		RecentScores:  []ScoreRecord{},
		RecentDeaths:  []DeathRecord{},
	}
}
