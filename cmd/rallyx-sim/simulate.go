package main

import (
	"math/rand"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/game"
)

// simConfig 无界面模拟参数
type simConfig struct {
	Games         int
	Mode          components.GameMode
	PlayerLevel   int
	Skill         float64 // 0 ~ 1，越高动作越多、死亡越少
	FrameMs       float64
	MaxGameMs     float64 // 单局上限，到达后主动结束
	FlagsPerLevel int
}

// gameSummary 一局的结果
type gameSummary struct {
	Mode       components.GameMode
	Score      int
	Reason     components.EndReason
	DurationMs float64
	MaxChain   int
	Deaths     int
	Levels     int
	Events     int
	Difficulty float64
	SkillLevel components.SkillLevel
	Playstyle  components.Playstyle
}

// 机器人动作权重（与 Rally-X 中各事件的出现频率大致相当）
var botActions = []struct {
	action components.ActionType
	weight float64
}{
	{components.ActionFlagCollected, 0.30},
	{components.ActionEnemyAvoided, 0.30},
	{components.ActionPowerupCollected, 0.10},
	{components.ActionNearMiss, 0.10},
	{components.ActionPerfectTurn, 0.20},
}

var botDeaths = []components.DeathCause{
	components.DeathEnemy,
	components.DeathEnemy,
	components.DeathRock,
	components.DeathFuel,
}

func pickAction(rng *rand.Rand) components.ActionType {
	r := rng.Float64()
	for _, a := range botActions {
		if r < a.weight {
			return a.action
		}
		r -= a.weight
	}
	return botActions[len(botActions)-1].action
}

// runSimulation 用机器人玩家连续跑多局
func runSimulation(session *game.Session, cfg simConfig, rng *rand.Rand) ([]gameSummary, error) {
	summaries := make([]gameSummary, 0, cfg.Games)
	for i := 0; i < cfg.Games; i++ {
		summary, err := playGame(session, cfg, rng)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func playGame(session *game.Session, cfg simConfig, rng *rand.Rand) (gameSummary, error) {
	mode, err := session.Start(cfg.Mode, cfg.PlayerLevel)
	if err != nil {
		return gameSummary{}, err
	}

	summary := gameSummary{Mode: mode}
	stats := components.GameStats{Health: 100, FlagsRemaining: cfg.FlagsPerLevel}
	actionChance := cfg.Skill * cfg.FrameMs / 400
	deathChance := (1 - cfg.Skill) * cfg.FrameMs / 20000
	levelDeath := false

	for elapsed := 0.0; elapsed < cfg.MaxGameMs; elapsed += cfg.FrameMs {
		stats.SurvivalTimeMs += cfg.FrameMs
		stats.EnemiesNearby = rng.Intn(4)
		stats.Health = 100 - float64(stats.EnemiesNearby)*20

		if rng.Float64() < actionChance {
			action := pickAction(rng)
			if outcome, err := session.RegisterAction(action); err == nil {
				stats.Combo = outcome.Combo.ChainCount
				stats.Score = outcome.Score
				summary.MaxChain = max(summary.MaxChain, outcome.Combo.ChainCount)
				switch action {
				case components.ActionFlagCollected:
					stats.FlagsCollected++
					stats.FlagsRemaining--
				case components.ActionEnemyAvoided, components.ActionNearMiss:
					stats.EnemiesAvoided++
				case components.ActionPowerupCollected:
					stats.PowerupsCollected++
				}
			}
		}

		if stats.FlagsRemaining <= 0 {
			if _, err := session.LevelComplete(stats, !levelDeath); err == nil {
				summary.Levels++
			}
			stats.FlagsRemaining = cfg.FlagsPerLevel
			levelDeath = false
		}

		if rng.Float64() < deathChance {
			cause := botDeaths[rng.Intn(len(botDeaths))]
			if result, err := session.PlayerDied(cause, stats); err == nil {
				summary.Deaths++
				levelDeath = true
				stats.Combo = 0
				if result.GameOver {
					break
				}
			}
		}

		result := session.Tick(cfg.FrameMs, stats)
		if result.ComboBreak != nil {
			stats.Combo = 0
		}
		if result.GameOver {
			break
		}
	}

	session.End(stats)
	snap := session.Snapshot()
	summary.Score = snap.Score
	summary.Reason = snap.EndReason
	summary.DurationMs = snap.NowMs
	summary.Events = snap.EventsTriggered
	summary.Difficulty = snap.Difficulty.CurrentDifficultyMultiplier
	summary.SkillLevel = snap.SkillLevel
	summary.Playstyle = snap.Playstyle
	return summary, nil
}
