package systems

import (
	"fmt"
	"math"
	"sort"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/gonewx/rallyx/pkg/storage"
	"github.com/sirupsen/logrus"
)

// 玩家画像的存储键
const profileKey = "ai_profile"

// 各玩法风格的建议
var playstyleTips = map[components.Playstyle]string{
	components.PlaystyleAggressive:  "You play aggressively: grab a shield before weaving through enemy cars.",
	components.PlaystyleDefensive:   "You play it safe: try chaining flags faster to build bigger combos.",
	components.PlaystyleExplorer:    "You like to explore: follow the radar to the nearest flag to save fuel.",
	components.PlaystyleSpeedrunner: "You are fast: Time Attack rewards every second you have left.",
}

// 各死亡原因的建议
var deathCauseTips = map[components.DeathCause]string{
	components.DeathEnemy:  "Enemy cars catch you most often: use smoke screens when they close in.",
	components.DeathRock:   "Rocks end most of your runs: watch the road ahead instead of the radar.",
	components.DeathFuel:   "You run out of fuel a lot: collect flags in a tighter route.",
	components.DeathTimeUp: "The clock beats you most often: prioritise flags over powerups.",
}

// 各技能等级的建议
var skillTips = map[components.SkillLevel]string{
	components.SkillBeginner:     "Keep practising in Classic mode to unlock Time Attack.",
	components.SkillIntermediate: "Try Time Attack to sharpen your routing.",
	components.SkillAdvanced:     "Chaos mode will test how well you adapt.",
	components.SkillExpert:       "Survival mode is where experts prove themselves.",
	components.SkillMaster:       "Chase a 50 chain for the LEGENDARY bonus.",
}

// AIManager 自适应难度管理器
//
// 每帧根据统计分析玩家风格、紧张度和心流状态，
// 并按固定间隔调整难度旋钮。玩家画像跨局持久化。
type AIManager struct {
	cfg     *config.AITuningConfig
	store   storage.Store
	log     *logrus.Entry
	profile components.PlayerProfile
	state   components.DifficultyState
}

// NewAIManager 创建 AI 管理器
// cfg 为 nil 时使用内置调参；store 可为 nil（画像只保存在内存中）
func NewAIManager(cfg *config.AITuningConfig, store storage.Store) *AIManager {
	if cfg == nil {
		cfg = config.DefaultAITuningConfig()
	}
	m := &AIManager{
		cfg:   cfg,
		store: store,
		log:   logrus.WithField("component", "AIManager"),
	}
	m.ResetSession()
	if err := m.LoadProfile(); err != nil {
		m.log.WithError(err).Warn("failed to load player profile, using defaults")
	}
	return m
}

// ResetSession 重置会话难度状态（画像保留）
func (m *AIManager) ResetSession() {
	m.state = components.DifficultyState{
		CurrentDifficultyMultiplier: 1.0,
		Settings: components.DifficultySettings{
			EnemySpeedMultiplier:       1.0,
			EnemyCountMultiplier:       1.0,
			PowerupFrequencyMultiplier: 1.0,
		},
	}
	if m.profile.SkillLevel != "" {
		m.state.CurrentDifficultyMultiplier = m.cfg.BaseDifficulty(m.profile.SkillLevel)
	}
	m.clampAll()
}

// LoadProfile 从存储读取玩家画像
// 读取失败时画像回退为默认值并返回错误
func (m *AIManager) LoadProfile() error {
	profile := components.DefaultPlayerProfile()
	_, err := storage.LoadYAML(m.store, profileKey, &profile)
	if err != nil {
		profile = components.DefaultPlayerProfile()
	}
	if profile.DeathsByCause == nil {
		profile.DeathsByCause = map[components.DeathCause]int{}
	}
	m.profile = profile
	m.recomputeSkillTier()
	return err
}

// SaveProfile 持久化玩家画像
func (m *AIManager) SaveProfile() error {
	if err := storage.SaveYAML(m.store, profileKey, m.profile); err != nil {
		return fmt.Errorf("failed to save player profile: %w", err)
	}
	return nil
}

// persist 保存画像，失败只记录日志
func (m *AIManager) persist() {
	if err := m.SaveProfile(); err != nil {
		m.log.WithError(err).Warn("player profile not persisted")
	}
}

// Update 每帧更新
//
// 依次执行风格分析、紧张度、心流计算；
// 累积时间达到调整间隔时执行一次难度调整。返回难度旋钮副本。
func (m *AIManager) Update(stats components.GameStats, deltaMs float64) components.DifficultySettings {
	m.analyzePlaystyle(stats)
	m.updateTension(stats)
	m.calculateFlowState(stats)

	if deltaMs > 0 {
		m.state.AdjustTimerMs += deltaMs
	}
	if m.state.AdjustTimerMs >= m.cfg.AdjustIntervalMs {
		m.state.AdjustTimerMs = 0
		m.adjustDifficulty()
	}
	return m.state.Settings
}

// analyzePlaystyle 根据速率指标选出得分最高的玩法风格
func (m *AIManager) analyzePlaystyle(stats components.GameStats) {
	if stats.SurvivalTimeMs <= 0 {
		return
	}
	seconds := stats.SurvivalTimeMs / 1000
	minutes := seconds / 60

	flagsPerMin := float64(stats.FlagsCollected) / minutes
	powerupsPerMin := float64(stats.PowerupsCollected) / minutes
	riskyPerSec := float64(stats.EnemiesAvoided) / seconds
	scorePerSec := float64(stats.Score) / seconds

	defensiveBonus := 0.0
	if riskyPerSec < 0.2 {
		defensiveBonus = 30
	}

	// 按声明顺序比较，相同分数保留先出现的风格
	scores := []struct {
		style components.Playstyle
		score float64
	}{
		{components.PlaystyleAggressive, riskyPerSec*40 + flagsPerMin*2},
		{components.PlaystyleDefensive, powerupsPerMin*8 + defensiveBonus},
		{components.PlaystyleExplorer, powerupsPerMin*12 + flagsPerMin*3},
		{components.PlaystyleSpeedrunner, flagsPerMin*8 + scorePerSec*0.05},
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.score > best.score {
			best = s
		}
	}

	if best.style != m.profile.Playstyle {
		m.log.WithFields(logrus.Fields{
			"from": m.profile.Playstyle,
			"to":   best.style,
		}).Debug("playstyle changed")
	}
	m.profile.Playstyle = best.style
	m.profile.RiskTaking = math.Min(100, riskyPerSec*20)
	m.profile.Efficiency = math.Min(100, scorePerSec/10)
}

// updateTension 累加紧张度
func (m *AIManager) updateTension(stats components.GameStats) {
	tension := 0.0
	switch {
	case stats.Health <= 25:
		tension += 40
	case stats.Health <= 50:
		tension += 25
	case stats.Health <= 75:
		tension += 10
	}
	tension += math.Min(30, float64(stats.EnemiesNearby)*10)
	tension += math.Min(20, float64(stats.Combo)*2)
	if stats.HasShield {
		tension -= 20
	}
	m.state.TensionLevel = clamp(tension, 0, 100)
}

// calculateFlowState 心流 = 100 - |紧张度 - 效率|，连击加成，连续死亡扣分
func (m *AIManager) calculateFlowState(stats components.GameStats) {
	flow := 100 - math.Abs(m.state.TensionLevel-m.profile.Efficiency)
	if stats.Combo > 5 {
		flow += 10
	}
	if stats.Combo > 10 {
		flow += 10
	}
	flow -= 10 * float64(m.state.ConsecutiveDeaths)
	m.state.FlowState = clamp(flow, 0, 100)
}

// adjustDifficulty 执行一次难度调整
// 心流分支和两条连续计数规则可以在同一次调用中叠加
func (m *AIManager) adjustDifficulty() {
	st := &m.state
	f := m.cfg.Factors
	reason := "optimal"

	switch {
	case st.FlowState < m.cfg.FlowLowThreshold:
		if m.profile.Efficiency < m.cfg.StrugglingEfficiency {
			reason = "struggling"
			st.CurrentDifficultyMultiplier *= f.StrugglingDifficulty
			st.Settings.EnemySpeedMultiplier *= f.StrugglingEnemySpeed
			st.Settings.PowerupFrequencyMultiplier *= f.StrugglingPowerups
		} else {
			reason = "bored"
			st.CurrentDifficultyMultiplier *= f.BoredDifficulty
			st.Settings.EnemyCountMultiplier *= f.BoredEnemyCount
		}
		m.clampAll()
	case st.FlowState > m.cfg.FlowHighThreshold:
		// 心流区间内不做调整
	}

	if st.ConsecutiveDeaths >= m.cfg.MercyDeathThreshold {
		reason += "+mercy"
		st.CurrentDifficultyMultiplier *= f.MercyDifficulty
		st.Settings.PowerupFrequencyMultiplier *= f.MercyPowerups
		m.clampAll()
	}

	if st.ConsecutivePerfectLevels >= m.cfg.PerfectStreakThreshold {
		reason += "+streak"
		st.CurrentDifficultyMultiplier *= f.StreakDifficulty
		st.Settings.EnemySpeedMultiplier *= f.StreakEnemySpeed
		m.clampAll()
	}

	st.Adjustments++
	m.log.WithFields(logrus.Fields{
		"reason":     reason,
		"flow":       st.FlowState,
		"difficulty": st.CurrentDifficultyMultiplier,
	}).Debug("difficulty adjusted")
}

// clampAll 钳制所有倍率，并刷新由难度派生的旋钮
func (m *AIManager) clampAll() {
	st := &m.state
	st.CurrentDifficultyMultiplier = m.cfg.DifficultyRange.Clamp(st.CurrentDifficultyMultiplier)
	st.Settings.EnemySpeedMultiplier = m.cfg.EnemySpeedRange.Clamp(st.Settings.EnemySpeedMultiplier)
	st.Settings.EnemyCountMultiplier = m.cfg.EnemyCountRange.Clamp(st.Settings.EnemyCountMultiplier)
	st.Settings.PowerupFrequencyMultiplier = m.cfg.PowerupFrequencyRange.Clamp(st.Settings.PowerupFrequencyMultiplier)
	st.Settings.SpawnRateMultiplier = m.cfg.SpawnRateRange.Clamp(st.CurrentDifficultyMultiplier)
	st.Settings.ReactionTimeMs = m.cfg.ReactionTimeRange.Clamp(m.cfg.BaseReactionTimeMs / st.CurrentDifficultyMultiplier)
}

// RecordDeath 记录一次死亡
func (m *AIManager) RecordDeath(cause components.DeathCause, stats components.GameStats) {
	m.profile.RecentDeaths = appendCapped(m.profile.RecentDeaths, components.DeathRecord{
		Cause:          cause,
		Score:          stats.Score,
		SurvivalTimeMs: stats.SurvivalTimeMs,
	}, m.cfg.HistoryLimit)
	m.profile.DeathsByCause[cause]++

	m.state.ConsecutiveDeaths++
	m.state.ConsecutivePerfectLevels = 0

	m.log.WithFields(logrus.Fields{
		"cause":             cause,
		"consecutiveDeaths": m.state.ConsecutiveDeaths,
	}).Info("player death recorded")
	m.persist()
}

// RecordLevelComplete 记录一次通关
// 使用增量平均更新画像，并重新计算技能等级
func (m *AIManager) RecordLevelComplete(stats components.GameStats, wasPerfect bool) {
	p := &m.profile
	p.RecentScores = appendCapped(p.RecentScores, components.ScoreRecord{
		Score:          stats.Score,
		SurvivalTimeMs: stats.SurvivalTimeMs,
		Perfect:        wasPerfect,
	}, m.cfg.HistoryLimit)

	p.GamesPlayed++
	n := float64(p.GamesPlayed)
	p.TotalPlaytimeMs += stats.SurvivalTimeMs
	p.AverageScore += (float64(stats.Score) - p.AverageScore) / n
	p.AverageSurvivalMs += (stats.SurvivalTimeMs - p.AverageSurvivalMs) / n

	if wasPerfect {
		m.state.ConsecutivePerfectLevels++
	} else {
		m.state.ConsecutivePerfectLevels = 0
	}
	m.state.ConsecutiveDeaths = 0

	m.recomputeSkillTier()
	m.log.WithFields(logrus.Fields{
		"score":   stats.Score,
		"perfect": wasPerfect,
		"skill":   p.SkillLevel,
	}).Info("level complete recorded")
	m.persist()
}

// recomputeSkillTier 按局数和平均分重新评定技能等级，并用该档基础难度重置当前难度
func (m *AIManager) recomputeSkillTier() {
	level := components.SkillBeginner
	if m.profile.GamesPlayed >= m.cfg.MinGamesForRanking {
		for _, tier := range m.cfg.SkillTiers {
			level = tier.Level
			if tier.MaxAverageScore > 0 && m.profile.AverageScore < tier.MaxAverageScore {
				break
			}
		}
	}
	if level != m.profile.SkillLevel {
		m.log.WithFields(logrus.Fields{
			"from": m.profile.SkillLevel,
			"to":   level,
		}).Info("skill level changed")
	}
	m.profile.SkillLevel = level
	m.state.CurrentDifficultyMultiplier = m.cfg.BaseDifficulty(level)
	m.clampAll()
}

// Recommendations 返回最多 3 条建议：玩法风格、最常见死因、技能等级
func (m *AIManager) Recommendations() []string {
	tips := make([]string, 0, 3)
	if tip, ok := playstyleTips[m.profile.Playstyle]; ok {
		tips = append(tips, tip)
	}
	if cause, ok := m.mostFrequentDeathCause(); ok {
		if tip, ok := deathCauseTips[cause]; ok {
			tips = append(tips, tip)
		}
	}
	if tip, ok := skillTips[m.profile.SkillLevel]; ok {
		tips = append(tips, tip)
	}
	return tips
}

// mostFrequentDeathCause 次数相同时按名称排序取第一个
func (m *AIManager) mostFrequentDeathCause() (components.DeathCause, bool) {
	causes := make([]components.DeathCause, 0, len(m.profile.DeathsByCause))
	for cause, n := range m.profile.DeathsByCause {
		if n > 0 {
			causes = append(causes, cause)
		}
	}
	if len(causes) == 0 {
		return "", false
	}
	sort.Slice(causes, func(i, j int) bool {
		ni, nj := m.profile.DeathsByCause[causes[i]], m.profile.DeathsByCause[causes[j]]
		if ni != nj {
			return ni > nj
		}
		return causes[i] < causes[j]
	})
	return causes[0], true
}

// Profile 返回画像副本
func (m *AIManager) Profile() components.PlayerProfile {
	p := m.profile
	p.DeathsByCause = make(map[components.DeathCause]int, len(m.profile.DeathsByCause))
	for k, v := range m.profile.DeathsByCause {
		p.DeathsByCause[k] = v
	}
	p.RecentScores = append([]components.ScoreRecord(nil), m.profile.RecentScores...)
	p.RecentDeaths = append([]components.DeathRecord(nil), m.profile.RecentDeaths...)
	return p
}

// State 返回难度状态副本
func (m *AIManager) State() components.DifficultyState {
	return m.state
}

// Settings 返回当前难度旋钮
func (m *AIManager) Settings() components.DifficultySettings {
	return m.state.Settings
}

// appendCapped 追加并按 FIFO 保留最近 limit 条
func appendCapped[T any](list []T, item T, limit int) []T {
	list = append(list, item)
	if limit > 0 && len(list) > limit {
		list = append(list[:0:0], list[len(list)-limit:]...)
	}
	return list
}
