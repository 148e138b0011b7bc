package systems

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/gonewx/rallyx/pkg/storage"
	"github.com/sirupsen/logrus"
)

// 模式记录的存储键
const modeStatsKey = "mode_stats"

// timeEpsilonMs 倒计时视为归零的阈值
const timeEpsilonMs = 1e-6

var (
	// ErrUnknownMode 模式不存在
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrModeLocked 玩家等级不足
	ErrModeLocked = errors.New("game mode locked")
)

// ModeUpdate GameModeManager.Update 的结果
type ModeUpdate struct {
	GameEnded     bool
	Reason        components.EndReason
	RespawnPlayer bool
	InjectedEvent *components.RandomEventID
	ExpiredEvents []components.RandomEventID
	Modifiers     components.ModifierBundle
	State         components.ModeState
}

// DeathOutcome 死亡处理结果
type DeathOutcome struct {
	AllowContinue    bool
	GameOver         bool
	LoseLife         bool    // 交给外部生命计数扣命
	RespawnScheduled bool    // 限时模式：延迟后自动复活
	RespawnDelayMs   float64 // 复活倒计时
	PenaltyTimeMs    float64 // 扣除的剩余时间
}

// ModeAvailability 模式选择菜单条目
type ModeAvailability struct {
	Settings config.GameModeSettings
	Unlocked bool
	Record   components.ModeRecord
}

// EventStatus UI 显示的事件状态
type EventStatus struct {
	ID               components.RandomEventID
	Name             string
	RemainingSeconds float64
}

// ModeUIStatus HUD 需要的模式信息
type ModeUIStatus struct {
	Mode                 components.GameMode
	DisplayName          string
	HasTimer             bool
	TimerText            string
	RemainingSeconds     int
	ElapsedSeconds       int
	DifficultyMultiplier float64
	ActiveEvents         []EventStatus
	DeathCount           int
	RespawnPending       bool
}

// GameModeManager 游戏模式管理器
// 负责各模式规则、限时倒计时、生存模式难度递增和混沌模式随机事件
type GameModeManager struct {
	cfg      *config.GameModesConfig
	store    storage.Store
	rng      RandomSource
	log      *logrus.Entry
	settings *config.GameModeSettings // 当前模式，nil 表示未开始
	state    components.ModeState
	records  map[components.GameMode]components.ModeRecord
}

// NewGameModeManager 创建模式管理器
//
// 参数：
//   - cfg: 模式配置，nil 时使用内置配置
//   - store: 模式记录存储，可为 nil（降级模式，仅内存）
//   - rng: 随机数源，nil 时按当前时间播种
func NewGameModeManager(cfg *config.GameModesConfig, store storage.Store, rng RandomSource) *GameModeManager {
	if cfg == nil {
		cfg = config.DefaultGameModesConfig()
	}
	if rng == nil {
		rng = NewRandomSource(0)
	}
	m := &GameModeManager{
		cfg:     cfg,
		store:   store,
		rng:     rng,
		log:     logrus.WithField("component", "GameModeManager"),
		records: make(map[components.GameMode]components.ModeRecord),
	}
	if err := m.loadRecords(); err != nil {
		m.log.WithError(err).Warn("failed to load mode stats, using defaults")
	}
	return m
}

// loadRecords 读取模式记录，失败时保持空记录
func (m *GameModeManager) loadRecords() error {
	records := make(map[components.GameMode]components.ModeRecord)
	if _, err := storage.LoadYAML(m.store, modeStatsKey, &records); err != nil {
		return err
	}
	if records != nil {
		m.records = records
	}
	return nil
}

// saveRecords 持久化模式记录，失败只记录日志
func (m *GameModeManager) saveRecords() {
	if err := storage.SaveYAML(m.store, modeStatsKey, m.records); err != nil {
		m.log.WithError(err).Warn("failed to save mode stats")
	}
}

// CanStart 检查模式是否存在且已解锁
func (m *GameModeManager) CanStart(mode components.GameMode, playerLevel int) error {
	settings, ok := m.cfg.Mode(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if playerLevel < settings.UnlockLevel {
		return fmt.Errorf("%w: %s requires level %d, player is level %d", ErrModeLocked, mode, settings.UnlockLevel, playerLevel)
	}
	return nil
}

// StartMode 开始一个模式
// 模式未知或等级不足时返回 false，且不修改任何状态
// （调用方通常会回退到 classic）
func (m *GameModeManager) StartMode(mode components.GameMode, playerLevel int) bool {
	if err := m.CanStart(mode, playerLevel); err != nil {
		m.log.WithError(err).Warn("cannot start mode")
		return false
	}
	settings, _ := m.cfg.Mode(mode)
	m.settings = &settings

	m.state = components.ModeState{
		Mode:                 mode,
		DifficultyMultiplier: 1.0,
		ActiveEvents:         []components.ActiveEvent{},
	}
	if settings.HasTimeLimit {
		m.state.RemainingMs = settings.TimeLimitMs
	}

	record := m.records[mode]
	record.GamesPlayed++
	m.records[mode] = record
	m.saveRecords()

	m.log.WithFields(logrus.Fields{
		"mode":        mode,
		"playerLevel": playerLevel,
	}).Info("game mode started")
	return true
}

// Update 推进模式计时
//
// 顺序：限时倒计时（归零时立即返回）、复活倒计时、生存难度递增、
// 混沌事件过期与注入。无论如何都会返回合成后的修改器。
func (m *GameModeManager) Update(deltaMs float64, ctx components.ModeContext) ModeUpdate {
	if m.settings == nil || m.state.Ended || ctx.Paused || deltaMs <= 0 {
		return m.snapshot(ModeUpdate{})
	}

	st := &m.state
	settings := m.settings
	result := ModeUpdate{}

	st.ElapsedMs += deltaMs

	if settings.HasTimeLimit {
		st.RemainingMs -= deltaMs
		// 按帧累加的浮点误差不能让倒计时多走一帧
		if st.RemainingMs <= timeEpsilonMs {
			st.RemainingMs = 0
			st.Ended = true
			result.GameEnded = true
			result.Reason = components.ReasonTimeUp
			m.log.WithField("mode", st.Mode).Info("time up")
			return m.snapshot(result)
		}
	}

	if st.RespawnPending {
		st.RespawnCountdownMs -= deltaMs
		if st.RespawnCountdownMs <= 0 {
			st.RespawnPending = false
			st.RespawnCountdownMs = 0
			result.RespawnPlayer = true
		}
	}

	if settings.DifficultyIncreaseIntervalMs > 0 {
		st.DifficultyTimerMs += deltaMs
		if st.DifficultyTimerMs >= settings.DifficultyIncreaseIntervalMs {
			st.DifficultyTimerMs = 0
			st.DifficultyMultiplier *= settings.DifficultyIncreaseFactor
			if settings.MaxDifficultyMultiplier > 0 {
				st.DifficultyMultiplier = clamp(st.DifficultyMultiplier, 1.0, settings.MaxDifficultyMultiplier)
			}
			m.log.WithField("difficulty", st.DifficultyMultiplier).Debug("survival difficulty increased")
		}
	}

	if settings.RandomEvents {
		result.ExpiredEvents = m.expireEvents(deltaMs)
		if id, ok := m.rollRandomEvent(deltaMs, settings.RandomEventIntervalMs); ok {
			result.InjectedEvent = &id
		}
	}

	return m.snapshot(result)
}

// snapshot 填充修改器和状态副本
func (m *GameModeManager) snapshot(result ModeUpdate) ModeUpdate {
	result.Modifiers = m.ActiveModifiers()
	result.State = m.State()
	return result
}

// expireEvents 递减事件剩余时间，移除到期事件
func (m *GameModeManager) expireEvents(deltaMs float64) []components.RandomEventID {
	var expired []components.RandomEventID
	kept := m.state.ActiveEvents[:0]
	for _, ev := range m.state.ActiveEvents {
		ev.RemainingMs -= deltaMs
		if ev.RemainingMs <= 0 {
			expired = append(expired, ev.ID)
			m.log.WithField("event", ev.ID).Debug("random event expired")
			continue
		}
		kept = append(kept, ev)
	}
	m.state.ActiveEvents = kept
	return expired
}

// rollRandomEvent 以 deltaMs / interval 的概率注入一个未激活的事件
func (m *GameModeManager) rollRandomEvent(deltaMs, intervalMs float64) (components.RandomEventID, bool) {
	if intervalMs <= 0 {
		return "", false
	}
	if m.rng.Float64() >= deltaMs/intervalMs {
		return "", false
	}

	candidates := make([]config.RandomEventConfig, 0, len(m.cfg.RandomEvents))
	for _, ev := range m.cfg.RandomEvents {
		if !m.state.HasEvent(ev.ID) {
			candidates = append(candidates, ev)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	chosen := candidates[m.rng.Intn(len(candidates))]
	m.state.ActiveEvents = append(m.state.ActiveEvents, components.ActiveEvent{
		ID:          chosen.ID,
		Name:        chosen.Name,
		RemainingMs: chosen.DurationMs,
		Effect:      chosen.Effect.Clone(),
	})
	m.state.EventsTriggered++
	m.log.WithFields(logrus.Fields{
		"event":    chosen.ID,
		"duration": chosen.DurationMs,
	}).Info("random event started")
	return chosen.ID, true
}

// ActiveModifiers 合成当前修改器
// 从模式静态设置开始，依次叠加每个生效事件：数值相乘，布尔值和视野半径覆盖
func (m *GameModeManager) ActiveModifiers() components.ModifierBundle {
	mods := components.NeutralModifiers()
	if m.settings == nil {
		return mods
	}
	mods.ScoreMultiplier = m.settings.ScoreMultiplier
	mods.PowerupSpawnRate = m.settings.PowerupSpawnRate

	for _, ev := range m.state.ActiveEvents {
		mods.Apply(ev.Effect)
	}

	if m.settings.DifficultyIncreaseIntervalMs > 0 {
		mods.DifficultyMultiplier = m.state.DifficultyMultiplier
	}
	return mods
}

// HandleDeath 按模式策略处理玩家死亡
func (m *GameModeManager) HandleDeath() DeathOutcome {
	if m.settings == nil || m.state.Ended {
		return DeathOutcome{}
	}
	st := &m.state
	st.DeathCount++

	switch m.settings.DeathPolicy {
	case config.DeathPolicyRespawn:
		penalty := math.Min(m.settings.DeathPenaltyMs, st.RemainingMs)
		if m.settings.HasTimeLimit {
			st.RemainingMs -= penalty
		} else {
			penalty = 0
		}
		st.RespawnPending = true
		st.RespawnCountdownMs = m.settings.RespawnDelayMs
		return DeathOutcome{
			AllowContinue:    true,
			RespawnScheduled: true,
			RespawnDelayMs:   m.settings.RespawnDelayMs,
			PenaltyTimeMs:    penalty,
		}

	case config.DeathPolicySingleLife:
		st.Ended = true
		m.log.WithField("mode", st.Mode).Info("single life lost, game over")
		return DeathOutcome{GameOver: true}

	default:
		return DeathOutcome{AllowContinue: true, LoseLife: true}
	}
}

// EndGame 结束当前模式并更新历史记录
func (m *GameModeManager) EndGame(finalScore int, finalStats components.GameStats) {
	if m.settings == nil {
		return
	}
	mode := m.state.Mode
	record := m.records[mode]
	record.LastScore = finalScore
	if finalScore > record.BestScore {
		record.BestScore = finalScore
	}
	if finalStats.SurvivalTimeMs > record.LongestSurvivalMs {
		record.LongestSurvivalMs = finalStats.SurvivalTimeMs
	}
	if finalStats.LevelCompleted && finalStats.SurvivalTimeMs > 0 &&
		(record.BestTimeMs == 0 || finalStats.SurvivalTimeMs < record.BestTimeMs) {
		record.BestTimeMs = finalStats.SurvivalTimeMs
	}
	record.TotalDeaths += m.state.DeathCount
	m.records[mode] = record
	m.state.Ended = true

	m.saveRecords()
	m.log.WithFields(logrus.Fields{
		"mode":      mode,
		"score":     finalScore,
		"bestScore": record.BestScore,
	}).Info("game mode ended")
}

// CurrentMode 返回当前模式
func (m *GameModeManager) CurrentMode() (components.GameMode, bool) {
	if m.settings == nil {
		return "", false
	}
	return m.settings.Mode, true
}

// CurrentSettings 返回当前模式设置
func (m *GameModeManager) CurrentSettings() (config.GameModeSettings, bool) {
	if m.settings == nil {
		return config.GameModeSettings{}, false
	}
	return *m.settings, true
}

// State 返回模式状态副本
func (m *GameModeManager) State() components.ModeState {
	st := m.state
	st.ActiveEvents = make([]components.ActiveEvent, len(m.state.ActiveEvents))
	for i, ev := range m.state.ActiveEvents {
		ev.Effect = ev.Effect.Clone()
		st.ActiveEvents[i] = ev
	}
	return st
}

// ModeStats 返回某个模式的历史记录
func (m *GameModeManager) ModeStats(mode components.GameMode) components.ModeRecord {
	return m.records[mode]
}

// AvailableModes 返回所有模式及其解锁状态
func (m *GameModeManager) AvailableModes(playerLevel int) []ModeAvailability {
	out := make([]ModeAvailability, 0, len(m.cfg.Modes))
	for _, settings := range m.cfg.Modes {
		out = append(out, ModeAvailability{
			Settings: settings,
			Unlocked: playerLevel >= settings.UnlockLevel,
			Record:   m.records[settings.Mode],
		})
	}
	return out
}

// CalculateTimeBonus 按剩余整秒数计算限时奖励，非限时模式为 0
func (m *GameModeManager) CalculateTimeBonus() int {
	if m.settings == nil || !m.settings.HasTimeLimit {
		return 0
	}
	seconds := int(math.Floor(m.state.RemainingMs / 1000))
	return seconds * m.settings.TimeBonusPerSecond
}

// UIStatus 返回 HUD 信息
func (m *GameModeManager) UIStatus() ModeUIStatus {
	if m.settings == nil {
		return ModeUIStatus{DifficultyMultiplier: 1.0}
	}
	st := m.state
	status := ModeUIStatus{
		Mode:                 st.Mode,
		DisplayName:          m.settings.DisplayName,
		HasTimer:             m.settings.HasTimeLimit,
		ElapsedSeconds:       int(st.ElapsedMs / 1000),
		DifficultyMultiplier: m.ActiveModifiers().DifficultyMultiplier,
		ActiveEvents:         make([]EventStatus, 0, len(st.ActiveEvents)),
		DeathCount:           st.DeathCount,
		RespawnPending:       st.RespawnPending,
	}
	if status.HasTimer {
		status.RemainingSeconds = int(math.Ceil(st.RemainingMs / 1000))
		status.TimerText = fmt.Sprintf("%02d:%02d", status.RemainingSeconds/60, status.RemainingSeconds%60)
	}
	for _, ev := range st.ActiveEvents {
		status.ActiveEvents = append(status.ActiveEvents, EventStatus{
			ID:               ev.ID,
			Name:             ev.Name,
			RemainingSeconds: math.Ceil(ev.RemainingMs / 1000),
		})
	}
	return status
}
