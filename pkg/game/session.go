package game

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/systems"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultLives classic/chaos 模式的初始生命数
const DefaultLives = 3

var (
	// ErrSessionNotStarted 会话尚未开始
	ErrSessionNotStarted = errors.New("session not started")
	// ErrSessionEnded 会话已结束
	ErrSessionEnded = errors.New("session ended")
)

// Observer 会话事件观察者（指标、HUD 等）
// 回调在会话锁之外调用，可以安全地调用 Session.Snapshot
type Observer interface {
	OnTick(snap Snapshot)
	OnCombo(result systems.ComboResult)
	OnRandomEvent(id components.RandomEventID)
	OnDeath(cause components.DeathCause)
}

// EffectiveModifiers 合并模式修改器和 AI 难度后，刷怪层和计分层实际使用的参数
type EffectiveModifiers struct {
	GameSpeed        float64
	EnemySpeed       float64
	EnemyCount       float64
	PowerupRate      float64
	SpawnRate        float64
	ReactionTimeMs   float64
	ScoreMultiplier  float64
	ComboMultiplier  float64
	Invincible       bool
	VisionRadius     float64 // 0 表示不限制
	DifficultyFactor float64
}

// mergeModifiers 敌人速度 = 事件速度 × AI 速度 × 模式难度；
// 敌人数量 = 事件数量 × AI 数量；道具 = 模式频率 × AI 频率
func mergeModifiers(mods components.ModifierBundle, diff components.DifficultySettings) EffectiveModifiers {
	return EffectiveModifiers{
		GameSpeed:        mods.SpeedMultiplier,
		EnemySpeed:       mods.SpeedMultiplier * diff.EnemySpeedMultiplier * mods.DifficultyMultiplier,
		EnemyCount:       mods.EnemyCountMultiplier * diff.EnemyCountMultiplier,
		PowerupRate:      mods.PowerupSpawnRate * diff.PowerupFrequencyMultiplier,
		SpawnRate:        diff.SpawnRateMultiplier,
		ReactionTimeMs:   diff.ReactionTimeMs,
		ScoreMultiplier:  mods.ScoreMultiplier,
		ComboMultiplier:  mods.ComboMultiplier,
		Invincible:       mods.Invincible,
		VisionRadius:     mods.VisionRadius,
		DifficultyFactor: mods.DifficultyMultiplier,
	}
}

// TickResult 一帧的结果
type TickResult struct {
	NowMs         float64
	Mode          systems.ModeUpdate
	Difficulty    components.DifficultySettings
	ComboBreak    *systems.BreakResult
	Effective     EffectiveModifiers
	RespawnPlayer bool
	GameOver      bool
	Reason        components.EndReason
}

// ActionOutcome 一次计分动作的结果
type ActionOutcome struct {
	Combo      systems.ComboResult
	ScoreDelta int
	Score      int
}

// DeathResult 玩家死亡的处理结果
type DeathResult struct {
	Outcome   systems.DeathOutcome
	LivesLeft int
	GameOver  bool
}

// Snapshot 会话只读快照
type Snapshot struct {
	ID              string                     `json:"id"`
	Mode            components.GameMode        `json:"mode"`
	Started         bool                       `json:"started"`
	Ended           bool                       `json:"ended"`
	EndReason       components.EndReason       `json:"endReason,omitempty"`
	NowMs           float64                    `json:"nowMs"`
	Score           int                        `json:"score"`
	Lives           int                        `json:"lives"`
	Combo           systems.ComboStatus        `json:"combo"`
	ComboStats      systems.ComboStats         `json:"comboStats"`
	ModeUI          systems.ModeUIStatus       `json:"modeUI"`
	Difficulty      components.DifficultyState `json:"difficulty"`
	SkillLevel      components.SkillLevel      `json:"skillLevel"`
	Playstyle       components.Playstyle       `json:"playstyle"`
	Effective       EffectiveModifiers         `json:"effective"`
	EventsTriggered int                        `json:"eventsTriggered"`
}

// Session 一局游戏的编排器
//
// 持有连击、模式和 AI 三个组件（由构造函数注入），
// 每帧把统计传给组件并合并它们的输出。
// 总分账本也在这里，组件只提供单次得分。
type Session struct {
	mu sync.RWMutex

	id    string
	combo *systems.ComboSystem
	modes *systems.GameModeManager
	ai    *systems.AIManager
	log   *logrus.Entry

	observers []Observer

	maxLives  int
	lives     int
	score     int
	nowMs     float64
	paused    bool
	started   bool
	ended     bool
	endReason components.EndReason
	effective EffectiveModifiers
}

// NewSession 创建会话
// lives <= 0 时使用 DefaultLives
func NewSession(combo *systems.ComboSystem, modes *systems.GameModeManager, ai *systems.AIManager, lives int) *Session {
	if lives <= 0 {
		lives = DefaultLives
	}
	id := uuid.NewString()
	s := &Session{
		id:       id,
		combo:    combo,
		modes:    modes,
		ai:       ai,
		log:      logrus.WithFields(logrus.Fields{"component": "Session", "session": id}),
		maxLives: lives,
		lives:    lives,
	}
	s.effective = mergeModifiers(modes.ActiveModifiers(), ai.Settings())
	return s
}

// ID 返回会话 ID
func (s *Session) ID() string {
	return s.id
}

// AddObserver 注册观察者
func (s *Session) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Start 开始游戏
// 请求的模式无法开始时（未知或未解锁）回退到 classic
//
// 返回：
//   - GameMode: 实际开始的模式
//   - error: classic 也无法开始时返回错误
func (s *Session) Start(mode components.GameMode, playerLevel int) (components.GameMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actual := mode
	if !s.modes.StartMode(mode, playerLevel) {
		if mode == components.ModeClassic {
			return "", fmt.Errorf("failed to start %s at level %d", mode, playerLevel)
		}
		s.log.WithFields(logrus.Fields{
			"requested": mode,
			"level":     playerLevel,
		}).Warn("mode unavailable, falling back to classic")
		actual = components.ModeClassic
		if !s.modes.StartMode(actual, playerLevel) {
			return "", fmt.Errorf("failed to start fallback mode %s at level %d", actual, playerLevel)
		}
	}

	s.combo.Reset()
	s.combo.ResetStats()
	s.ai.ResetSession()
	s.lives = s.maxLives
	s.score = 0
	s.nowMs = 0
	s.paused = false
	s.started = true
	s.ended = false
	s.endReason = components.ReasonNone
	s.effective = mergeModifiers(s.modes.ActiveModifiers(), s.ai.Settings())

	s.log.WithField("mode", actual).Info("session started")
	return actual, nil
}

// SetPaused 暂停或恢复；暂停期间 Tick 不推进任何计时
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Tick 推进一帧
//
// 顺序：AI 更新、模式更新、连击超时检查，然后合并修改器。
// 模式报告结束（如限时归零）时会话随之结束。
func (s *Session) Tick(deltaMs float64, stats components.GameStats) TickResult {
	s.mu.Lock()
	if !s.started || s.ended || s.paused {
		result := TickResult{NowMs: s.nowMs, Effective: s.effective, GameOver: s.ended, Reason: s.endReason}
		s.mu.Unlock()
		return result
	}

	s.nowMs += deltaMs
	result := TickResult{NowMs: s.nowMs}

	result.Difficulty = s.ai.Update(stats, deltaMs)
	result.Mode = s.modes.Update(deltaMs, components.ModeContext{Stats: stats})
	if live, ok := s.combo.Update(s.nowMs); ok && live.Broken {
		brk := live.Break
		result.ComboBreak = &brk
	}

	s.effective = mergeModifiers(result.Mode.Modifiers, result.Difficulty)
	result.Effective = s.effective
	result.RespawnPlayer = result.Mode.RespawnPlayer

	if result.Mode.GameEnded {
		s.finish(result.Mode.Reason, stats)
	}
	result.GameOver = s.ended
	result.Reason = s.endReason

	observers := s.observers
	snap := s.snapshotLocked()
	s.mu.Unlock()

	for _, o := range observers {
		if result.Mode.InjectedEvent != nil {
			o.OnRandomEvent(*result.Mode.InjectedEvent)
		}
		o.OnTick(snap)
	}
	return result
}

// RegisterAction 登记一次计分动作并记入总分
// 得分 = 连击得分 × 模式得分倍率 × 连击倍率修改器，加上里程碑奖励
func (s *Session) RegisterAction(action components.ActionType) (ActionOutcome, error) {
	s.mu.Lock()
	if err := s.checkActiveLocked(); err != nil {
		s.mu.Unlock()
		return ActionOutcome{}, err
	}

	result, err := s.combo.RegisterAction(action, s.nowMs)
	if err != nil {
		s.mu.Unlock()
		return ActionOutcome{}, err
	}

	delta := int(float64(result.Points)*s.effective.ScoreMultiplier*s.effective.ComboMultiplier + 1e-9)
	if result.Milestone != nil {
		delta += result.Milestone.Bonus
	}
	s.score += delta
	outcome := ActionOutcome{Combo: result, ScoreDelta: delta, Score: s.score}

	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.OnCombo(result)
	}
	return outcome, nil
}

// PlayerDied 处理玩家死亡
// 断开连击、记录到 AI 画像，再按模式策略扣命或结束
func (s *Session) PlayerDied(cause components.DeathCause, stats components.GameStats) (DeathResult, error) {
	s.mu.Lock()
	if err := s.checkActiveLocked(); err != nil {
		s.mu.Unlock()
		return DeathResult{}, err
	}

	s.combo.BreakCombo()
	s.ai.RecordDeath(cause, stats)
	outcome := s.modes.HandleDeath()

	if outcome.LoseLife {
		s.lives--
	}
	if outcome.GameOver || s.lives <= 0 {
		s.finish(components.ReasonDeath, stats)
	}
	result := DeathResult{Outcome: outcome, LivesLeft: s.lives, GameOver: s.ended}

	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.OnDeath(cause)
	}
	s.log.WithFields(logrus.Fields{
		"cause":    cause,
		"lives":    result.LivesLeft,
		"gameOver": result.GameOver,
	}).Info("player died")
	return result, nil
}

// LevelComplete 处理通关，返回加到总分上的时间奖励
func (s *Session) LevelComplete(stats components.GameStats, perfect bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActiveLocked(); err != nil {
		return 0, err
	}

	bonus := s.modes.CalculateTimeBonus()
	s.score += bonus
	// 总分以会话账本为准
	stats.LevelCompleted = true
	stats.Score = s.score
	s.ai.RecordLevelComplete(stats, perfect)

	s.log.WithFields(logrus.Fields{
		"bonus":   bonus,
		"score":   s.score,
		"perfect": perfect,
	}).Info("level complete")
	return bonus, nil
}

// End 主动结束游戏（退出）
func (s *Session) End(stats components.GameStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.ended {
		return
	}
	s.finish(components.ReasonQuit, stats)
}

// finish 结束会话，调用方持有写锁
func (s *Session) finish(reason components.EndReason, stats components.GameStats) {
	if s.ended {
		return
	}
	s.ended = true
	s.endReason = reason
	s.combo.Reset()
	s.modes.EndGame(s.score, stats)
	s.log.WithFields(logrus.Fields{
		"reason": reason,
		"score":  s.score,
	}).Info("session ended")
}

func (s *Session) checkActiveLocked() error {
	if !s.started {
		return ErrSessionNotStarted
	}
	if s.ended {
		return ErrSessionEnded
	}
	return nil
}

// Recommendations 返回 AI 建议
func (s *Session) Recommendations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ai.Recommendations()
}

// AvailableModes 返回模式选择列表
func (s *Session) AvailableModes(playerLevel int) []systems.ModeAvailability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modes.AvailableModes(playerLevel)
}

// Snapshot 返回会话快照
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	mode, _ := s.modes.CurrentMode()
	profile := s.ai.Profile()
	return Snapshot{
		ID:              s.id,
		Mode:            mode,
		Started:         s.started,
		Ended:           s.ended,
		EndReason:       s.endReason,
		NowMs:           s.nowMs,
		Score:           s.score,
		Lives:           s.lives,
		Combo:           s.combo.Status(),
		ComboStats:      s.combo.Stats(),
		ModeUI:          s.modes.UIStatus(),
		Difficulty:      s.ai.State(),
		SkillLevel:      profile.SkillLevel,
		Playstyle:       profile.Playstyle,
		Effective:       s.effective,
		EventsTriggered: s.modes.State().EventsTriggered,
	}
}
