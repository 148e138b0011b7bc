package systems

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/sirupsen/logrus"
)

// ErrUnknownAction 未知或不可登记的动作类型
var ErrUnknownAction = errors.New("unknown combo action")

// pointsEpsilon 截断得分前的浮点容差，避免 129.99999 被截成 129
const pointsEpsilon = 1e-9

// BreakResult 断链结果
type BreakResult struct {
	BrokenChainCount int
	WasInFever       bool
	FinalMultiplier  float64
}

// ComboResult 一次动作登记的结果
type ComboResult struct {
	Action          components.ActionType
	ChainCount      int
	Multiplier      float64
	Points          int
	WindowMs        float64
	FeverActive     bool
	FeverActivated  bool // 仅在进入狂热模式的那一次为 true
	IsChainReaction bool
	Milestone       *components.Milestone
	Break           *BreakResult // 本次动作前因超时而断开的链
}

// ComboLiveness Update 的结果
type ComboLiveness struct {
	Broken           bool
	Break            BreakResult
	RemainingMs      float64
	RemainingPercent float64
}

// ComboStatus 当前连击状态（只读快照）
type ComboStatus struct {
	Active        bool
	ChainCount    int
	MaxChainCount int
	Multiplier    float64
	WindowMs      float64
	FeverActive   bool
}

// ComboStats 会话累计统计
type ComboStats struct {
	TotalActions      int
	TotalChains       int // 断开时长度 >= 2 的链
	HighestChain      int
	FeverActivations  int
	ChainReactions    int
	MilestonesReached int
	TotalPoints       int
}

// ComboSystem 连击系统
// 在逐渐收缩的时间窗口内追踪连续计分动作，计算倍率、里程碑和狂热模式
//
// 只提供单次动作的得分，不直接写入总分（由调用方的计分账本负责）
type ComboSystem struct {
	cfg   *config.ComboConfig
	state components.ComboState
	stats ComboStats
	log   *logrus.Entry
}

// NewComboSystem 创建连击系统
// cfg 为 nil 时使用内置配置
func NewComboSystem(cfg *config.ComboConfig) *ComboSystem {
	if cfg == nil {
		cfg = config.DefaultComboConfig()
	}
	s := &ComboSystem{
		cfg: cfg,
		log: logrus.WithField("component", "ComboSystem"),
	}
	s.Reset()
	return s
}

// RegisterAction 登记一次计分动作
//
// 参数：
//   - action: 动作类型（chainReaction 为派生奖励，不可登记）
//   - timestampMs: 动作发生的游戏时间
//
// 返回：
//   - ComboResult: 本次动作的连击结果
//   - error: 动作未知时返回 ErrUnknownAction，状态不变
func (s *ComboSystem) RegisterAction(action components.ActionType, timestampMs float64) (ComboResult, error) {
	value, ok := s.cfg.Actions[action]
	if !ok || value.Derived {
		s.log.WithField("action", action).Warn("ignoring unknown combo action")
		return ComboResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	st := &s.state
	result := ComboResult{Action: action}

	// 超出窗口：先断链，新动作从 1 开始计数
	if st.ChainCount > 0 && timestampMs-st.LastActionMs > st.WindowMs {
		if brk, broken := s.BreakCombo(); broken {
			result.Break = &brk
		}
	}

	st.ChainCount++
	st.LastActionMs = timestampMs
	st.HasLastAction = true

	isChainReaction := s.trackRecentAction(action, timestampMs)

	st.Multiplier = 1 + float64(st.ChainCount)*s.cfg.MultiplierStep

	if st.ChainCount >= s.cfg.FeverThreshold && s.activateFever() {
		result.FeverActivated = true
	}

	if st.ChainCount > 1 {
		st.WindowMs = math.Max(s.cfg.MinWindowMs, st.WindowMs*s.cfg.WindowDecay)
	}

	milestone := s.milestoneFor(st.ChainCount)
	if milestone != nil {
		s.stats.MilestonesReached++
		if milestone.ForcesFever && s.activateFever() {
			result.FeverActivated = true
		}
		s.log.WithFields(logrus.Fields{
			"milestone": milestone.Name,
			"chain":     st.ChainCount,
			"bonus":     milestone.Bonus,
		}).Info("combo milestone reached")
	}

	if st.ChainCount > st.MaxChainCount {
		st.MaxChainCount = st.ChainCount
	}

	points := float64(value.BasePoints) * st.Multiplier
	if st.FeverActive {
		points *= s.cfg.FeverPointMultiplier
	}
	if isChainReaction {
		points *= s.cfg.Actions[components.ActionChainReaction].Weight
		s.stats.ChainReactions++
	}
	earned := int(points + pointsEpsilon)

	s.stats.TotalActions++
	s.stats.TotalPoints += earned
	if st.ChainCount > s.stats.HighestChain {
		s.stats.HighestChain = st.ChainCount
	}

	result.ChainCount = st.ChainCount
	result.Multiplier = st.Multiplier
	result.Points = earned
	result.WindowMs = st.WindowMs
	result.FeverActive = st.FeverActive
	result.IsChainReaction = isChainReaction
	result.Milestone = milestone
	return result, nil
}

// trackRecentAction 记录动作并裁剪过期条目，返回是否构成连锁反应
func (s *ComboSystem) trackRecentAction(action components.ActionType, nowMs float64) bool {
	st := &s.state
	st.RecentActions = append(st.RecentActions, components.ActionLogEntry{
		Action:      action,
		TimestampMs: nowMs,
	})

	kept := st.RecentActions[:0]
	for _, entry := range st.RecentActions {
		if nowMs-entry.TimestampMs < s.cfg.ChainReactionWindowMs {
			kept = append(kept, entry)
		}
	}
	st.RecentActions = kept

	return len(st.RecentActions) >= s.cfg.ChainReactionMinActions
}

// activateFever 进入狂热模式，已激活时返回 false
func (s *ComboSystem) activateFever() bool {
	if s.state.FeverActive {
		return false
	}
	s.state.FeverActive = true
	s.stats.FeverActivations++
	s.log.WithField("chain", s.state.ChainCount).Info("fever mode activated")
	return true
}

// milestoneFor 返回恰好等于该连击数的里程碑
func (s *ComboSystem) milestoneFor(chain int) *components.Milestone {
	for i := range s.cfg.Milestones {
		if s.cfg.Milestones[i].Threshold == chain {
			m := s.cfg.Milestones[i]
			return &m
		}
	}
	return nil
}

// Update 检查连击是否超时
//
// 没有进行中的连击时返回 false；超时会断链并在结果中标记 Broken。
// 未超时时只返回剩余时间，不修改状态。
func (s *ComboSystem) Update(nowMs float64) (ComboLiveness, bool) {
	st := &s.state
	if st.ChainCount == 0 {
		return ComboLiveness{}, false
	}

	elapsed := nowMs - st.LastActionMs
	if elapsed > st.WindowMs {
		brk, _ := s.BreakCombo()
		return ComboLiveness{Broken: true, Break: brk}, true
	}

	remaining := st.WindowMs - elapsed
	return ComboLiveness{
		RemainingMs:      remaining,
		RemainingPercent: remaining / st.WindowMs * 100,
	}, true
}

// BreakCombo 断开当前连击
// 连击数为 0 时不做任何事并返回 false
func (s *ComboSystem) BreakCombo() (BreakResult, bool) {
	st := &s.state
	if st.ChainCount == 0 {
		return BreakResult{}, false
	}

	result := BreakResult{
		BrokenChainCount: st.ChainCount,
		WasInFever:       st.FeverActive,
		FinalMultiplier:  st.Multiplier,
	}
	if st.ChainCount >= 2 {
		s.stats.TotalChains++
	}

	st.ChainCount = 0
	st.Multiplier = 1.0
	st.WindowMs = s.cfg.InitialWindowMs
	st.RecentActions = st.RecentActions[:0]
	st.FeverActive = false

	s.log.WithFields(logrus.Fields{
		"chain": result.BrokenChainCount,
		"fever": result.WasInFever,
	}).Debug("combo broken")
	return result, true
}

// Status 返回当前连击状态
func (s *ComboSystem) Status() ComboStatus {
	return ComboStatus{
		Active:        s.state.ChainCount > 0,
		ChainCount:    s.state.ChainCount,
		MaxChainCount: s.state.MaxChainCount,
		Multiplier:    s.state.Multiplier,
		WindowMs:      s.state.WindowMs,
		FeverActive:   s.state.FeverActive,
	}
}

// State 返回状态副本
func (s *ComboSystem) State() components.ComboState {
	st := s.state
	st.RecentActions = append([]components.ActionLogEntry(nil), s.state.RecentActions...)
	return st
}

// Stats 返回会话统计
func (s *ComboSystem) Stats() ComboStats {
	return s.stats
}

// ResetStats 清空会话统计
func (s *ComboSystem) ResetStats() {
	s.stats = ComboStats{}
}

// Reset 完全重置连击状态（游戏结束时调用）
func (s *ComboSystem) Reset() {
	s.state = components.ComboState{
		Multiplier:    1.0,
		WindowMs:      s.cfg.InitialWindowMs,
		RecentActions: []components.ActionLogEntry{},
	}
}
