package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/gonewx/rallyx/pkg/storage"
)

// fixedRandom 固定序列随机源，序列用完后重复最后一个值
type fixedRandom struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *fixedRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.999
	}
	v := r.floats[min(r.fi, len(r.floats)-1)]
	r.fi++
	return v
}

func (r *fixedRandom) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[min(r.ii, len(r.ints)-1)]
	r.ii++
	return v % n
}

// failingStore 所有读写都失败的存储
type failingStore struct{}

func (failingStore) Get(string) ([]byte, error) { return nil, errors.New("disk on fire") }
func (failingStore) Set(string, []byte) error   { return errors.New("disk on fire") }

func TestGameModeManager_UnlockGating(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})

	if m.StartMode(components.ModeSurvival, 10) {
		t.Fatal("survival should be locked at level 10")
	}
	if _, ok := m.CurrentMode(); ok {
		t.Error("current mode should be unchanged after rejected start")
	}
	if m.ModeStats(components.ModeSurvival).GamesPlayed != 0 {
		t.Error("rejected start must not count a game")
	}

	if !m.StartMode(components.ModeSurvival, 30) {
		t.Fatal("survival should start at level 30")
	}
	mode, ok := m.CurrentMode()
	if !ok || mode != components.ModeSurvival {
		t.Errorf("Expected survival, got %q (ok=%v)", mode, ok)
	}
	if m.ModeStats(components.ModeSurvival).GamesPlayed != 1 {
		t.Errorf("Expected 1 game played, got %d", m.ModeStats(components.ModeSurvival).GamesPlayed)
	}
}

func TestGameModeManager_CanStart(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})

	tests := []struct {
		name    string
		mode    components.GameMode
		level   int
		wantErr error
	}{
		{"经典模式", components.ModeClassic, 1, nil},
		{"限时模式未解锁", components.ModeTimeAttack, 4, ErrModeLocked},
		{"限时模式解锁", components.ModeTimeAttack, 5, nil},
		{"混沌模式解锁", components.ModeChaos, 15, nil},
		{"未知模式", components.GameMode("arcade"), 99, ErrUnknownMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.CanStart(tt.mode, tt.level)
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if m.StartMode(components.GameMode("arcade"), 99) {
		t.Error("unknown mode should not start")
	}
}

// 累计 delta 恰好等于时限的那一帧结束，之前不结束
func TestGameModeManager_TimeAttackCountdown(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	if !m.StartMode(components.ModeTimeAttack, 5) {
		t.Fatal("failed to start timeAttack")
	}

	for i := 1; i < 180; i++ {
		result := m.Update(1000, components.ModeContext{})
		if result.GameEnded {
			t.Fatalf("game ended early at tick %d", i)
		}
	}

	result := m.Update(1000, components.ModeContext{})
	if !result.GameEnded {
		t.Fatal("Expected game to end when time limit is reached")
	}
	if result.Reason != components.ReasonTimeUp {
		t.Errorf("Expected reason timeUp, got %q", result.Reason)
	}
	if result.State.RemainingMs != 0 {
		t.Errorf("Expected remaining 0, got %v", result.State.RemainingMs)
	}

	// 结束后不再推进
	after := m.Update(1000, components.ModeContext{})
	if after.GameEnded {
		t.Error("time up should be signalled only once")
	}
	if after.State.ElapsedMs != 180000 {
		t.Errorf("elapsed should stop at 180000, got %v", after.State.ElapsedMs)
	}
}

func TestGameModeManager_TimeBonus(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	if m.CalculateTimeBonus() != 0 {
		t.Error("no bonus before a mode starts")
	}

	m.StartMode(components.ModeTimeAttack, 5)
	m.Update(60500, components.ModeContext{})
	// 剩余 119.5s，按整秒取 119
	if got := m.CalculateTimeBonus(); got != 119*50 {
		t.Errorf("Expected bonus %d, got %d", 119*50, got)
	}

	m.StartMode(components.ModeClassic, 5)
	if got := m.CalculateTimeBonus(); got != 0 {
		t.Errorf("classic has no time bonus, got %d", got)
	}
}

func TestGameModeManager_PausedFreezesTimers(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	m.StartMode(components.ModeTimeAttack, 5)

	result := m.Update(5000, components.ModeContext{Paused: true})
	if result.State.RemainingMs != 180000 || result.State.ElapsedMs != 0 {
		t.Errorf("paused update changed timers: %+v", result.State)
	}
}

// 限时模式死亡：扣时间，延迟后恰好复活一次
func TestGameModeManager_TimeAttackRespawn(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	m.StartMode(components.ModeTimeAttack, 5)

	outcome := m.HandleDeath()
	if !outcome.AllowContinue || !outcome.RespawnScheduled || outcome.GameOver || outcome.LoseLife {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.PenaltyTimeMs != 5000 || outcome.RespawnDelayMs != 2000 {
		t.Errorf("unexpected penalty/delay: %+v", outcome)
	}
	if got := m.State().RemainingMs; got != 175000 {
		t.Errorf("Expected remaining 175000 after penalty, got %v", got)
	}

	respawns := 0
	for i := 0; i < 5; i++ {
		if m.Update(1000, components.ModeContext{}).RespawnPlayer {
			respawns++
			if i != 1 {
				t.Errorf("respawn signalled at tick %d, expected tick 1", i)
			}
		}
	}
	if respawns != 1 {
		t.Errorf("Expected exactly one respawn, got %d", respawns)
	}
	if m.State().DeathCount != 1 {
		t.Errorf("Expected 1 death, got %d", m.State().DeathCount)
	}
}

func TestGameModeManager_TimeAttackPenaltyFloor(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	m.StartMode(components.ModeTimeAttack, 5)
	m.Update(177000, components.ModeContext{})

	outcome := m.HandleDeath()
	if outcome.PenaltyTimeMs != 3000 {
		t.Errorf("Expected penalty capped at 3000, got %v", outcome.PenaltyTimeMs)
	}
	if m.State().RemainingMs != 0 {
		t.Errorf("remaining time must not go negative, got %v", m.State().RemainingMs)
	}

	result := m.Update(16, components.ModeContext{})
	if !result.GameEnded || result.Reason != components.ReasonTimeUp {
		t.Errorf("Expected time up on next tick, got %+v", result)
	}
}

func TestGameModeManager_DeathPolicies(t *testing.T) {
	tests := []struct {
		name     string
		mode     components.GameMode
		level    int
		gameOver bool
		loseLife bool
	}{
		{"经典模式交给生命计数", components.ModeClassic, 1, false, true},
		{"混沌模式交给生命计数", components.ModeChaos, 15, false, true},
		{"生存模式一命", components.ModeSurvival, 25, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewGameModeManager(nil, nil, &fixedRandom{})
			if !m.StartMode(tt.mode, tt.level) {
				t.Fatalf("failed to start %s", tt.mode)
			}
			outcome := m.HandleDeath()
			if outcome.GameOver != tt.gameOver || outcome.LoseLife != tt.loseLife {
				t.Errorf("unexpected outcome: %+v", outcome)
			}
			if outcome.AllowContinue == tt.gameOver {
				t.Errorf("AllowContinue should be the opposite of GameOver: %+v", outcome)
			}
		})
	}
}

func TestGameModeManager_SurvivalDifficulty(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	m.StartMode(components.ModeSurvival, 25)

	if got := m.ActiveModifiers().DifficultyMultiplier; got != 1.0 {
		t.Errorf("Expected initial difficulty 1.0, got %v", got)
	}

	m.Update(29999, components.ModeContext{})
	if got := m.State().DifficultyMultiplier; got != 1.0 {
		t.Errorf("difficulty increased too early: %v", got)
	}

	m.Update(1, components.ModeContext{})
	if got := m.ActiveModifiers().DifficultyMultiplier; !floatEquals(got, 1.2) {
		t.Errorf("Expected difficulty 1.2, got %v", got)
	}
	if m.State().DifficultyTimerMs != 0 {
		t.Errorf("interval timer should reset, got %v", m.State().DifficultyTimerMs)
	}

	// 默认不封顶：再过 11 个间隔为 1.2^12
	for i := 0; i < 11; i++ {
		m.Update(30000, components.ModeContext{})
	}
	if got, want := m.State().DifficultyMultiplier, math.Pow(1.2, 12); !floatEquals(got, want) {
		t.Errorf("Expected uncapped difficulty %v, got %v", want, got)
	}
}

func TestGameModeManager_SurvivalDifficultyCap(t *testing.T) {
	cfg := config.DefaultGameModesConfig()
	for i := range cfg.Modes {
		if cfg.Modes[i].Mode == components.ModeSurvival {
			cfg.Modes[i].MaxDifficultyMultiplier = 5.0
		}
	}
	m := NewGameModeManager(cfg, nil, &fixedRandom{})
	m.StartMode(components.ModeSurvival, 25)

	for i := 0; i < 20; i++ {
		m.Update(30000, components.ModeContext{})
	}
	if got := m.State().DifficultyMultiplier; got != 5.0 {
		t.Errorf("Expected difficulty capped at 5.0, got %v", got)
	}
}

// 60fps 的帧长无法精确表示，累计误差不能让倒计时晚一帧结束
func TestGameModeManager_TimeAttackFrameTicks(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	m.StartMode(components.ModeTimeAttack, 5)

	const frameMs = 1000.0 / 60
	endedAt := 0
	for tick := 1; tick <= 10801; tick++ {
		if m.Update(frameMs, components.ModeContext{}).GameEnded {
			endedAt = tick
			break
		}
	}
	if endedAt != 10800 {
		t.Errorf("Expected time up on tick 10800, got %d", endedAt)
	}
}

// 返回的状态副本和配置表都不能被调用方改写
func TestGameModeManager_StateDoesNotAliasEvents(t *testing.T) {
	cfg := config.DefaultGameModesConfig()
	rng := &fixedRandom{floats: []float64{0, 0.999}, ints: []int{0}}
	m := NewGameModeManager(cfg, nil, rng)
	m.StartMode(components.ModeChaos, 15)

	res := m.Update(100, components.ModeContext{})
	if len(res.State.ActiveEvents) != 1 || res.State.ActiveEvents[0].Effect.SpeedMultiplier == nil {
		t.Fatalf("Expected speedFrenzy active, got %+v", res.State.ActiveEvents)
	}

	*res.State.ActiveEvents[0].Effect.SpeedMultiplier = 10
	*m.State().ActiveEvents[0].Effect.SpeedMultiplier = 20

	if got := m.ActiveModifiers().SpeedMultiplier; got != 2.0 {
		t.Errorf("snapshot mutation leaked into live modifiers: %v", got)
	}
	ev, _ := cfg.Event(components.EventSpeedFrenzy)
	if got := *ev.Effect.SpeedMultiplier; got != 2.0 {
		t.Errorf("snapshot mutation leaked into the event table: %v", got)
	}
}

func TestGameModeManager_StaticModifiers(t *testing.T) {
	tests := []struct {
		mode    components.GameMode
		score   float64
		powerup float64
	}{
		{components.ModeClassic, 1.0, 1.0},
		{components.ModeTimeAttack, 1.5, 1.2},
		{components.ModeSurvival, 2.0, 0.8},
		{components.ModeChaos, 1.75, 1.5},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			m := NewGameModeManager(nil, nil, &fixedRandom{})
			m.StartMode(tt.mode, 99)
			mods := m.ActiveModifiers()
			if mods.ScoreMultiplier != tt.score || mods.PowerupSpawnRate != tt.powerup {
				t.Errorf("unexpected modifiers: %+v", mods)
			}
			if mods.SpeedMultiplier != 1.0 || mods.Invincible || mods.DifficultyMultiplier != 1.0 {
				t.Errorf("unexpected neutral fields: %+v", mods)
			}
		})
	}
}

// 每帧都注入事件时，任意时刻都不会出现重复 id
func TestGameModeManager_ChaosMutualExclusion(t *testing.T) {
	rng := &fixedRandom{floats: []float64{0}, ints: []int{0}}
	m := NewGameModeManager(nil, nil, rng)
	m.StartMode(components.ModeChaos, 15)

	injected := 0
	for tick := 0; tick < 20; tick++ {
		result := m.Update(100, components.ModeContext{})
		if result.InjectedEvent != nil {
			injected++
		}

		seen := map[components.RandomEventID]bool{}
		for _, ev := range result.State.ActiveEvents {
			if seen[ev.ID] {
				t.Fatalf("tick %d: duplicate event %s", tick, ev.ID)
			}
			seen[ev.ID] = true
		}
	}

	if injected != 8 {
		t.Errorf("Expected all 8 events injected once, got %d", injected)
	}
	if m.State().EventsTriggered != 8 {
		t.Errorf("Expected 8 events triggered, got %d", m.State().EventsTriggered)
	}
}

// 到期事件在合成修改器之前移除
func TestGameModeManager_ChaosExpiry(t *testing.T) {
	rng := &fixedRandom{floats: []float64{0, 0.999}, ints: []int{0}}
	m := NewGameModeManager(nil, nil, rng)
	m.StartMode(components.ModeChaos, 15)

	first := m.Update(1000, components.ModeContext{})
	if first.InjectedEvent == nil || *first.InjectedEvent != components.EventSpeedFrenzy {
		t.Fatalf("Expected speedFrenzy injected, got %v", first.InjectedEvent)
	}
	// 新事件在加入的那一帧不递减
	if got := first.State.ActiveEvents[0].RemainingMs; got != 10000 {
		t.Errorf("Expected 10000ms remaining, got %v", got)
	}
	if first.Modifiers.SpeedMultiplier != 2.0 {
		t.Errorf("Expected speed 2.0 while event active, got %v", first.Modifiers.SpeedMultiplier)
	}

	mid := m.Update(9999, components.ModeContext{})
	if len(mid.State.ActiveEvents) != 1 || len(mid.ExpiredEvents) != 0 {
		t.Fatalf("event expired early: %+v", mid.State.ActiveEvents)
	}

	last := m.Update(1, components.ModeContext{})
	if len(last.ExpiredEvents) != 1 || last.ExpiredEvents[0] != components.EventSpeedFrenzy {
		t.Errorf("Expected speedFrenzy expired, got %v", last.ExpiredEvents)
	}
	if len(last.State.ActiveEvents) != 0 {
		t.Errorf("expired event still active: %+v", last.State.ActiveEvents)
	}
	if last.Modifiers.SpeedMultiplier != 1.0 {
		t.Errorf("expired event leaked into modifiers: %v", last.Modifiers.SpeedMultiplier)
	}
}

// 数值效果相乘，布尔和视野半径覆盖
func TestGameModeManager_ChaosModifierComposition(t *testing.T) {
	// doublePoints(3) → speedFrenzy(0) → invincibility(0) → darkness(2)
	rng := &fixedRandom{floats: []float64{0, 0, 0, 0, 0.999}, ints: []int{3, 0, 0, 2}}
	m := NewGameModeManager(nil, nil, rng)
	m.StartMode(components.ModeChaos, 15)

	for i := 0; i < 5; i++ {
		m.Update(100, components.ModeContext{})
	}

	mods := m.ActiveModifiers()
	if !floatEquals(mods.ScoreMultiplier, 3.5) {
		t.Errorf("Expected score 1.75*2=3.5, got %v", mods.ScoreMultiplier)
	}
	if mods.SpeedMultiplier != 2.0 {
		t.Errorf("Expected speed 2.0, got %v", mods.SpeedMultiplier)
	}
	if !mods.Invincible {
		t.Error("Expected invincible")
	}
	if mods.VisionRadius != 150 {
		t.Errorf("Expected vision radius 150, got %v", mods.VisionRadius)
	}
	if mods.PowerupSpawnRate != 1.5 {
		t.Errorf("Expected powerup rate 1.5, got %v", mods.PowerupSpawnRate)
	}
}

func TestGameModeManager_NoEventsOutsideChaos(t *testing.T) {
	rng := &fixedRandom{floats: []float64{0}}
	m := NewGameModeManager(nil, nil, rng)
	m.StartMode(components.ModeClassic, 1)

	for i := 0; i < 10; i++ {
		if r := m.Update(1000, components.ModeContext{}); r.InjectedEvent != nil {
			t.Fatal("classic mode should never inject events")
		}
	}
}

func TestGameModeManager_EndGamePersists(t *testing.T) {
	store := storage.NewMemoryStore()

	m := NewGameModeManager(nil, store, &fixedRandom{})
	m.StartMode(components.ModeTimeAttack, 5)
	m.HandleDeath()
	m.EndGame(4200, components.GameStats{SurvivalTimeMs: 90000, LevelCompleted: true})

	m.StartMode(components.ModeTimeAttack, 5)
	m.EndGame(3000, components.GameStats{SurvivalTimeMs: 60000, LevelCompleted: true})

	reloaded := NewGameModeManager(nil, store, &fixedRandom{})
	record := reloaded.ModeStats(components.ModeTimeAttack)
	if record.GamesPlayed != 2 {
		t.Errorf("Expected 2 games, got %d", record.GamesPlayed)
	}
	if record.BestScore != 4200 || record.LastScore != 3000 {
		t.Errorf("unexpected scores: %+v", record)
	}
	if record.BestTimeMs != 60000 || record.LongestSurvivalMs != 90000 {
		t.Errorf("unexpected times: %+v", record)
	}
	if record.TotalDeaths != 1 {
		t.Errorf("Expected 1 death, got %d", record.TotalDeaths)
	}
}

func TestGameModeManager_StorageFallback(t *testing.T) {
	t.Run("损坏的记录", func(t *testing.T) {
		store := storage.NewMemoryStore()
		store.Set(modeStatsKey, []byte("[1, 2"))

		m := NewGameModeManager(nil, store, &fixedRandom{})
		if got := m.ModeStats(components.ModeClassic); got != (components.ModeRecord{}) {
			t.Errorf("Expected empty record, got %+v", got)
		}
		if !m.StartMode(components.ModeClassic, 1) {
			t.Error("manager should work after corrupt load")
		}
	})

	t.Run("存储不可用", func(t *testing.T) {
		m := NewGameModeManager(nil, failingStore{}, &fixedRandom{})
		if !m.StartMode(components.ModeClassic, 1) {
			t.Fatal("manager should work without storage")
		}
		m.EndGame(100, components.GameStats{})
		if m.ModeStats(components.ModeClassic).BestScore != 100 {
			t.Error("records should be kept in memory")
		}
	})
}

func TestGameModeManager_AvailableModes(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	modes := m.AvailableModes(15)
	if len(modes) != 4 {
		t.Fatalf("Expected 4 modes, got %d", len(modes))
	}

	unlocked := map[components.GameMode]bool{}
	for _, a := range modes {
		unlocked[a.Settings.Mode] = a.Unlocked
	}
	want := map[components.GameMode]bool{
		components.ModeClassic:    true,
		components.ModeTimeAttack: true,
		components.ModeChaos:      true,
		components.ModeSurvival:   false,
	}
	for mode, w := range want {
		if unlocked[mode] != w {
			t.Errorf("%s: expected unlocked=%v", mode, w)
		}
	}
}

func TestGameModeManager_UIStatus(t *testing.T) {
	m := NewGameModeManager(nil, nil, &fixedRandom{})
	m.StartMode(components.ModeTimeAttack, 5)
	m.Update(60500, components.ModeContext{})

	status := m.UIStatus()
	if !status.HasTimer {
		t.Fatal("timeAttack should show a timer")
	}
	if status.RemainingSeconds != 120 || status.TimerText != "02:00" {
		t.Errorf("unexpected timer: %d %q", status.RemainingSeconds, status.TimerText)
	}
	if status.ElapsedSeconds != 60 {
		t.Errorf("Expected 60 elapsed seconds, got %d", status.ElapsedSeconds)
	}
}

func TestGameModeManager_CustomConfig(t *testing.T) {
	cfg := config.DefaultGameModesConfig()
	for i := range cfg.Modes {
		if cfg.Modes[i].Mode == components.ModeTimeAttack {
			cfg.Modes[i].TimeLimitMs = 1000
		}
	}
	m := NewGameModeManager(cfg, nil, &fixedRandom{})
	m.StartMode(components.ModeTimeAttack, 5)
	if r := m.Update(1000, components.ModeContext{}); !r.GameEnded {
		t.Error("custom time limit not applied")
	}
}
