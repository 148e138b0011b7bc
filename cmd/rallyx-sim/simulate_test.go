package main

import (
	"math/rand"
	"testing"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/game"
	"github.com/gonewx/rallyx/pkg/storage"
	"github.com/gonewx/rallyx/pkg/systems"
)

func newSimSession() *game.Session {
	store := storage.NewMemoryStore()
	return game.NewSession(
		systems.NewComboSystem(nil),
		systems.NewGameModeManager(nil, store, systems.NewRandomSource(3)),
		systems.NewAIManager(nil, store),
		3,
	)
}

func baseConfig() simConfig {
	return simConfig{
		Games:         1,
		Mode:          components.ModeClassic,
		PlayerLevel:   30,
		FrameMs:       1000.0 / 60.0,
		MaxGameMs:     600000,
		FlagsPerLevel: 10,
	}
}

func TestSimulationEndReasons(t *testing.T) {
	tests := []struct {
		name   string
		mode   components.GameMode
		skill  float64
		reason components.EndReason
	}{
		{"完美机器人经典模式主动结束", components.ModeClassic, 1, components.ReasonQuit},
		{"完美机器人限时模式时间到", components.ModeTimeAttack, 1, components.ReasonTimeUp},
		{"零技能机器人撞车结束", components.ModeClassic, 0, components.ReasonDeath},
		{"零技能机器人生存模式一命", components.ModeSurvival, 0, components.ReasonDeath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Mode = tt.mode
			cfg.Skill = tt.skill

			summaries, err := runSimulation(newSimSession(), cfg, rand.New(rand.NewSource(7)))
			if err != nil {
				t.Fatalf("runSimulation failed: %v", err)
			}
			if len(summaries) != 1 {
				t.Fatalf("Expected 1 summary, got %d", len(summaries))
			}
			s := summaries[0]
			if s.Reason != tt.reason {
				t.Errorf("Expected reason %s, got %s", tt.reason, s.Reason)
			}
			if s.DurationMs > cfg.MaxGameMs+cfg.FrameMs {
				t.Errorf("game ran past the limit: %v", s.DurationMs)
			}
		})
	}
}

func TestSimulationScoring(t *testing.T) {
	cfg := baseConfig()
	cfg.Skill = 1
	cfg.MaxGameMs = 60000

	summaries, err := runSimulation(newSimSession(), cfg, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("runSimulation failed: %v", err)
	}
	s := summaries[0]
	if s.Score <= 0 || s.MaxChain == 0 {
		t.Errorf("skilled bot should score: %+v", s)
	}
	if s.Deaths != 0 {
		t.Errorf("perfect bot should never die, got %d deaths", s.Deaths)
	}
}

func TestSimulationIdleBotScoresNothing(t *testing.T) {
	cfg := baseConfig()
	cfg.Skill = 0

	summaries, _ := runSimulation(newSimSession(), cfg, rand.New(rand.NewSource(5)))
	if s := summaries[0]; s.Score != 0 || s.MaxChain != 0 || s.Deaths != 3 {
		t.Errorf("idle bot should only crash: %+v", s)
	}
}

func TestSimulationMultipleGames(t *testing.T) {
	cfg := baseConfig()
	cfg.Games = 3
	cfg.Skill = 0.5
	cfg.MaxGameMs = 30000

	session := newSimSession()
	summaries, err := runSimulation(session, cfg, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("runSimulation failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("Expected 3 summaries, got %d", len(summaries))
	}
	if !session.Snapshot().Ended {
		t.Error("last game should be ended")
	}
}

func TestPickActionCoversAllActions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	seen := map[components.ActionType]bool{}
	for i := 0; i < 1000; i++ {
		seen[pickAction(rng)] = true
	}
	if len(seen) != len(botActions) {
		t.Errorf("Expected %d distinct actions, got %d", len(botActions), len(seen))
	}
}
