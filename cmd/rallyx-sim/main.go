// rallyx-sim 无界面模拟器
//
// 用机器人玩家跑若干局，观察连击、模式和自适应难度的长期表现。
// 画像和模式记录写入配置的存储，可用于预热玩家技能等级。
//
// 用法：
//
//	go run ./cmd/rallyx-sim -games 20 -mode chaos -level 30 -skill 0.7 -seed 42
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/gonewx/rallyx/pkg/embedded"
	"github.com/gonewx/rallyx/pkg/game"
	"github.com/sirupsen/logrus"
)

var (
	games    = flag.Int("games", 10, "Number of games to simulate")
	mode     = flag.String("mode", "classic", "Game mode (classic, timeAttack, survival, chaos)")
	level    = flag.Int("level", 30, "Player level used for mode unlocks")
	skill    = flag.Float64("skill", 0.6, "Bot skill between 0 and 1")
	seed     = flag.Int64("seed", 1, "Random seed (0 uses the current time)")
	maxGame  = flag.Duration("max-game", 5*time.Minute, "Game-time limit per game")
	dataRoot = flag.String("data", ".", "Directory containing data/*.yaml")
	verbose  = flag.Bool("verbose", false, "Show component logs")
)

func main() {
	flag.Parse()

	if *skill < 0 || *skill > 1 {
		fmt.Fprintf(os.Stderr, "skill must be between 0 and 1, got %v\n", *skill)
		os.Exit(2)
	}

	embedded.Init(os.DirFS(*dataRoot))

	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid runtime configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Seed = *seed
	if !*verbose {
		cfg.LogLevel = "warn"
	}
	cfg.ConfigureLogging()

	ctx := context.Background()
	session, store := game.BuildSession(ctx, cfg)
	defer func() {
		if err := store.Close(ctx); err != nil {
			logrus.WithError(err).Warn("failed to flush storage")
		}
	}()

	botSeed := *seed
	if botSeed == 0 {
		botSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(botSeed))

	summaries, err := runSimulation(session, simConfig{
		Games:         *games,
		Mode:          components.GameMode(*mode),
		PlayerLevel:   *level,
		Skill:         *skill,
		FrameMs:       1000.0 / 60.0,
		MaxGameMs:     float64(maxGame.Milliseconds()),
		FlagsPerLevel: 10,
	}, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-4s %-11s %8s %-6s %7s %5s %6s %6s %5s %-12s %-11s\n",
		"#", "mode", "score", "end", "time", "chain", "deaths", "levels", "diff", "skill", "style")
	total := 0
	for i, s := range summaries {
		total += s.Score
		fmt.Printf("%-4d %-11s %8d %-6s %6.0fs %5d %6d %6d %5.2f %-12s %-11s\n",
			i+1, s.Mode, s.Score, s.Reason, s.DurationMs/1000, s.MaxChain, s.Deaths, s.Levels,
			s.Difficulty, s.SkillLevel, s.Playstyle)
	}
	if len(summaries) > 0 {
		fmt.Printf("\naverage score: %d\n", total/len(summaries))
	}
	for _, tip := range session.Recommendations() {
		fmt.Println("tip:", tip)
	}
}
