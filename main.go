package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/gonewx/rallyx/internal/server"
	"github.com/gonewx/rallyx/pkg/app"
	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/gonewx/rallyx/pkg/embedded"
	"github.com/gonewx/rallyx/pkg/game"
	"github.com/gonewx/rallyx/pkg/metrics"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	mode := flag.String("mode", "", "Game mode to start (classic, timeAttack, survival, chaos)")
	level := flag.Int("level", 0, "Player level used for mode unlocks")
	flag.Parse()

	// 初始化嵌入资源
	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid runtime configuration")
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *level > 0 {
		cfg.PlayerLevel = *level
	}
	cfg.ConfigureLogging()

	ctx := context.Background()
	session, store := game.BuildSession(ctx, cfg)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("failed to flush storage")
		}
	}()

	if cfg.DebugAddr != "" {
		recorder := metrics.NewRecorder(true)
		session.AddObserver(recorder)
		debug := server.NewDebugServer(cfg.DebugAddr, session, recorder.Handler())
		if err := debug.Start(); err != nil {
			logrus.WithError(err).Warn("debug server disabled")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := debug.Shutdown(shutdownCtx); err != nil {
					logrus.WithError(err).Warn("debug server shutdown failed")
				}
			}()
		}
	}

	gameApp, err := app.NewApp(session, app.Config{
		Mode:        components.GameMode(cfg.Mode),
		PlayerLevel: cfg.PlayerLevel,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize game")
	}

	ebiten.SetWindowSize(app.ScreenWidth, app.ScreenHeight)
	ebiten.SetWindowTitle("Rally-X")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(gameApp); err != nil && !errors.Is(err, ebiten.Termination) {
		logrus.WithError(err).Error("game loop exited with error")
	}

	// 窗口直接关闭时也要写入本局记录
	gameApp.Session().End(components.GameStats{})
}
