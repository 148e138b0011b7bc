//go:build mobile

// Package mobile 提供 ebitenmobile 绑定入口
//
// 此包用于构建 Android (.aar) 和 iOS (.xcframework) 包。
// 使用 ebitenmobile 工具构建时会自动调用 init() 函数。
//
// 此文件仅在使用 -tags mobile 构建时编译。构建前需要把 data/*.yaml 复制到 mobile/data/：
//
//	# Android
//	cp -r data mobile/ && ebitenmobile bind -target android -tags mobile -androidapi 23 -javapkg com.gonewx.rallyx -o build/android/rallyx.aar -v ./mobile
//
//	# iOS (仅 macOS)
//	cp -r data mobile/ && ebitenmobile bind -target ios -tags mobile -o build/ios/RallyX.xcframework -v ./mobile
package mobile

import (
	"context"
	"time"

	"github.com/hajimehoshi/ebiten/v2/mobile"
	"github.com/sirupsen/logrus"

	"github.com/gonewx/rallyx/pkg/app"
	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/config"
	"github.com/gonewx/rallyx/pkg/embedded"
	"github.com/gonewx/rallyx/pkg/game"
)

// 生命周期钩子的刷新时限
const flushTimeout = 2 * time.Second

var (
	session *game.Session
	store   *game.StoreHandle
)

func init() {
	// 初始化嵌入资源
	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	// 移动端没有 .env，环境变量缺失时全部使用默认值（gdata 存储）
	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid runtime configuration")
	}
	cfg.ConfigureLogging()

	session, store = game.BuildSession(context.Background(), cfg)

	gameApp, err := app.NewApp(session, app.Config{
		Mode:        components.GameMode(cfg.Mode),
		PlayerLevel: cfg.PlayerLevel,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize game")
	}

	// 注册游戏到 ebitenmobile
	mobile.SetGame(gameApp)
}

// Suspend 由宿主在 onPause / applicationDidEnterBackground 中调用
// 把排队的画像和模式记录写入磁盘，之后进程可能被系统回收
func Suspend() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		logrus.WithError(err).Warn("failed to flush storage on suspend")
		return err
	}
	return nil
}

// Shutdown 由宿主在 onDestroy 中调用：结束本局并关闭存储
func Shutdown() error {
	session.End(components.GameStats{})
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	return store.Close(ctx)
}

// Dummy 是一个空导出函数，确保包被 ebitenmobile 正确识别
func Dummy() {}
