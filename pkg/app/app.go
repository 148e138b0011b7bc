// Package app 提供游戏应用的核心包装器
//
// 该包把会话驱动逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/game"
	"github.com/gonewx/rallyx/pkg/utils"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
)

// 逻辑屏幕尺寸
const (
	ScreenWidth  = 800
	ScreenHeight = 600
)

// frameMs 固定 60 TPS 下每帧的毫秒数
const frameMs = 1000.0 / 60.0

// bannerMs 里程碑和事件横幅显示时长
const bannerMs = 2000.0

// 键盘命令
const (
	cmdFlag       = "flag"
	cmdAvoid      = "avoid"
	cmdPowerup    = "powerup"
	cmdNearMiss   = "nearMiss"
	cmdTurn       = "turn"
	cmdCrashEnemy = "crashEnemy"
	cmdCrashRock  = "crashRock"
	cmdOutOfFuel  = "outOfFuel"
	cmdShield     = "shield"
	cmdComplete   = "complete"
	cmdPause      = "pause"
	cmdRestart    = "restart"
	cmdQuit       = "quit"
)

var keyBindings = []utils.KeyBinding{
	{Key: ebiten.KeyF, Command: cmdFlag},
	{Key: ebiten.KeyA, Command: cmdAvoid},
	{Key: ebiten.KeyU, Command: cmdPowerup},
	{Key: ebiten.KeyN, Command: cmdNearMiss},
	{Key: ebiten.KeyT, Command: cmdTurn},
	{Key: ebiten.KeyX, Command: cmdCrashEnemy},
	{Key: ebiten.KeyK, Command: cmdCrashRock},
	{Key: ebiten.KeyO, Command: cmdOutOfFuel},
	{Key: ebiten.KeyS, Command: cmdShield},
	{Key: ebiten.KeyL, Command: cmdComplete},
	{Key: ebiten.KeyP, Command: cmdPause},
	{Key: ebiten.KeyR, Command: cmdRestart},
	{Key: ebiten.KeyEscape, Command: cmdQuit},
}

// Config 定义应用启动配置
type Config struct {
	// Mode 开局模式，未解锁时会话会回退到 classic
	Mode components.GameMode
	// PlayerLevel 玩家等级，决定模式解锁
	PlayerLevel int
	// FlagsPerLevel 每关旗帜数
	FlagsPerLevel int
}

type banner struct {
	text        string
	remainingMs float64
}

// App 是游戏应用的核心包装器，实现 ebiten.Game 接口
//
// 没有真正的赛道渲染：键盘输入模拟游戏事件，
// App 汇总 GameStats 喂给会话，并把会话快照画成 HUD。
type App struct {
	session *game.Session
	cfg     Config
	log     *logrus.Entry

	stats      components.GameStats
	paused     bool
	lastTick   game.TickResult
	banners    []banner
	levelDeath bool

	pendingWindowSizeReset   bool // 延迟设置窗口大小标志
	windowSizeResetCountdown int  // 延迟帧数
}

// NewApp 创建游戏应用并开始会话
//
// 调用此函数前，会话必须已由 game.BuildSession 组装好。
func NewApp(session *game.Session, cfg Config) (*App, error) {
	if cfg.PlayerLevel <= 0 {
		cfg.PlayerLevel = 1
	}
	if cfg.FlagsPerLevel <= 0 {
		cfg.FlagsPerLevel = 10
	}
	if cfg.Mode == "" {
		cfg.Mode = components.ModeClassic
	}

	a := &App{
		session: session,
		cfg:     cfg,
		log:     logrus.WithField("component", "App"),
	}
	if err := a.restart(); err != nil {
		return nil, err
	}
	return a, nil
}

// restart 开始新的一局
func (a *App) restart() error {
	mode, err := a.session.Start(a.cfg.Mode, a.cfg.PlayerLevel)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	a.stats = components.GameStats{
		Health:         100,
		FlagsRemaining: a.cfg.FlagsPerLevel,
	}
	a.paused = false
	a.banners = nil
	a.levelDeath = false
	a.lastTick = game.TickResult{}
	a.log.WithField("mode", mode).Info("game started")
	return nil
}

// Update 更新游戏逻辑
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	// 延迟设置窗口大小（退出全屏后需要等待几帧才能正确设置）
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
			a.pendingWindowSizeReset = false
		}
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		if ebiten.IsFullscreen() {
			ebiten.SetFullscreen(false)
			if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
				ebiten.RestoreWindow()
			}
			a.pendingWindowSizeReset = true
			a.windowSizeResetCountdown = 3
		} else {
			ebiten.SetFullscreen(true)
		}
	}

	commands := utils.JustPressedCommands(keyBindings)
	// 触屏：点击收集旗帜，结束后点击重开
	if tapped, _, _ := utils.IsJustTouchedOrClicked(); tapped {
		if a.session.Snapshot().Ended {
			commands = append(commands, cmdRestart)
		} else {
			commands = append(commands, cmdFlag)
		}
	}

	for _, cmd := range commands {
		if err := a.handleCommand(cmd); err != nil {
			return err
		}
	}
	a.step(frameMs)
	return nil
}

// handleCommand 执行一个输入命令
// 返回 ebiten.Termination 表示退出游戏
func (a *App) handleCommand(cmd string) error {
	switch cmd {
	case cmdPause:
		a.paused = !a.paused
		a.session.SetPaused(a.paused)
		return nil
	case cmdRestart:
		if a.session.Snapshot().Ended {
			return a.restart()
		}
		return nil
	case cmdQuit:
		a.session.End(a.stats)
		return ebiten.Termination
	case cmdShield:
		a.stats.HasShield = !a.stats.HasShield
		return nil
	}

	if a.paused {
		return nil
	}

	switch cmd {
	case cmdFlag:
		a.registerAction(components.ActionFlagCollected)
		a.stats.FlagsCollected++
		if a.stats.FlagsRemaining > 0 {
			a.stats.FlagsRemaining--
		}
		if a.stats.FlagsRemaining == 0 {
			a.completeLevel()
		}
	case cmdAvoid:
		a.registerAction(components.ActionEnemyAvoided)
		a.stats.EnemiesAvoided++
	case cmdPowerup:
		a.registerAction(components.ActionPowerupCollected)
		a.stats.PowerupsCollected++
	case cmdNearMiss:
		a.registerAction(components.ActionNearMiss)
		a.stats.EnemiesAvoided++
		a.stats.EnemiesNearby = min(a.stats.EnemiesNearby+1, 5)
	case cmdTurn:
		a.registerAction(components.ActionPerfectTurn)
	case cmdCrashEnemy:
		a.die(components.DeathEnemy)
	case cmdCrashRock:
		a.die(components.DeathRock)
	case cmdOutOfFuel:
		a.die(components.DeathFuel)
	case cmdComplete:
		a.completeLevel()
	}
	return nil
}

func (a *App) registerAction(action components.ActionType) {
	outcome, err := a.session.RegisterAction(action)
	if err != nil {
		a.log.WithError(err).Debug("action ignored")
		return
	}
	a.stats.Combo = outcome.Combo.ChainCount
	a.stats.Score = outcome.Score
	if outcome.Combo.Milestone != nil {
		a.pushBanner(fmt.Sprintf("%s +%d", outcome.Combo.Milestone.Name, outcome.Combo.Milestone.Bonus))
	}
	if outcome.Combo.FeverActivated {
		a.pushBanner("FEVER!")
	}
}

func (a *App) die(cause components.DeathCause) {
	result, err := a.session.PlayerDied(cause, a.stats)
	if err != nil {
		a.log.WithError(err).Debug("death ignored")
		return
	}
	a.levelDeath = true
	a.stats.Combo = 0
	a.stats.Health = 100
	a.stats.EnemiesNearby = 0
	switch {
	case result.GameOver:
		a.pushBanner("GAME OVER")
	case result.Outcome.RespawnScheduled:
		a.pushBanner(fmt.Sprintf("-%ds", int(result.Outcome.PenaltyTimeMs/1000)))
	default:
		a.pushBanner(fmt.Sprintf("%d lives left", result.LivesLeft))
	}
}

func (a *App) completeLevel() {
	bonus, err := a.session.LevelComplete(a.stats, !a.levelDeath)
	if err != nil {
		a.log.WithError(err).Debug("level complete ignored")
		return
	}
	if bonus > 0 {
		a.pushBanner(fmt.Sprintf("TIME BONUS +%d", bonus))
	} else {
		a.pushBanner("LEVEL CLEAR")
	}
	// 下一关：旗帜重置，统计继续累计
	a.stats.FlagsRemaining = a.cfg.FlagsPerLevel
	a.stats.LevelCompleted = false
	a.levelDeath = false
}

// step 推进一帧
func (a *App) step(deltaMs float64) {
	a.tickBanners(deltaMs)
	if a.paused {
		return
	}

	snap := a.session.Snapshot()
	if snap.Started && !snap.Ended {
		a.stats.SurvivalTimeMs += deltaMs
		// 燃料随时间缓慢消耗
		a.stats.Health = max(0, a.stats.Health-deltaMs/1000)
		a.stats.Score = snap.Score
	}

	result := a.session.Tick(deltaMs, a.stats)
	a.lastTick = result
	if result.Mode.InjectedEvent != nil {
		a.pushBanner(strings.ToUpper(string(*result.Mode.InjectedEvent)))
	}
	if result.ComboBreak != nil {
		a.stats.Combo = 0
	}
	if result.GameOver && result.Reason == components.ReasonTimeUp {
		a.pushBanner("TIME UP")
	}

	if a.stats.Health == 0 && !result.GameOver {
		a.die(components.DeathFuel)
	}
}

func (a *App) pushBanner(text string) {
	a.banners = append(a.banners, banner{text: text, remainingMs: bannerMs})
}

func (a *App) tickBanners(deltaMs float64) {
	kept := a.banners[:0]
	for _, b := range a.banners {
		b.remainingMs -= deltaMs
		if b.remainingMs > 0 {
			kept = append(kept, b)
		}
	}
	a.banners = kept
}

// Draw 绘制游戏画面
// 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 24, G: 48, B: 32, A: 255})
	ebitenutil.DebugPrint(screen, strings.Join(a.hudLines(), "\n"))
}

// hudLines 生成 HUD 文本
func (a *App) hudLines() []string {
	snap := a.session.Snapshot()
	lines := []string{
		fmt.Sprintf("MODE %s   SCORE %d   LIVES %d", snap.ModeUI.DisplayName, snap.Score, snap.Lives),
	}
	if snap.ModeUI.HasTimer {
		lines = append(lines, "TIME "+snap.ModeUI.TimerText)
	}
	if snap.Combo.Active {
		combo := fmt.Sprintf("COMBO x%d (%.1fx)", snap.Combo.ChainCount, snap.Combo.Multiplier)
		if snap.Combo.FeverActive {
			combo += " FEVER"
		}
		lines = append(lines, combo)
	}
	if snap.ModeUI.DifficultyMultiplier > 1 {
		lines = append(lines, fmt.Sprintf("PURSUIT %.2fx", snap.ModeUI.DifficultyMultiplier))
	}
	for _, ev := range snap.ModeUI.ActiveEvents {
		lines = append(lines, fmt.Sprintf("EVENT %s %.0fs", ev.Name, ev.RemainingSeconds))
	}
	lines = append(lines,
		fmt.Sprintf("FUEL %.0f   FLAGS LEFT %d   SHIELD %v", a.stats.Health, a.stats.FlagsRemaining, a.stats.HasShield),
		fmt.Sprintf("AI difficulty %.2f  tension %.0f  flow %.0f  [%s/%s]",
			snap.Difficulty.CurrentDifficultyMultiplier, snap.Difficulty.TensionLevel, snap.Difficulty.FlowState,
			snap.SkillLevel, snap.Playstyle),
		fmt.Sprintf("enemy speed %.2f  count %.2f  powerups %.2f",
			snap.Effective.EnemySpeed, snap.Effective.EnemyCount, snap.Effective.PowerupRate),
	)
	for _, b := range a.banners {
		lines = append(lines, ">> "+b.text)
	}
	switch {
	case snap.Ended:
		lines = append(lines, fmt.Sprintf("GAME OVER (%s)  press R to restart", snap.EndReason))
		lines = append(lines, a.session.Recommendations()...)
	case a.paused:
		lines = append(lines, "PAUSED")
	}
	lines = append(lines, "", a.controlsHint())
	return lines
}

func (a *App) controlsHint() string {
	if utils.IsMobile() {
		return "tap: flag"
	}
	return "F flag  A avoid  U powerup  N near miss  T turn  X/K/O crash  S shield  L clear  P pause  R restart  Esc quit"
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 用于控制全屏时的缩放和 letterbox 颜色
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回游戏的逻辑屏幕尺寸
// 此尺寸独立于实际窗口大小，Ebitengine 会自动处理缩放
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// Session 返回会话
// 用于在游戏关闭时结束会话和挂载调试服务
func (a *App) Session() *game.Session {
	return a.session
}
