// Package utils 提供通用工具函数
package utils

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// KeyBinding 按键与命令的映射
type KeyBinding struct {
	Key     ebiten.Key
	Command string
}

// ResolveCommands 按绑定顺序返回被按下的按键对应的命令
// pressed 判断某个键在本帧是否触发
func ResolveCommands(bindings []KeyBinding, pressed func(ebiten.Key) bool) []string {
	var commands []string
	for _, b := range bindings {
		if pressed(b.Key) {
			commands = append(commands, b.Command)
		}
	}
	return commands
}

// JustPressedCommands 返回本帧刚按下的按键对应的命令
func JustPressedCommands(bindings []KeyBinding) []string {
	return ResolveCommands(bindings, inpututil.IsKeyJustPressed)
}

// IsJustTouchedOrClicked 检查是否刚刚发生点击或触摸
// 返回是否点击以及点击位置
func IsJustTouchedOrClicked() (bool, int, int) {
	// 检查触摸
	touchIDs := inpututil.AppendJustPressedTouchIDs(nil)
	if len(touchIDs) > 0 {
		x, y := ebiten.TouchPosition(touchIDs[0])
		return true, x, y
	}

	// 检查鼠标
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		return true, x, y
	}

	return false, 0, 0
}
