//go:build android

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// androidDataRoot Android 应用私有数据目录的根
const androidDataRoot = "/data/data"

// EnsureDataDir 在打开 gdata 前准备 Android 上的 saves 目录
// gdata 使用 /data/data/{package}/ 保存画像和模式记录，但不会创建子目录
//
// 返回：
//   - string: 应用数据目录
//   - error: 包名无法识别或目录不可写
func EnsureDataDir() (string, error) {
	pkg, err := androidPackage()
	if err != nil {
		return "", fmt.Errorf("failed to detect android package: %w", err)
	}
	root := filepath.Join(androidDataRoot, pkg)
	saves := filepath.Join(root, "saves")

	if err := os.MkdirAll(saves, 0o755); err != nil {
		return root, fmt.Errorf("failed to create %s: %w", saves, err)
	}
	tmp, err := os.CreateTemp(saves, ".rallyx-*")
	if err != nil {
		return root, fmt.Errorf("%s is not writable: %w", saves, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return root, nil
}

// androidPackage 从 /proc/self/cmdline 读出包名
func androidPackage() (string, error) {
	raw, err := os.ReadFile("/proc/self/cmdline")
	if err != nil {
		return "", err
	}
	// cmdline 以 NUL 分隔，包名是第一段
	name, _, _ := bytes.Cut(raw, []byte{0})
	name = bytes.TrimSpace(name)
	if len(name) == 0 {
		return "", errors.New("empty /proc/self/cmdline")
	}
	return string(name), nil
}
