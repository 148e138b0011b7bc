//go:build !android

package storage

// EnsureDataDir 非 Android 平台由 gdata 自行创建目录，返回空路径
func EnsureDataDir() (string, error) {
	return "", nil
}
