// Package storage 提供 AIManager 和 GameModeManager 使用的键值持久化
//
// 所有后端只处理字节；记录统一编码为 YAML（JSON 负载也能被正确解码）。
// 读写失败由调用方降级为默认值，不会中断游戏。
package storage

import (
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("storage: key not found")

// Store 同步键值存储
type Store interface {
	// Get 读取键值，不存在时返回 ErrNotFound
	Get(key string) ([]byte, error)
	// Set 写入键值
	Set(key string, value []byte) error
}

// LoadYAML 读取并解码一条记录
//
// 返回：
//   - bool: 记录是否存在
//   - error: 读取或解码失败
func LoadYAML(store Store, key string, out interface{}) (bool, error) {
	if store == nil {
		return false, nil
	}
	data, err := store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SaveYAML 编码并写入一条记录
// store 为 nil 时返回 nil（降级模式，不报错）
func SaveYAML(store Store, key string, v interface{}) error {
	if store == nil {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := store.Set(key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// MemoryStore 进程内存储，用于测试和无持久化运行
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get 实现 Store
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set 实现 Store
func (m *MemoryStore) Set(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

// Len 返回键数量
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
