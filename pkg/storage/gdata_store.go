package storage

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
)

// DefaultGdataObject gdata 中存放所有记录的对象名
const DefaultGdataObject = "rallyx"

// GdataStore 基于 gdata 的跨平台本地存储
// 每个键对应 object 下的一个 property
type GdataStore struct {
	manager *gdata.Manager
	object  string
}

// OpenGdataStore 打开应用的 gdata 存储
//
// 参数：
//   - appName: 应用名，决定数据目录
//
// 返回：
//   - *GdataStore: 存储实例
//   - error: gdata 初始化失败（调用方应降级为内存存储）
func OpenGdataStore(appName string) (*GdataStore, error) {
	manager, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gdata for %s: %w", appName, err)
	}
	return NewGdataStore(manager, DefaultGdataObject), nil
}

// NewGdataStore 使用已有的 gdata Manager 创建存储
func NewGdataStore(manager *gdata.Manager, object string) *GdataStore {
	if object == "" {
		object = DefaultGdataObject
	}
	return &GdataStore{manager: manager, object: object}
}

// Get 实现 Store
func (s *GdataStore) Get(key string) ([]byte, error) {
	if !s.manager.ObjectPropExists(s.object, key) {
		return nil, ErrNotFound
	}
	data, err := s.manager.LoadObjectProp(s.object, key)
	if err != nil {
		return nil, fmt.Errorf("gdata load %s/%s: %w", s.object, key, err)
	}
	return data, nil
}

// Set 实现 Store
func (s *GdataStore) Set(key string, value []byte) error {
	if err := s.manager.SaveObjectProp(s.object, key, value); err != nil {
		return fmt.Errorf("gdata save %s/%s: %w", s.object, key, err)
	}
	return nil
}
