package storage

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// AsyncStore 将写入交给后台协程，保证游戏 tick 不被 I/O 阻塞
//
// 同一键的多次写入只保留最后一次；Get 优先返回尚未落盘的数据。
// 读取仍然是同步的，只在加载画像时调用。
type AsyncStore struct {
	inner Store
	log   *logrus.Entry

	mu       sync.Mutex
	pending  map[string][]byte
	order    []string
	inflight map[string][]byte // 正在写入底层存储的批次
	closed   bool

	flushMu sync.Mutex // 保证批次按顺序写入

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewAsyncStore 包装一个同步存储并启动写协程
func NewAsyncStore(inner Store) *AsyncStore {
	s := &AsyncStore{
		inner:   inner,
		log:     logrus.WithField("component", "AsyncStore"),
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Get 实现 Store
func (s *AsyncStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	v, ok := s.pending[key]
	if !ok {
		v, ok = s.inflight[key]
	}
	if ok {
		out := make([]byte, len(v))
		copy(out, v)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()
	return s.inner.Get(key)
}

// Set 实现 Store，只入队不等待
// Close 之后的写入直接同步落盘
func (s *AsyncStore) Set(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	if s.closed {
		// 丢弃同键的排队旧值，避免最后一次刷新覆盖新值
		delete(s.pending, key)
		s.mu.Unlock()
		return s.inner.Set(key, v)
	}
	if _, queued := s.pending[key]; !queued {
		s.order = append(s.order, key)
	}
	s.pending[key] = v
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *AsyncStore) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.wake:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

// flush 将当前排队的写入依次写入底层存储
func (s *AsyncStore) flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	order := s.order
	s.pending = make(map[string][]byte)
	s.order = nil
	s.inflight = batch
	s.mu.Unlock()

	for _, key := range order {
		value, ok := batch[key]
		if !ok {
			continue
		}
		if err := s.inner.Set(key, value); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("async write failed, record dropped")
		}
	}

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
}

// Flush 等待当前排队的写入落盘，不停止写协程
// 移动端切到后台时调用，进程随后可能被系统直接杀掉
func (s *AsyncStore) Flush(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.flush()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 停止写协程并等待剩余写入完成
func (s *AsyncStore) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
