package container

import (
	"slices"
	"sync"
)

// ObserverSet 观察者集合
// 功能：按注册顺序保存观察者，支持并发注册、注销与通知
// 说明：通知时先复制当前列表（snapshot-on-notify），回调在集合锁之外执行，
// 因此回调中注销自身是安全的；同一集合的通知与注册回放相互串行，
// 回调中不得向同一集合注册新的观察者
type ObserverSet[T comparable] struct {
	mtx     sync.Mutex // 保护items
	deliver sync.Mutex // 串行化通知与注册回放
	items   []T
}

// NewObserverSet 创建观察者集合
func NewObserverSet[T comparable]() *ObserverSet[T] {
	return &ObserverSet[T]{}
}

// Add 注册观察者
// 返回：重复注册时返回false
func (s *ObserverSet[T]) Add(o T) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if slices.Contains(s.items, o) {
		return false
	}
	s.items = append(s.items, o)
	return true
}

// AddAndReplay 注册观察者并立即回放当前状态
// 功能：注册成功后在通知锁内调用replay，保证回放先于之后的任何实时通知
// 参数：o-观察者，replay-回放函数（为nil时不回放）
// 返回：重复注册时返回false且不回放
func (s *ObserverSet[T]) AddAndReplay(o T, replay func(T)) bool {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if !s.Add(o) {
		return false
	}
	if replay != nil {
		replay(o)
	}
	return true
}

// Remove 注销观察者
// 返回：观察者未注册时返回false
func (s *ObserverSet[T]) Remove(o T) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	i := slices.Index(s.items, o)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Clear 注销全部观察者
func (s *ObserverSet[T]) Clear() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.items = nil
}

// Len 获取观察者数量
func (s *ObserverSet[T]) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.items)
}

// Snapshot 获取当前观察者列表的副本
func (s *ObserverSet[T]) Snapshot() []T {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return slices.Clone(s.items)
}

// Notify 按注册顺序通知所有观察者
func (s *ObserverSet[T]) Notify(f func(T)) {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	for _, o := range s.Snapshot() {
		f(o)
	}
}
