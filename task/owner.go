package task

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/tripcore/utils/config"
	"github.com/tsinghua-fib-lab/tripcore/utils/container"
)

// NavigationObserver 导航上下文挂载与卸载
type NavigationObserver interface {
	OnAttached(n *Navigation)
	OnDetached(n *Navigation)
}

type navigationObserverFuncs struct {
	attached func(n *Navigation)
	detached func(n *Navigation)
}

func (o *navigationObserverFuncs) OnAttached(n *Navigation) {
	if o.attached != nil {
		o.attached(n)
	}
}

func (o *navigationObserverFuncs) OnDetached(n *Navigation) {
	if o.detached != nil {
		o.detached(n)
	}
}

// NewNavigationObserver 以函数构造观察者，nil函数忽略对应事件
func NewNavigationObserver(attached, detached func(n *Navigation)) NavigationObserver {
	return &navigationObserverFuncs{attached: attached, detached: detached}
}

// DepsFactory 为新的导航上下文创建依赖
type DepsFactory func(rc *config.RuntimeConfig) (Deps, error)

// Owner 导航上下文的持有者
// 功能：同一时刻最多持有一个导航上下文，负责创建、销毁并通知观察者
// 说明：Setup与Destroy相互串行；观察者回调中可以调用Current
type Owner struct {
	factory DepsFactory

	mtx       sync.Mutex // 串行化Setup、Destroy与注册
	current   atomic.Pointer[Navigation]
	observers *container.ObserverSet[NavigationObserver]
}

// NewOwner 创建持有者
func NewOwner(factory DepsFactory) *Owner {
	return &Owner{
		factory:   factory,
		observers: container.NewObserverSet[NavigationObserver](),
	}
}

// Setup 以配置创建新的导航上下文，已有上下文时先销毁
// 返回：新的导航上下文，依赖创建失败时返回错误且不保留旧上下文
func (o *Owner) Setup(rc *config.RuntimeConfig) (*Navigation, error) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.destroyLocked()

	deps, err := o.factory(rc)
	if err != nil {
		return nil, fmt.Errorf("navigation deps: %w", err)
	}
	n := New(rc, deps)
	o.current.Store(n)
	o.observers.Notify(func(obs NavigationObserver) {
		obs.OnAttached(n)
	})
	return n, nil
}

// Current 当前导航上下文，未创建时为nil
func (o *Owner) Current() *Navigation {
	return o.current.Load()
}

// IsSetup 是否持有导航上下文
func (o *Owner) IsSetup() bool {
	return o.current.Load() != nil
}

// Destroy 销毁当前导航上下文，没有时无效果
func (o *Owner) Destroy() {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.destroyLocked()
}

func (o *Owner) destroyLocked() {
	n := o.current.Swap(nil)
	if n == nil {
		return
	}
	o.observers.Notify(func(obs NavigationObserver) {
		obs.OnDetached(n)
	})
	n.Close()
}

// RegisterObserver 注册观察者，已持有上下文时立即回放OnAttached
// 返回：重复注册时返回false
func (o *Owner) RegisterObserver(obs NavigationObserver) bool {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	return o.observers.AddAndReplay(obs, func(obs NavigationObserver) {
		if n := o.current.Load(); n != nil {
			obs.OnAttached(n)
		}
	})
}

// UnregisterObserver 注销观察者
func (o *Owner) UnregisterObserver(obs NavigationObserver) bool {
	return o.observers.Remove(obs)
}
