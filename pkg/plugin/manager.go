package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// PluginManager 管理通知插件以及插件与运行事件的绑定（对外导出）
type PluginManager interface {
	// Register 注册插件，名称不可重复
	Register(plugin Plugin) error
	// RegisterWithInit 注册插件并用 params 初始化，初始化失败时撤销注册
	RegisterWithInit(plugin Plugin, params map[string]string) error
	// Bind 把已注册的插件绑定到某个运行事件
	Bind(binding PluginBinding) error
	// Trigger 把一次运行事件分发给绑定的插件
	Trigger(ctx context.Context, event TriggerEvent, data PluginData) error
	// GetPlugin 按名称查找插件
	GetPlugin(name string) (Plugin, bool)
	// ListPlugins 已注册插件名称（按名称排序）
	ListPlugins() []string
	// Unregister 移除插件及其全部绑定
	Unregister(name string) error
}

type pluginManagerImpl struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	routes  map[TriggerEvent][]PluginBinding // 事件 -> 绑定，保持绑定顺序
}

// NewPluginManager 创建插件管理器（对外导出）
func NewPluginManager() PluginManager {
	return &pluginManagerImpl{
		plugins: make(map[string]Plugin),
		routes:  make(map[TriggerEvent][]PluginBinding),
	}
}

func (pm *pluginManagerImpl) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("插件不能为空")
	}
	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("插件名称不能为空")
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	if _, exists := pm.plugins[name]; exists {
		return fmt.Errorf("插件 %s 已注册", name)
	}
	pm.plugins[name] = plugin
	return nil
}

func (pm *pluginManagerImpl) RegisterWithInit(plugin Plugin, params map[string]string) error {
	if err := pm.Register(plugin); err != nil {
		return err
	}
	if err := plugin.Init(params); err != nil {
		pm.mu.Lock()
		delete(pm.plugins, plugin.Name())
		pm.mu.Unlock()
		return fmt.Errorf("插件 %s 初始化失败: %w", plugin.Name(), err)
	}
	return nil
}

// Bind 只接受 AllTriggerEvents 中的事件
func (pm *pluginManagerImpl) Bind(binding PluginBinding) error {
	if binding.PluginName == "" {
		return fmt.Errorf("插件名称不能为空")
	}
	if !slices.Contains(AllTriggerEvents, binding.Event) {
		return fmt.Errorf("未知的运行事件: %q", binding.Event)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	if _, exists := pm.plugins[binding.PluginName]; !exists {
		return fmt.Errorf("插件 %s 未注册", binding.PluginName)
	}
	pm.routes[binding.Event] = append(pm.routes[binding.Event], binding)
	return nil
}

// route 一次绑定及其插件
type route struct {
	binding PluginBinding
	plugin  Plugin
}

// Trigger 按绑定顺序同步调用插件，失败的插件不影响后续插件
// ctx 结束后剩余插件不再调用
func (pm *pluginManagerImpl) Trigger(ctx context.Context, event TriggerEvent, data PluginData) error {
	pm.mu.RLock()
	routes := make([]route, 0, len(pm.routes[event]))
	for _, b := range pm.routes[event] {
		if p, ok := pm.plugins[b.PluginName]; ok {
			routes = append(routes, route{binding: b, plugin: p})
		}
	}
	pm.mu.RUnlock()

	data.Event = event
	var errs []error
	for _, r := range routes {
		if r.binding.Condition != nil && !r.binding.Condition(data) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("事件 %s 未通知插件 %s: %w", event, r.binding.PluginName, err))
			break
		}
		if err := r.plugin.Execute(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("插件 %s 处理 %s 失败: %w", r.binding.PluginName, event, err))
		}
	}
	return errors.Join(errs...)
}

func (pm *pluginManagerImpl) GetPlugin(name string) (Plugin, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.plugins[name]
	return p, ok
}

func (pm *pluginManagerImpl) ListPlugins() []string {
	pm.mu.RLock()
	names := make([]string, 0, len(pm.plugins))
	for name := range pm.plugins {
		names = append(names, name)
	}
	pm.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (pm *pluginManagerImpl) Unregister(name string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if _, exists := pm.plugins[name]; !exists {
		return fmt.Errorf("插件 %s 未注册", name)
	}
	delete(pm.plugins, name)
	for event, bindings := range pm.routes {
		pm.routes[event] = slices.DeleteFunc(bindings, func(b PluginBinding) bool {
			return b.PluginName == name
		})
	}
	return nil
}
