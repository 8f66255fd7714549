package app

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/LENAX/lazyflow/internal/storage"
	"github.com/LENAX/lazyflow/pkg/config"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/events"
	"github.com/LENAX/lazyflow/pkg/frame"
	"github.com/LENAX/lazyflow/pkg/metrics"
	"github.com/LENAX/lazyflow/pkg/plugin"
	pkgstorage "github.com/LENAX/lazyflow/pkg/storage"
)

// Runtime 运行期共享组件（内部使用）
// 持有运行历史、事件总线与指标收集器，所有 Pipeline 通过 PipelineOptions 注册到这些监听器
type Runtime struct {
	Config  *config.EngineConfig
	Frames  *frame.Engine
	History pkgstorage.RunRepository // storage.history 关闭时为 nil
	Bus     *events.Bus
	Metrics *metrics.Collector
	Plugins plugin.PluginManager // 未启用任何通知时为 nil

	factory storage.DatabaseFactory
}

// NewRuntime 按配置创建运行期组件
// withRuntimeMetrics 为 true 时额外注册 Go 运行时与进程指标
func NewRuntime(cfg *config.EngineConfig, withRuntimeMetrics bool) (*Runtime, error) {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	rt := &Runtime{
		Config:  cfg,
		Frames:  frame.NewEngine(nil),
		Bus:     events.NewBus(cfg.IsDebug()),
		Metrics: metrics.NewCollector(withRuntimeMetrics),
	}

	if cfg.Lazyflow.Storage.History {
		db := cfg.Lazyflow.Storage.Database
		factory, err := storage.NewDatabaseFactory(db.Type, db.DSN, storage.PoolConfig{
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
			ConnMaxIdleTime: db.ConnMaxIdleTime,
		})
		if err != nil {
			rt.Bus.Close()
			return nil, fmt.Errorf("打开运行历史失败: %w", err)
		}
		rt.factory = factory
		rt.History = factory.RunRepository()
		log.Printf("✅ [运行时] 运行历史已启用: type=%s", db.Type)
	}

	if err := rt.setupNotifications(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// setupNotifications 按配置注册邮件插件并绑定事件
func (rt *Runtime) setupNotifications() error {
	email := rt.Config.Lazyflow.Notifications.Email
	if !email.Enabled {
		return nil
	}
	pm := plugin.NewPluginManager()
	p := plugin.NewEmailPlugin()
	err := pm.RegisterWithInit(p, map[string]string{
		"smtp_host": email.SMTPHost,
		"smtp_port": strconv.Itoa(email.SMTPPort),
		"username":  email.Username,
		"password":  email.Password,
		"from":      email.From,
		"to":        strings.Join(email.To, ","),
	})
	if err != nil {
		return err
	}
	for _, ev := range email.On {
		if err := pm.Bind(plugin.PluginBinding{PluginName: p.Name(), Event: plugin.TriggerEvent(ev)}); err != nil {
			return err
		}
	}
	rt.Plugins = pm
	log.Printf("✅ [运行时] 邮件通知已启用: On=%v", email.On)
	return nil
}

// PipelineOptions 构建 Pipeline 时使用的公共选项
func (rt *Runtime) PipelineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithWorkers(rt.Config.GetWorkerConcurrency()),
		engine.WithDebug(rt.Config.IsDebug()),
		engine.WithListener(rt.Bus),
		engine.WithListener(rt.Metrics),
	}
	if rt.History != nil {
		opts = append(opts, engine.WithListener(pkgstorage.NewRecorder(rt.History)))
	}
	if rt.Plugins != nil {
		opts = append(opts, engine.WithListener(plugin.NewNotifier(rt.Plugins, rt.Config.Lazyflow.Notifications.Timeout)))
	}
	return opts
}

// Build 按定义构建 Pipeline 并挂上公共监听器
func (rt *Runtime) Build(def *config.PipelineDefinition) (*engine.Pipeline, error) {
	return config.BuildPipeline(def, rt.Frames, rt.PipelineOptions()...)
}

// Close 关闭事件总线与数据库连接
func (rt *Runtime) Close() error {
	var errs []error
	if err := rt.Bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if rt.factory != nil {
		if err := rt.factory.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
