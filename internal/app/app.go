package app

import (
	"context"
	"fmt"
	"log"

	"github.com/LENAX/lazyflow/pkg/api"
	"github.com/LENAX/lazyflow/pkg/config"
	"github.com/LENAX/lazyflow/pkg/core/engine"
)

// App 服务模式：加载定义目录、注册定时任务并提供HTTP API（内部使用）
type App struct {
	*Runtime
	Registry  *engine.Registry
	Scheduler *engine.CronScheduler
	server    *api.APIServer
}

// New 按配置装配服务，pipelineDir 为空时使用配置中的 pipelines.dir
func New(cfg *config.EngineConfig, pipelineDir, version string) (*App, error) {
	rt, err := NewRuntime(cfg, true)
	if err != nil {
		return nil, err
	}
	cfg = rt.Config
	if pipelineDir == "" {
		pipelineDir = cfg.Lazyflow.Pipelines.Dir
	}

	a := &App{
		Runtime:   rt,
		Registry:  engine.NewRegistry(),
		Scheduler: engine.NewCronScheduler(logScheduledRun),
	}
	if err := a.load(pipelineDir); err != nil {
		rt.Close()
		return nil, err
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = cfg.Lazyflow.Server.Host
	serverCfg.Port = cfg.Lazyflow.Server.Port
	a.server = api.NewAPIServer(api.Dependencies{
		Registry:   a.Registry,
		Scheduler:  a.Scheduler,
		History:    rt.History,
		Bus:        rt.Bus,
		Metrics:    rt.Metrics,
		RunTimeout: cfg.Lazyflow.Execution.RunTimeout,
	}, serverCfg, version)
	return a, nil
}

// load 加载目录下的全部定义，带 cron 的同时注册到定时调度器
func (a *App) load(dir string) error {
	defs, err := config.LoadPipelineDir(dir)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		log.Printf("⚠️ [服务] 目录 %s 下没有Pipeline定义", dir)
	}
	for _, def := range defs {
		p, err := a.Build(def)
		if err != nil {
			return err
		}
		if err := a.Registry.Register(p); err != nil {
			return err
		}
		if def.Cron != "" {
			if err := a.Scheduler.Register(p, def.Cron); err != nil {
				return err
			}
		}
		log.Printf("📦 [服务] 已加载Pipeline: Name=%s, Nodes=%d, Cron=%q", p.Name(), p.DAG().Len(), def.Cron)
	}
	return nil
}

// Addr 监听地址
func (a *App) Addr() string {
	return a.server.Addr()
}

// Start 启动定时调度器与HTTP服务，阻塞直到服务关闭
func (a *App) Start() error {
	a.Scheduler.Start()
	if err := a.server.Start(); err != nil {
		return fmt.Errorf("启动API服务失败: %w", err)
	}
	return nil
}

// Shutdown 依次关闭HTTP服务、定时调度器和运行期组件
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.Scheduler.Stop()
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func logScheduledRun(report *engine.RunReport, err error) {
	if err != nil {
		log.Printf("❌ [Cron调度器] 定时运行失败: %v", err)
		return
	}
	log.Printf("✅ [Cron调度器] 定时运行完成: Pipeline=%s, RunID=%s, Duration=%v",
		report.Pipeline, report.RunID, report.Duration)
}
