package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/lazyflow/pkg/api/handler"
	"github.com/LENAX/lazyflow/pkg/api/middleware"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/events"
	"github.com/LENAX/lazyflow/pkg/metrics"
	"github.com/LENAX/lazyflow/pkg/storage"
)

// Dependencies 路由依赖，除 Registry 外均可为 nil
type Dependencies struct {
	Registry   *engine.Registry
	Scheduler  *engine.CronScheduler
	History    storage.RunRepository
	Bus        *events.Bus
	Metrics    *metrics.Collector
	RunTimeout time.Duration
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies, version string) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	// 创建handlers
	if deps.Registry == nil {
		deps.Registry = engine.NewRegistry()
	}
	pipelineHandler := handler.NewPipelineHandler(deps.Registry, deps.Scheduler, deps.RunTimeout)
	runHandler := handler.NewRunHandler(deps.History)
	eventHandler := handler.NewEventHandler(deps.Bus)
	healthHandler := handler.NewHealthHandler(version)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		// Pipeline路由
		pipelines := v1.Group("/pipelines")
		{
			pipelines.GET("", pipelineHandler.List)
			pipelines.GET("/:name", pipelineHandler.Get)
			pipelines.POST("/:name/runs", pipelineHandler.Run)
		}

		// 运行历史路由
		runs := v1.Group("/runs")
		{
			runs.GET("", runHandler.List)
			runs.GET("/:id", runHandler.Get)
			runs.DELETE("/:id", runHandler.Delete)
		}

		v1.GET("/events", eventHandler.Stream)
	}

	return router
}
