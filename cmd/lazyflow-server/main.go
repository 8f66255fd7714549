package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LENAX/lazyflow/internal/app"
	"github.com/LENAX/lazyflow/pkg/api"
	"github.com/LENAX/lazyflow/pkg/config"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "./configs/engine.yaml", "引擎配置文件路径")
	envFile := flag.String("env", ".env", "环境变量文件")
	pipelineDir := flag.String("pipelines", "", "Pipeline定义目录，默认使用配置中的 pipelines.dir")
	host := flag.String("host", "", "监听地址，覆盖配置")
	port := flag.Int("port", 0, "监听端口，覆盖配置")
	flag.Parse()

	log.Printf("Lazyflow Server v%s (commit=%s, built=%s)", Version, GitCommit, BuildTime)
	log.Printf("配置文件: %s", *configPath)

	// 1. 加载配置
	config.LoadEnv(*envFile)
	cfg, err := config.LoadEngineConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *host != "" {
		cfg.Lazyflow.Server.Host = *host
	}
	if *port > 0 {
		cfg.Lazyflow.Server.Port = *port
	}

	// 2. 装配服务
	a, err := app.New(cfg, *pipelineDir, Version)
	if err != nil {
		log.Fatalf("创建服务失败: %v", err)
	}

	// 3. 在goroutine中启动API服务器
	go func() {
		if err := a.Start(); err != nil {
			log.Printf("API服务器错误: %v", err)
		}
	}()

	log.Printf("✅ Lazyflow Server started on %s", a.Addr())

	// 4. 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 5. 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.DefaultServerConfig().WriteTimeout)
	defer cancel()

	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭服务失败: %v", err)
	}
	log.Println("✅ 服务已停止")
}
