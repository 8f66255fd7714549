package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/lazyflow/internal/app"
	"github.com/LENAX/lazyflow/pkg/api"
	"github.com/LENAX/lazyflow/pkg/cli/output"
)

var (
	serveHost      string
	servePort      int
	servePipelines string
)

// serveCmd 启动HTTP API服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP API服务",
	Long: `加载Pipeline定义目录，启动定时调度器和HTTP API服务。

示例：
  # 使用配置文件中的设置
  lazyflow serve --config ./configs/engine.yaml

  # 指定端口与定义目录
  lazyflow serve --port 9090 --pipelines ./pipelines`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Lazyflow.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Lazyflow.Server.Port = servePort
		}

		a, err := app.New(cfg, servePipelines, Version)
		if err != nil {
			output.Error("初始化服务失败: %v", err)
			return err
		}

		// 在goroutine中启动服务器
		errCh := make(chan error, 1)
		go func() {
			errCh <- a.Start()
		}()

		output.Success("Lazyflow Server started on %s（%d 个Pipeline，%d 个定时任务）",
			a.Addr(), len(a.Registry.List()), len(a.Scheduler.Registered()))

		// 等待中断信号或服务异常退出
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		var startErr error
		select {
		case <-quit:
		case startErr = <-errCh:
			if startErr != nil {
				log.Printf("API服务器错误: %v", startErr)
			}
		}

		output.Info("正在关闭服务...")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), api.DefaultServerConfig().WriteTimeout)
		defer cancel()

		if err := a.Shutdown(shutdownCtx); err != nil {
			output.Error("关闭服务失败: %v", err)
			return err
		}
		output.Success("服务已停止")
		return startErr
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "0.0.0.0", "监听地址，覆盖配置中的 server.host")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "监听端口，覆盖配置中的 server.port")
	serveCmd.Flags().StringVar(&servePipelines, "pipelines", "", "Pipeline定义目录，默认使用配置中的 pipelines.dir")
}
