package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/lazyflow/internal/app"
	"github.com/LENAX/lazyflow/pkg/cli/output"
	"github.com/LENAX/lazyflow/pkg/config"
	"github.com/LENAX/lazyflow/pkg/core/engine"
)

// scheduleCmd 按Cron定时运行
var scheduleCmd = &cobra.Command{
	Use:   "schedule <dir|pipeline.yaml>...",
	Short: "按定义中的Cron表达式定时运行",
	Long: `加载目录或文件中的Pipeline定义，将带 cron 字段的定义注册到定时调度器，
直到收到 SIGINT/SIGTERM。Cron 表达式为6段（含秒），也支持 @every 1h 等描述符。

示例：
  lazyflow schedule ./pipelines`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		defs, err := loadDefinitions(args)
		if err != nil {
			output.Error("加载Pipeline定义失败: %v", err)
			return err
		}

		rt, err := app.NewRuntime(cfg, false)
		if err != nil {
			output.Error("初始化失败: %v", err)
			return err
		}
		defer rt.Close()

		scheduler := engine.NewCronScheduler(func(report *engine.RunReport, err error) {
			if report == nil {
				output.Error("定时运行失败: %v", err)
				return
			}
			if err != nil {
				output.Error("%s 运行失败（RunID=%s）: %v", report.Pipeline, report.RunID, err)
				return
			}
			output.Success("%s 运行完成（RunID=%s，耗时 %s）",
				report.Pipeline, report.RunID, output.FormatDuration(report.Duration))
		})

		for _, def := range defs {
			if def.Cron == "" {
				output.Warning("Pipeline %s 未设置 cron，跳过", def.Name)
				continue
			}
			p, err := rt.Build(def)
			if err != nil {
				output.Error("构建Pipeline失败: %v", err)
				return err
			}
			if err := scheduler.Register(p, def.Cron); err != nil {
				output.Error("注册失败: %v", err)
				return err
			}
		}
		if len(scheduler.Registered()) == 0 {
			output.Warning("没有可调度的Pipeline")
			return nil
		}

		scheduler.Start()
		for _, name := range scheduler.Registered() {
			if next, err := scheduler.Next(name); err == nil {
				output.Info("%s 下次运行: %s", name, output.FormatTime(next))
			}
		}

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		output.Info("正在停止定时调度器，等待进行中的运行结束...")
		scheduler.Stop()
		output.Success("定时调度器已停止")
		return nil
	},
}

// loadDefinitions 参数可以是目录或单个文件
func loadDefinitions(paths []string) ([]*config.PipelineDefinition, error) {
	var defs []*config.PipelineDefinition
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			dirDefs, err := config.LoadPipelineDir(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, dirDefs...)
			continue
		}
		def, err := config.LoadPipelineFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
