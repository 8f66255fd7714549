package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LENAX/lazyflow/internal/app"
	"github.com/LENAX/lazyflow/pkg/cli/output"
	"github.com/LENAX/lazyflow/pkg/config"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/events"
)

var (
	runTarget    string
	runWorkers   int
	runTimeout   time.Duration
	runNoHistory bool
	runQuiet     bool
)

// runCmd 本地运行Pipeline
var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "本地运行Pipeline",
	Long: `在本地进程中运行一个Pipeline定义。

示例：
  # 运行全部节点
  lazyflow run ./pipelines/cyprus.yaml

  # 只运行 save 及其祖先节点
  lazyflow run ./pipelines/cyprus.yaml --target save

  # 4个worker并行运行，最长10分钟
  lazyflow run ./pipelines/cyprus.yaml --workers 4 --timeout 10m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		if runNoHistory {
			cfg.Lazyflow.Storage.History = false
		}

		def, err := config.LoadPipelineFile(args[0])
		if err != nil {
			output.Error("加载Pipeline定义失败: %v", err)
			return err
		}
		if runWorkers > 0 {
			def.Workers = runWorkers
		}

		rt, err := app.NewRuntime(cfg, false)
		if err != nil {
			output.Error("初始化失败: %v", err)
			return err
		}
		defer rt.Close()

		p, err := rt.Build(def)
		if err != nil {
			output.Error("构建Pipeline失败: %v", err)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		timeout := runTimeout
		if timeout == 0 {
			timeout = cfg.Lazyflow.Execution.RunTimeout
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		var wg sync.WaitGroup
		if !outputJSON && !runQuiet {
			progressCtx, stopProgress := context.WithCancel(context.Background())
			defer func() {
				stopProgress()
				wg.Wait()
			}()
			nodes, err := rt.Bus.Subscribe(progressCtx, events.EventNodeFinished)
			if err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				printProgress(nodes)
			}()
			output.Info("运行Pipeline %s（workers=%d）", p.Name(), p.Workers())
		}

		var report *engine.RunReport
		if runTarget != "" {
			report, err = p.RunTarget(ctx, runTarget)
		} else {
			report, err = p.Run(ctx)
		}
		return printRunResult(report, err)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runTarget, "target", "t", "", "只运行该节点及其祖先")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "并行度，覆盖定义与配置中的设置")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "运行超时，0 使用配置中的 execution.run_timeout")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "不写入运行历史")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "不打印节点进度")
}

// printProgress 逐个打印节点完成事件，通道关闭后返回
func printProgress(nodes <-chan *events.Event) {
	for ev := range nodes {
		if ev.Node == nil {
			continue
		}
		fmt.Printf("  %s  %-20s %-10s %s\n",
			output.FormatStatus(ev.Node.Status), ev.Node.TaskID, ev.Node.Kind, output.FormatDuration(ev.Node.Duration))
	}
}

// printRunResult 打印运行报告，运行失败时返回原始错误
func printRunResult(report *engine.RunReport, runErr error) error {
	if report == nil {
		output.Error("运行失败: %v", runErr)
		return runErr
	}
	if outputJSON {
		if err := output.PrintJSON(report); err != nil {
			return err
		}
		return runErr
	}

	printNodeTable(report)
	if runErr != nil {
		output.Error("Pipeline %s 运行失败（RunID=%s）: %v", report.Pipeline, report.RunID, runErr)
		return runErr
	}
	output.Success("Pipeline %s 运行完成（RunID=%s，耗时 %s）",
		report.Pipeline, report.RunID, output.FormatDuration(report.Duration))
	return nil
}

func printNodeTable(report *engine.RunReport) {
	table := output.NewTable([]string{"TASK", "KIND", "STATUS", "DEFERRED", "DURATION", "ERROR"})
	for _, n := range report.Nodes {
		table.AddRow([]string{
			n.TaskID,
			n.Kind.String(),
			output.FormatStatus(n.Status),
			fmt.Sprintf("%d", n.Deferred),
			output.FormatDuration(n.Duration),
			n.Error,
		})
	}
	table.Render()
}
