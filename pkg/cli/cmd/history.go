package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LENAX/lazyflow/internal/storage"
	"github.com/LENAX/lazyflow/pkg/cli/output"
	pkgstorage "github.com/LENAX/lazyflow/pkg/storage"
)

var (
	historyPipeline string
	historyStatus   string
	historyLimit    int
	historyOffset   int
)

// historyCmd 查询运行历史
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "查询运行历史",
	Long: `查询配置中数据库里记录的运行历史，按开始时间倒序。

示例：
  lazyflow history --pipeline cyprus --status failed
  lazyflow history show <run-id>`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openHistory()
		if err != nil {
			output.Error("打开运行历史失败: %v", err)
			return err
		}
		defer closeRepo()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		runs, err := repo.List(ctx, pkgstorage.RunFilter{
			Pipeline: historyPipeline,
			Status:   historyStatus,
			Limit:    historyLimit,
			Offset:   historyOffset,
		})
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(runs)
		}
		if len(runs) == 0 {
			output.Info("暂无运行记录")
			return nil
		}

		table := output.NewTable([]string{"RUN_ID", "PIPELINE", "MODE", "STATUS", "STARTED", "DURATION"})
		for _, r := range runs {
			table.AddRow([]string{
				r.RunID,
				r.Pipeline,
				r.Mode,
				output.FormatStatus(r.Status),
				output.FormatTime(r.StartedAt),
				output.FormatDuration(r.Duration),
			})
		}
		table.Render()
		return nil
	},
}

// historyShowCmd 查看单次运行
var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "查看单次运行详情",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openHistory()
		if err != nil {
			output.Error("打开运行历史失败: %v", err)
			return err
		}
		defer closeRepo()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		run, err := repo.GetByID(ctx, args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}

		if outputJSON {
			return output.PrintJSON(run)
		}

		fmt.Printf("Run:      %s\n", run.RunID)
		fmt.Printf("Pipeline: %s\n", run.Pipeline)
		if run.Target != "" {
			fmt.Printf("Target:   %s\n", run.Target)
		}
		fmt.Printf("Mode:     %s\n", run.Mode)
		fmt.Printf("Status:   %s\n", output.FormatStatus(run.Status))
		fmt.Printf("Started:  %s\n", output.FormatTime(run.StartedAt))
		fmt.Printf("Finished: %s\n", output.FormatTime(run.FinishedAt))
		fmt.Printf("Duration: %s\n", output.FormatDuration(run.Duration))
		if run.Error != "" {
			fmt.Printf("Error:    %s\n", run.Error)
		}
		fmt.Println()
		printNodeTable(run)
		return nil
	},
}

// historyDeleteCmd 删除运行记录
var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "删除运行记录",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openHistory()
		if err != nil {
			output.Error("打开运行历史失败: %v", err)
			return err
		}
		defer closeRepo()

		if err := repo.Delete(cmd.Context(), args[0]); err != nil {
			output.Error("删除失败: %v", err)
			return err
		}
		output.Success("已删除运行记录 %s", args[0])
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyPipeline, "pipeline", "p", "", "按Pipeline名称过滤")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "按状态过滤（success/failed/cancelled/running）")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "返回条数")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "跳过条数")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

// openHistory 按配置中的数据库打开运行历史，与 storage.history 开关无关
func openHistory() (pkgstorage.RunRepository, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db := cfg.Lazyflow.Storage.Database
	factory, err := storage.NewDatabaseFactory(db.Type, db.DSN, storage.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		return nil, nil, err
	}
	return factory.RunRepository(), func() { factory.Close() }, nil
}
