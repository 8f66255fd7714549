package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/LENAX/lazyflow/pkg/config"
)

var (
	// 全局变量
	configPath string
	outputJSON bool
)

// defaultConfigPaths 未指定 --config 时依次尝试的配置文件
var defaultConfigPaths = []string{
	"./configs/engine.yaml",
	"./config/engine.yaml",
	"./engine.yaml",
}

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "lazyflow",
	Short: "Lazyflow CLI - 惰性数据处理流水线命令行工具",
	Long: `Lazyflow CLI 用于校验、规划和运行由 YAML 定义的数据处理流水线。

支持的功能：
  - 校验Pipeline定义并查看执行计划
  - 本地运行Pipeline（顺序或并行）
  - 按Cron表达式定时运行
  - 查询运行历史
  - 启动HTTP API服务

使用示例：
  # 校验定义
  lazyflow validate ./pipelines/cyprus.yaml

  # 运行Pipeline
  lazyflow run ./pipelines/cyprus.yaml --workers 4

  # 查看运行历史
  lazyflow history --pipeline cyprus

  # 启动HTTP服务
  lazyflow serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnv()
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "引擎配置文件路径（默认依次查找 ./configs/engine.yaml、./config/engine.yaml、./engine.yaml）")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")

	// 添加子命令
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig 加载引擎配置，未指定路径且默认位置都不存在时使用默认配置
func loadConfig() (*config.EngineConfig, error) {
	path := configPath
	if path == "" {
		for _, p := range defaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		return config.DefaultEngineConfig(), nil
	}
	return config.LoadEngineConfig(path)
}
