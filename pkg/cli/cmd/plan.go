package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LENAX/lazyflow/pkg/cli/output"
	"github.com/LENAX/lazyflow/pkg/config"
	"github.com/LENAX/lazyflow/pkg/core/task"
)

// executionPlan 执行计划：按拓扑层级分组的节点
type executionPlan struct {
	Pipeline string     `json:"pipeline"`
	Workers  int        `json:"workers"`
	Cron     string     `json:"cron,omitempty"`
	Levels   [][]string `json:"levels"`
	Roots    []string   `json:"roots"`
	Leaves   []string   `json:"leaves"`
	Orphans  []string   `json:"orphans"`
}

// planCmd 查看执行计划
var planCmd = &cobra.Command{
	Use:   "plan <pipeline.yaml>",
	Short: "查看Pipeline执行计划",
	Long: `打印Pipeline的拓扑层级。同一层级的节点互不依赖，并行运行时可同时执行。

示例：
  lazyflow plan ./pipelines/cyprus.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := config.LoadPipelineFile(args[0])
		if err != nil {
			output.Error("加载Pipeline定义失败: %v", err)
			return err
		}
		p, err := config.BuildPipeline(def, nil)
		if err != nil {
			output.Error("构建Pipeline失败: %v", err)
			return err
		}
		if err := checkAcyclic(p); err != nil {
			output.Error("%v", err)
			return err
		}
		levels, err := p.DAG().Levels()
		if err != nil {
			output.Error("计算拓扑层级失败: %v", err)
			return err
		}

		plan := executionPlan{
			Pipeline: p.Name(),
			Workers:  p.Workers(),
			Cron:     def.Cron,
			Roots:    nodeIDs(p.DAG().Roots()),
			Leaves:   nodeIDs(p.DAG().Leaves()),
			Orphans:  nodeIDs(p.DAG().FindOrphanNodes()),
		}
		for _, level := range levels {
			plan.Levels = append(plan.Levels, nodeIDs(level))
		}

		if outputJSON {
			return output.PrintJSON(plan)
		}

		fmt.Printf("Pipeline: %s\n", plan.Pipeline)
		fmt.Printf("Workers:  %d\n", plan.Workers)
		if plan.Cron != "" {
			fmt.Printf("Cron:     %s\n", plan.Cron)
		}
		fmt.Println()

		table := output.NewTable([]string{"LEVEL", "TASK", "KIND", "DEPENDS_ON"})
		for i, level := range levels {
			for _, n := range level {
				table.AddRow([]string{fmt.Sprintf("%d", i), n.ID, n.Kind.String(), strings.Join(n.Parents, ", ")})
			}
		}
		table.Render()

		fmt.Println()
		fmt.Printf("Roots:   %s\n", joinOrDash(plan.Roots))
		fmt.Printf("Leaves:  %s\n", joinOrDash(plan.Leaves))
		if len(plan.Orphans) > 0 {
			output.Warning("孤立节点（无父也无子）: %s", strings.Join(plan.Orphans, ", "))
		}
		return nil
	},
}

func nodeIDs(nodes []*task.Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
