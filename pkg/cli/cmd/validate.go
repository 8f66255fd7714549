package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/lazyflow/pkg/cli/output"
	"github.com/LENAX/lazyflow/pkg/config"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/core/types"
)

// validationResult 单个文件的校验结果
type validationResult struct {
	File     string `json:"file"`
	Pipeline string `json:"pipeline,omitempty"`
	Nodes    int    `json:"nodes,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

// validateCmd 校验Pipeline定义
var validateCmd = &cobra.Command{
	Use:   "validate <pipeline.yaml>...",
	Short: "校验Pipeline定义",
	Long: `校验一个或多个Pipeline定义：字段、依赖数量、依赖是否存在以及是否有环。

示例：
  lazyflow validate ./pipelines/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]validationResult, 0, len(args))
		failed := 0
		for _, file := range args {
			res := validateFile(file)
			if !res.Valid {
				failed++
			}
			results = append(results, res)
		}

		if outputJSON {
			if err := output.PrintJSON(results); err != nil {
				return err
			}
		} else {
			for _, res := range results {
				if res.Valid {
					output.Success("%s: Pipeline %s 有效（%d 个节点）", res.File, res.Pipeline, res.Nodes)
				} else {
					output.Error("%s: %s", res.File, res.Error)
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d 个定义校验失败", failed)
		}
		return nil
	},
}

// validateFile 加载、构建并检查环，不执行任何节点
func validateFile(file string) validationResult {
	res := validationResult{File: file}
	def, err := config.LoadPipelineFile(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Pipeline = def.Name
	p, err := config.BuildPipeline(def, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if err := checkAcyclic(p); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Nodes = p.DAG().Len()
	res.Valid = true
	return res
}

func checkAcyclic(p *engine.Pipeline) error {
	if n := p.DAG().FindCycles(); n != nil {
		return &types.CycleError{TaskID: n.ID, Path: p.DAG().CyclePath()}
	}
	return nil
}
