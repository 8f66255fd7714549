package config

import (
	"fmt"

	"github.com/LENAX/lazyflow/pkg/core/builder"
	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/core/types"
	"github.com/LENAX/lazyflow/pkg/frame"
)

// PipelineDefinition YAML中的Pipeline定义（对外导出）
type PipelineDefinition struct {
	Name        string           `yaml:"name" validate:"required"`
	Description string           `yaml:"description,omitempty"`
	Cron        string           `yaml:"cron,omitempty" validate:"omitempty,cronexpr"`
	Workers     int              `yaml:"workers,omitempty" validate:"gte=0"`
	Tasks       []TaskDefinition `yaml:"tasks" validate:"required,min=1,dive"`
}

// TaskDefinition 单个任务定义
// depends_on 的顺序即输入顺序，merge 任务第一个依赖为左表
type TaskDefinition struct {
	ID          string        `yaml:"id" validate:"required"`
	Kind        string        `yaml:"kind" validate:"required,oneof=read transform write merge"`
	Source      string        `yaml:"source,omitempty" validate:"required_if=Kind read"`
	Destination string        `yaml:"destination,omitempty" validate:"required_if=Kind write"`
	Format      string        `yaml:"format,omitempty"`
	Op          string        `yaml:"op,omitempty" validate:"required_if=Kind transform"`
	Args        []any         `yaml:"args,omitempty"`
	Options     frame.Options `yaml:"options,omitempty"`
	DependsOn   []string      `yaml:"depends_on,omitempty"`
}

// BuildPipeline 按定义顺序构建 Pipeline（对外导出）
// fe 为 nil 时使用内置格式；def.Workers > 0 时覆盖 opts 中的并行度
func BuildPipeline(def *PipelineDefinition, fe *frame.Engine, opts ...engine.Option) (*engine.Pipeline, error) {
	if err := ValidatePipelineDefinition(def); err != nil {
		return nil, err
	}
	b := builder.NewPipelineBuilder(def.Name, fe).WithOptions(opts...)
	if def.Workers > 0 {
		b.WithOptions(engine.WithWorkers(def.Workers))
	}
	for _, t := range def.Tasks {
		switch types.Kind(t.Kind) {
		case types.KindRead:
			b.Read(t.ID, t.Source, t.Format, t.Options)
		case types.KindTransform:
			b.Transform(t.ID, t.Op, t.Args, t.Options, t.DependsOn[0])
		case types.KindMerge:
			b.Merge(t.ID, t.Options, t.DependsOn[0], t.DependsOn[1])
		case types.KindWrite:
			b.Write(t.ID, t.Destination, t.Format, t.Options, t.DependsOn[0])
		}
	}
	p, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("构建Pipeline %s 失败: %w", def.Name, err)
	}
	return p, nil
}
