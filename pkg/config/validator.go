package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/LENAX/lazyflow/pkg/core/engine"
	"github.com/LENAX/lazyflow/pkg/core/types"
)

// configValidate 配置校验器，字段名使用 yaml 标签
var configValidate *validator.Validate

func init() {
	configValidate = validator.New(validator.WithRequiredStructEnabled())
	configValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = configValidate.RegisterValidation("cronexpr", validateCronExpr)
}

func validateCronExpr(fl validator.FieldLevel) bool {
	_, err := engine.ParseCronExpr(fl.Field().String())
	return err == nil
}

// ValidateFrameworkConfig 校验框架配置合法性
func ValidateFrameworkConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}
	if err := configValidate.Struct(cfg); err != nil {
		return describe("引擎配置", err)
	}
	return nil
}

// ValidatePipelineDefinition 校验Pipeline定义
// 除字段校验外，还检查ID唯一、依赖存在、依赖数量与Task类型一致
func ValidatePipelineDefinition(def *PipelineDefinition) error {
	if def == nil {
		return fmt.Errorf("Pipeline定义不能为空")
	}
	if err := configValidate.Struct(def); err != nil {
		return describe(fmt.Sprintf("Pipeline %s", def.Name), err)
	}

	ids := make(map[string]bool, len(def.Tasks))
	for _, t := range def.Tasks {
		if ids[t.ID] {
			return fmt.Errorf("Pipeline %s: 任务ID重复: %s", def.Name, t.ID)
		}
		ids[t.ID] = true
	}
	for _, t := range def.Tasks {
		kind, err := types.ParseKind(t.Kind)
		if err != nil {
			return fmt.Errorf("Pipeline %s: 任务 %s: %w", def.Name, t.ID, err)
		}
		if want := kind.Arity(); len(t.DependsOn) != want {
			return fmt.Errorf("Pipeline %s: %s 任务 %s 需要 %d 个依赖，实际 %d 个",
				def.Name, kind, t.ID, want, len(t.DependsOn))
		}
		for _, dep := range t.DependsOn {
			if !ids[dep] {
				return fmt.Errorf("Pipeline %s: 任务 %s 依赖的任务 %s 不存在", def.Name, t.ID, dep)
			}
			if dep == t.ID {
				return fmt.Errorf("Pipeline %s: 任务 %s 不能依赖自身", def.Name, t.ID)
			}
		}
	}
	return nil
}

// describe 把 validator 的错误整理成一行
func describe(subject string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s校验失败: %w", subject, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// 去掉最外层的类型名，如 EngineConfig.lazyflow.server.port -> lazyflow.server.port
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s 不满足 %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s 不满足 %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%s校验失败: %s", subject, strings.Join(msgs, "; "))
}
