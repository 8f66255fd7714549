package types

import (
	"errors"
	"fmt"
	"strings"
)

// 错误类别哨兵，配合 errors.Is 使用（对外导出）
var (
	ErrStructural  = errors.New("structural error")
	ErrCycle       = errors.New("cycle detected")
	ErrUnsupported = errors.New("unsupported operation")
	ErrExecution   = errors.New("task execution failed")
)

// StructuralError 图结构错误（对外导出）
// 在构建阶段抛出：重复ID、自环边、重复边、父节点数量不符、未知Task等
type StructuralError struct {
	Op     string // 触发的操作，如 add_node / add_edge / run
	TaskID string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Op, e.TaskID, e.Reason)
}

// Is 支持 errors.Is(err, ErrStructural)
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// NewStructuralError 创建结构错误（对外导出）
func NewStructuralError(op, taskID, format string, args ...any) *StructuralError {
	return &StructuralError{Op: op, TaskID: taskID, Reason: fmt.Sprintf(format, args...)}
}

// CycleError 循环依赖错误（对外导出）
// TaskID 为首次检测到后向边的节点，Path 为环上的节点序列
type CycleError struct {
	TaskID string
	Path   []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("检测到循环依赖: task %q", e.TaskID)
	}
	return fmt.Sprintf("检测到循环依赖: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// UnsupportedOperationError 不支持的操作或格式（对外导出）
type UnsupportedOperationError struct {
	TaskID string
	Name   string
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	msg := fmt.Sprintf("unsupported operation %q", e.Name)
	if e.TaskID != "" {
		msg = fmt.Sprintf("task %q: %s", e.TaskID, msg)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupported
}

// ExecutionError Task执行失败（对外导出）
// Cause 保留外部引擎返回的原始错误
type ExecutionError struct {
	TaskID string
	Kind   Kind
	Cause  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s task %q 执行失败: %v", e.Kind, e.TaskID, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
