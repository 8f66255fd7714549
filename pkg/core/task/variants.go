package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LENAX/lazyflow/pkg/core/types"
	"github.com/LENAX/lazyflow/pkg/frame"
)

var errNoTask = errors.New("节点没有可执行的 Task")

// ReadTask 读取数据源，产出惰性句柄
type ReadTask struct {
	engine  *frame.Engine
	Source  string
	Format  string
	Options frame.Options
}

// NewRead 创建读取节点；格式不受支持时立即返回 UnsupportedOperationError
// format 为空时按 source 扩展名推断
func NewRead(engine *frame.Engine, id, source, format string, opts frame.Options) (*Node, error) {
	engine = orDefault(engine)
	if opts == nil {
		opts = frame.Options{}
	}
	f, err := engine.ResolveFormat(source, format)
	if err != nil {
		return nil, &types.UnsupportedOperationError{TaskID: id, Name: "read", Reason: err.Error()}
	}
	t := &ReadTask{engine: engine, Source: source, Format: f.Name, Options: opts}
	return NewNode(id, types.KindRead, Config{Args: []any{source}, Options: opts}, t), nil
}

func (t *ReadTask) Execute(ctx context.Context, inputs ...any) (any, error) {
	if len(inputs) != 0 {
		return nil, fmt.Errorf("read 不接受输入，收到 %d 个", len(inputs))
	}
	return t.engine.Read(ctx, t.Source, t.Format, t.Options)
}

// TransformTask 对单个输入应用一个变换
type TransformTask struct {
	engine *frame.Engine
	Op     frame.Operation
}

// NewTransform 创建变换节点，op 为 filter/select/sort/limit/join 之一
// 参数在构建时解析为类型化的操作
func NewTransform(engine *frame.Engine, id, op string, args []any, opts frame.Options) (*Node, error) {
	engine = orDefault(engine)
	if opts == nil {
		opts = frame.Options{}
	}
	parsed, err := ParseOperation(op, args, opts)
	if err != nil {
		var unsupported *types.UnsupportedOperationError
		if errors.As(err, &unsupported) {
			unsupported.TaskID = id
			return nil, unsupported
		}
		return nil, &types.UnsupportedOperationError{TaskID: id, Name: op, Reason: err.Error()}
	}
	t := &TransformTask{engine: engine, Op: parsed}
	return NewNode(id, types.KindTransform, Config{Args: args, Options: opts}, t), nil
}

func (t *TransformTask) Execute(ctx context.Context, inputs ...any) (any, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("transform 需要 1 个输入，收到 %d 个", len(inputs))
	}
	lf, err := asLazy(inputs[0])
	if err != nil {
		return nil, err
	}
	return t.engine.Transform(lf, t.Op)
}

// WriteTask 物化输入并写出，是终止节点
type WriteTask struct {
	engine      *frame.Engine
	Destination string
	Format      string
	Options     frame.Options
}

// NewWrite 创建写出节点，format 为空时按 destination 扩展名推断
func NewWrite(engine *frame.Engine, id, destination, format string, opts frame.Options) (*Node, error) {
	engine = orDefault(engine)
	if opts == nil {
		opts = frame.Options{}
	}
	f, err := engine.ResolveFormat(destination, format)
	if err != nil {
		return nil, &types.UnsupportedOperationError{TaskID: id, Name: "write", Reason: err.Error()}
	}
	if f.Sink == nil {
		return nil, &types.UnsupportedOperationError{TaskID: id, Name: "write", Reason: fmt.Sprintf("格式 %s 只读", f.Name)}
	}
	t := &WriteTask{engine: engine, Destination: destination, Format: f.Name, Options: opts}
	return NewNode(id, types.KindWrite, Config{Args: []any{destination}, Options: opts}, t), nil
}

func (t *WriteTask) Execute(ctx context.Context, inputs ...any) (any, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("write 需要 1 个输入，收到 %d 个", len(inputs))
	}
	lf, err := asLazy(inputs[0])
	if err != nil {
		return nil, err
	}
	return nil, t.engine.Write(ctx, lf, t.Destination, t.Format, t.Options)
}

// MergeTask 按键连接两个输入
// on/how 在执行时从节点自身的 Options 读取
type MergeTask struct {
	engine  *frame.Engine
	options frame.Options
	mu      *sync.RWMutex // 与所属节点共享
}

// NewMerge 创建合并节点；opts 需包含 on（字符串或列表），how 默认 left
func NewMerge(engine *frame.Engine, id string, opts frame.Options) (*Node, error) {
	engine = orDefault(engine)
	if opts == nil {
		opts = frame.Options{}
	}
	on, err := opts.Strings("on")
	if err != nil || len(on) == 0 {
		reason := "缺少 on 参数"
		if err != nil {
			reason = err.Error()
		}
		return nil, &types.UnsupportedOperationError{TaskID: id, Name: "merge", Reason: reason}
	}
	if _, err := frame.ParseJoinHow(opts.String("how", "")); err != nil {
		return nil, &types.UnsupportedOperationError{TaskID: id, Name: "merge", Reason: err.Error()}
	}
	t := &MergeTask{engine: engine, options: opts}
	n := NewNode(id, types.KindMerge, Config{Options: opts}, t)
	t.mu = n.optsMu
	return n, nil
}

// Execute 连接两个输入；how=right 时交换两侧并临时把 how 改写为 left
func (t *MergeTask) Execute(ctx context.Context, inputs ...any) (any, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("merge 需要 2 个输入，收到 %d 个", len(inputs))
	}
	left, err := asLazy(inputs[0])
	if err != nil {
		return nil, err
	}
	right, err := asLazy(inputs[1])
	if err != nil {
		return nil, err
	}

	// 改写与恢复期间持有写锁，Node.Options 读到的总是 right
	t.mu.Lock()
	defer t.mu.Unlock()
	on, err := t.options.Strings("on")
	if err != nil {
		return nil, err
	}
	how, err := frame.ParseJoinHow(t.options.String("how", ""))
	if err != nil {
		return nil, err
	}
	if how == frame.JoinRight {
		original := t.options["how"]
		t.options["how"] = string(frame.JoinLeft)
		defer func() { t.options["how"] = original }()
		left, right = right, left
		how = frame.JoinLeft
	}
	return t.engine.Join(left, right, on, how)
}

func asLazy(v any) (*frame.LazyFrame, error) {
	switch x := v.(type) {
	case *frame.LazyFrame:
		if x == nil {
			return nil, fmt.Errorf("输入为空")
		}
		return x, nil
	case *frame.Table:
		if x == nil {
			return nil, fmt.Errorf("输入为空")
		}
		return x.Lazy(), nil
	case nil:
		return nil, fmt.Errorf("输入为空")
	}
	return nil, fmt.Errorf("不支持的输入类型 %T", v)
}

func orDefault(engine *frame.Engine) *frame.Engine {
	if engine == nil {
		return frame.NewEngine(nil)
	}
	return engine
}
