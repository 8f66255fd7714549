package frame

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Engine 数据帧引擎：读取、变换、连接、写出（对外导出）
// Engine 只持有不可变的格式映射，可在多个 goroutine 间共享
type Engine struct {
	formats *Formats
}

// NewEngine 创建引擎，formats 为 nil 时使用内置格式
func NewEngine(formats *Formats) *Engine {
	if formats == nil {
		formats = DefaultFormats()
	}
	return &Engine{formats: formats}
}

// Formats 返回引擎使用的格式映射
func (e *Engine) Formats() *Formats {
	return e.formats
}

// ResolveFormat 确定格式，构建任务时用于提前发现不支持的格式
func (e *Engine) ResolveFormat(location, tag string) (*Format, error) {
	return e.formats.Resolve(location, tag)
}

// Read 创建惰性扫描；本地文件不存在时立即返回 ErrSourceNotFound
// 通用参数 n_rows、row_index_name、row_index_offset，其余交给格式实现
func (e *Engine) Read(ctx context.Context, source, format string, opts Options) (*LazyFrame, error) {
	f, err := e.formats.Resolve(source, format)
	if err != nil {
		return nil, err
	}
	if f.Local {
		if _, err := os.Stat(source); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
			}
			return nil, err
		}
	}
	nRows, err := opts.Int("n_rows", -1)
	if err != nil {
		return nil, err
	}
	offset, err := opts.Int("row_index_offset", 0)
	if err != nil {
		return nil, err
	}

	lf := &LazyFrame{root: &scanNode{format: f.Name, source: source, opts: opts.Clone(), scan: f.Scan}}
	if nRows >= 0 {
		lf = lf.Limit(nRows)
	}
	if name := opts.String("row_index_name", ""); name != "" {
		lf = lf.WithRowIndex(name, offset)
	}
	return lf, nil
}

// Transform 应用一个变换操作
func (e *Engine) Transform(h *LazyFrame, op Operation) (*LazyFrame, error) {
	if h == nil {
		return nil, fmt.Errorf("%s 的输入为空", op.Name())
	}
	return op.apply(h)
}

// Join 连接两个惰性数据帧；right 方向不在这里支持，调用方需交换两侧
func (e *Engine) Join(a, b *LazyFrame, on []string, how JoinHow) (*LazyFrame, error) {
	return join(a, b, on, how)
}

// Write 物化并写出到目标，会自动创建本地目录
func (e *Engine) Write(ctx context.Context, h *LazyFrame, dest, format string, opts Options) error {
	f, err := e.formats.Resolve(dest, format)
	if err != nil {
		return err
	}
	if f.Sink == nil {
		return fmt.Errorf("%w: %s", ErrReadOnlyFormat, f.Name)
	}
	t, err := h.Collect(ctx)
	if err != nil {
		return err
	}
	if f.Local {
		if dir := filepath.Dir(dest); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
			}
		}
	}
	if err := f.Sink(ctx, t, dest, opts); err != nil {
		return fmt.Errorf("写入 %s 目标 %q 失败: %w", f.Name, dest, err)
	}
	return nil
}
