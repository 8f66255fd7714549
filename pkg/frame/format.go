package frame

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ScanFunc 读取数据源为物化表
type ScanFunc func(ctx context.Context, source string, opts Options) (*Table, error)

// SinkFunc 把物化表写入目标
type SinkFunc func(ctx context.Context, t *Table, dest string, opts Options) error

// Format 一种数据格式的读写实现（对外导出）
type Format struct {
	Name       string
	Aliases    []string
	Extensions []string
	Scan       ScanFunc
	// Sink 为 nil 表示只读格式
	Sink SinkFunc
	// Local 为 true 时 source 是本地文件路径，读取前检查文件是否存在
	Local bool
}

// Formats 不可变的格式映射，构建后只读，可被多个引擎共享（对外导出）
type Formats struct {
	byName map[string]*Format
	byExt  map[string]*Format
	names  []string
}

// NewFormats 构建格式映射，名称、别名或扩展名重复时返回错误
func NewFormats(formats ...Format) (*Formats, error) {
	fs := &Formats{
		byName: make(map[string]*Format),
		byExt:  make(map[string]*Format),
	}
	for i := range formats {
		f := formats[i]
		if f.Name == "" || f.Scan == nil {
			return nil, fmt.Errorf("格式定义不完整: %q", f.Name)
		}
		for _, name := range append([]string{f.Name}, f.Aliases...) {
			name = strings.ToLower(name)
			if _, dup := fs.byName[name]; dup {
				return nil, fmt.Errorf("重复的格式名称: %q", name)
			}
			fs.byName[name] = &f
		}
		for _, ext := range f.Extensions {
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			if _, dup := fs.byExt[ext]; dup {
				return nil, fmt.Errorf("重复的扩展名: %q", ext)
			}
			fs.byExt[ext] = &f
		}
		fs.names = append(fs.names, f.Name)
	}
	sort.Strings(fs.names)
	return fs, nil
}

// DefaultFormats 内置格式：csv、json(ndjson)、yaml、html、sqlite、mysql、postgres
func DefaultFormats() *Formats {
	fs, err := NewFormats(
		CSVFormat(),
		JSONFormat(),
		YAMLFormat(),
		HTMLFormat(),
		SQLFormat("sqlite", "sqlite3", "db", "sqlite", "sqlite3"),
		SQLFormat("mysql", "mysql"),
		SQLFormat("postgres", "postgres"),
	)
	if err != nil {
		// 内置格式之间不会冲突
		panic(err)
	}
	return fs
}

// Resolve 根据显式标签或位置的扩展名确定格式
func (fs *Formats) Resolve(location, tag string) (*Format, error) {
	if tag != "" {
		if f, ok := fs.byName[strings.ToLower(tag)]; ok {
			return f, nil
		}
		return nil, fmt.Errorf("%w: %q（支持: %v）", ErrUnsupportedFormat, tag, fs.names)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(location), "."))
	if ext == "" {
		return nil, fmt.Errorf("%w: 无法从 %q 推断格式，请显式指定", ErrUnsupportedFormat, location)
	}
	if f, ok := fs.byExt[ext]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: 扩展名 %q（支持: %v）", ErrUnsupportedFormat, ext, fs.names)
}

// Names 已注册的格式名称（有序）
func (fs *Formats) Names() []string {
	return append([]string(nil), fs.names...)
}
