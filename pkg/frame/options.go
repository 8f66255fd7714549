package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// Options 数据源/目标的命名参数（对外导出）
type Options map[string]any

// String 读取字符串参数
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool 读取布尔参数，支持 "true"/"false" 文本
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return def, fmt.Errorf("参数 %s 不是布尔值: %q", key, x)
		}
		return b, nil
	}
	return def, fmt.Errorf("参数 %s 不是布尔值: %v", key, v)
}

// Int 读取整数参数
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := normalize(v).(type) {
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int64(x)) {
			return def, fmt.Errorf("参数 %s 不是整数: %v", key, v)
		}
		return int(x), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return def, fmt.Errorf("参数 %s 不是整数: %q", key, x)
		}
		return i, nil
	}
	return def, fmt.Errorf("参数 %s 不是整数: %v", key, v)
}

// Strings 读取字符串列表参数；单个字符串视为只有一个元素的列表
func (o Options) Strings(key string) ([]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, nil
	}
	return ToStrings(v)
}

// ToStrings 把 string / []string / []any 转为字符串列表（对外导出）
func ToStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return append([]string(nil), x...), nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("期望字符串，得到 %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("期望字符串或字符串列表，得到 %T", v)
}

// Clone 浅拷贝
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
