package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// normalize 把各数据源解析出的值统一为 nil/int64/float64/string/bool 或嵌套结构
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return float64(x)
		}
		return int64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// inferValue 把文本字段推断为 int64/float64/bool/string
func inferValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// Compare 比较两个值，nil 最小；数值跨类型比较；字符串按字典序（对外导出）
func Compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			return cmpOrdered(ai, bi)
		}
	}
	if isNumber(a) || isNumber(b) {
		af, aok := asFloat(a)
		bf, bok := asFloat(b)
		if aok && bok {
			return cmpOrdered(af, bf)
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Equal 判断两个值是否相等（对外导出）
func Equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Compare(a, b) == 0
}

// keyOf 生成join键，整数值的float与int64视为同一键；含nil的键返回false
func keyOf(values []any) (string, bool) {
	var b strings.Builder
	for i, v := range values {
		v = normalize(v)
		if v == nil {
			return "", false
		}
		if i > 0 {
			b.WriteByte(0x1f)
		}
		switch x := v.(type) {
		case int64:
			b.WriteString("n:")
			b.WriteString(strconv.FormatInt(x, 10))
		case float64:
			if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
				b.WriteString("n:")
				b.WriteString(strconv.FormatInt(int64(x), 10))
			} else {
				b.WriteString("n:")
				b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
			}
		case string:
			b.WriteString("s:")
			b.WriteString(x)
		default:
			b.WriteString("o:")
			b.WriteString(FormatValue(x))
		}
	}
	return b.String(), true
}

// FormatValue 把值格式化为文本（CSV输出等使用）
func FormatValue(v any) string {
	return formatValue(v, -1)
}

func formatValue(v any, precision int) string {
	switch x := normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', precision, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		if data, err := json.Marshal(x); err == nil {
			return string(data)
		}
		return fmt.Sprint(x)
	}
}
