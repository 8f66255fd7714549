package types

import "fmt"

// Kind Task类型（对外导出）
type Kind string

const (
	KindRead      Kind = "read"
	KindTransform Kind = "transform"
	KindWrite     Kind = "write"
	KindMerge     Kind = "merge"
)

// ParseKind 解析Task类型字符串
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRead, KindTransform, KindWrite, KindMerge:
		return k, nil
	default:
		return "", fmt.Errorf("未知的Task类型: %q", s)
	}
}

// Arity 返回该类型要求的父节点数量
func (k Kind) Arity() int {
	switch k {
	case KindRead:
		return 0
	case KindMerge:
		return 2
	default:
		return 1
	}
}

func (k Kind) String() string {
	return string(k)
}
