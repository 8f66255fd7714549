package task

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LENAX/lazyflow/pkg/core/types"
	"github.com/LENAX/lazyflow/pkg/frame"
)

// 变换操作名称（封闭集合）
const (
	OpFilter = "filter"
	OpSelect = "select"
	OpSort   = "sort"
	OpLimit  = "limit"
	OpJoin   = "join"
)

// SupportedOperations 支持的变换操作
var SupportedOperations = []string{OpFilter, OpSelect, OpSort, OpLimit, OpJoin}

// ParseOperation 把操作名与参数解析为类型化的变换操作（对外导出）
func ParseOperation(name string, args []any, opts frame.Options) (frame.Operation, error) {
	switch strings.ToLower(name) {
	case OpFilter:
		return parseFilter(args, opts)
	case OpSelect:
		return parseSelect(args, opts)
	case OpSort:
		return parseSort(args, opts)
	case OpLimit:
		return parseLimit(args, opts)
	case OpJoin:
		return parseJoin(args, opts)
	default:
		return nil, &types.UnsupportedOperationError{
			Name:   name,
			Reason: fmt.Sprintf("支持的操作: %v", SupportedOperations),
		}
	}
}

// parseFilter 支持三种写法：
// 位置参数为 frame.Expr；options.condition 为嵌套条件；其余 options 为列等值约束
func parseFilter(args []any, opts frame.Options) (frame.Operation, error) {
	if len(args) > 0 {
		switch a := args[0].(type) {
		case frame.Expr:
			return frame.FilterOp{Predicate: a}, nil
		case map[string]any:
			expr, err := frame.ParseCondition(a)
			if err != nil {
				return nil, err
			}
			return frame.FilterOp{Predicate: expr}, nil
		default:
			return nil, fmt.Errorf("filter 的位置参数必须是表达式或条件映射，得到 %T", a)
		}
	}
	if cond, ok := opts["condition"]; ok {
		m, ok := cond.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition 必须是映射，得到 %T", cond)
		}
		expr, err := frame.ParseCondition(m)
		if err != nil {
			return nil, err
		}
		return frame.FilterOp{Predicate: expr}, nil
	}
	if len(opts) == 0 {
		return nil, fmt.Errorf("filter 至少需要一个条件")
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	exprs := make([]frame.Expr, 0, len(keys))
	for _, col := range keys {
		exprs = append(exprs, frame.Col(col).Eq(opts[col]))
	}
	if len(exprs) == 1 {
		return frame.FilterOp{Predicate: exprs[0]}, nil
	}
	return frame.FilterOp{Predicate: frame.And(exprs...)}, nil
}

func parseSelect(args []any, opts frame.Options) (frame.Operation, error) {
	var columns []string
	if len(args) > 0 {
		cols, err := frame.ToStrings(args)
		if err != nil {
			return nil, fmt.Errorf("select 的位置参数必须是列名: %w", err)
		}
		columns = cols
	} else {
		cols, err := opts.Strings("columns")
		if err != nil {
			return nil, err
		}
		columns = cols
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("select 至少需要一列")
	}
	return frame.SelectOp{Columns: columns}, nil
}

// parseSort 参数 by（列或列表）, descending（布尔或与 by 等长的布尔列表）, nulls_last
func parseSort(args []any, opts frame.Options) (frame.Operation, error) {
	var by []string
	var err error
	if len(args) > 0 {
		by, err = frame.ToStrings(args)
	} else {
		by, err = opts.Strings("by")
	}
	if err != nil {
		return nil, err
	}
	if len(by) == 0 {
		return nil, fmt.Errorf("sort 至少需要一个排序列")
	}

	desc := make([]bool, len(by))
	switch d := opts["descending"].(type) {
	case nil:
	case bool:
		for i := range desc {
			desc[i] = d
		}
	case []any:
		if len(d) != len(by) {
			return nil, fmt.Errorf("descending 的长度 %d 与排序列数 %d 不一致", len(d), len(by))
		}
		for i, v := range d {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("descending 必须是布尔值")
			}
			desc[i] = b
		}
	default:
		return nil, fmt.Errorf("descending 必须是布尔值或布尔列表，得到 %T", d)
	}
	nullsLast, err := opts.Bool("nulls_last", false)
	if err != nil {
		return nil, err
	}

	keys := make([]frame.SortKey, len(by))
	for i, c := range by {
		keys[i] = frame.SortKey{Column: c, Descending: desc[i]}
	}
	return frame.SortOp{Keys: keys, NullsLast: nullsLast}, nil
}

func parseLimit(args []any, opts frame.Options) (frame.Operation, error) {
	src := opts
	key := "n"
	if len(args) > 0 {
		src = frame.Options{"n": args[0]}
	}
	if _, ok := src[key]; !ok {
		return nil, fmt.Errorf("limit 需要参数 n")
	}
	n, err := src.Int(key, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("limit 不能为负数: %d", n)
	}
	return frame.LimitOp{N: n}, nil
}

func parseJoin(args []any, opts frame.Options) (frame.Operation, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("join 需要另一个数据帧作为第一个位置参数")
	}
	var other *frame.LazyFrame
	switch o := args[0].(type) {
	case *frame.LazyFrame:
		other = o
	case *frame.Table:
		other = o.Lazy()
	default:
		return nil, fmt.Errorf("join 的第一个位置参数必须是数据帧，得到 %T", o)
	}
	on, err := opts.Strings("on")
	if err != nil {
		return nil, err
	}
	if len(on) == 0 {
		return nil, fmt.Errorf("join 缺少 on 参数")
	}
	how, err := frame.ParseJoinHow(opts.String("how", ""))
	if err != nil {
		return nil, err
	}
	if how == frame.JoinRight {
		return nil, fmt.Errorf("join 变换不支持 right，请交换两侧或使用 merge 节点")
	}
	return frame.JoinOp{Other: other, On: on, How: how}, nil
}
