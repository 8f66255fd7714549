package frame

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Predicate 绑定列下标后的行谓词
type Predicate func(row []any) bool

// Expr 过滤表达式（对外导出）
type Expr interface {
	// Bind 根据列名解析列下标，列不存在时返回错误
	Bind(columns []string) (Predicate, error)
	String() string
}

// CmpOp 比较运算符
type CmpOp string

const (
	OpEq CmpOp = "eq"
	OpNe CmpOp = "ne"
	OpGt CmpOp = "gt"
	OpLt CmpOp = "lt"
	OpGe CmpOp = "ge"
	OpLe CmpOp = "le"
	OpIn CmpOp = "in"
)

// ColRef 列引用，用于构造比较表达式
type ColRef string

// Col 引用一列（对外导出）
func Col(name string) ColRef { return ColRef(name) }

func (c ColRef) Eq(v any) Expr { return &cmpExpr{col: string(c), op: OpEq, value: normalize(v)} }
func (c ColRef) Ne(v any) Expr { return &cmpExpr{col: string(c), op: OpNe, value: normalize(v)} }
func (c ColRef) Gt(v any) Expr { return &cmpExpr{col: string(c), op: OpGt, value: normalize(v)} }
func (c ColRef) Lt(v any) Expr { return &cmpExpr{col: string(c), op: OpLt, value: normalize(v)} }
func (c ColRef) Ge(v any) Expr { return &cmpExpr{col: string(c), op: OpGe, value: normalize(v)} }
func (c ColRef) Le(v any) Expr { return &cmpExpr{col: string(c), op: OpLe, value: normalize(v)} }

// In 值属于集合
func (c ColRef) In(values ...any) Expr {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = normalize(v)
	}
	return &inExpr{col: string(c), values: vals}
}

type cmpExpr struct {
	col   string
	op    CmpOp
	value any
}

func (e *cmpExpr) Bind(columns []string) (Predicate, error) {
	idx := slices.Index(columns, e.col)
	if idx < 0 {
		return nil, columnNotFound(e.col, columns)
	}
	want := e.value
	switch e.op {
	case OpEq:
		return func(row []any) bool { return Equal(row[idx], want) }, nil
	case OpNe:
		return func(row []any) bool { return row[idx] != nil && !Equal(row[idx], want) }, nil
	}
	test, err := orderTest(e.op)
	if err != nil {
		return nil, err
	}
	return func(row []any) bool {
		// null 不参与大小比较
		if row[idx] == nil || want == nil {
			return false
		}
		return test(Compare(row[idx], want))
	}, nil
}

func orderTest(op CmpOp) (func(int) bool, error) {
	switch op {
	case OpGt:
		return func(c int) bool { return c > 0 }, nil
	case OpLt:
		return func(c int) bool { return c < 0 }, nil
	case OpGe:
		return func(c int) bool { return c >= 0 }, nil
	case OpLe:
		return func(c int) bool { return c <= 0 }, nil
	}
	return nil, fmt.Errorf("%w: 未知运算符 %q", ErrInvalidExpression, op)
}

func (e *cmpExpr) String() string {
	return fmt.Sprintf("col(%q).%s(%v)", e.col, e.op, e.value)
}

type inExpr struct {
	col    string
	values []any
}

func (e *inExpr) Bind(columns []string) (Predicate, error) {
	idx := slices.Index(columns, e.col)
	if idx < 0 {
		return nil, columnNotFound(e.col, columns)
	}
	return func(row []any) bool {
		for _, v := range e.values {
			if Equal(row[idx], v) {
				return true
			}
		}
		return false
	}, nil
}

func (e *inExpr) String() string {
	return fmt.Sprintf("col(%q).is_in(%v)", e.col, e.values)
}

type logicExpr struct {
	and   bool
	exprs []Expr
}

// And 逻辑与
func And(exprs ...Expr) Expr { return &logicExpr{and: true, exprs: exprs} }

// Or 逻辑或
func Or(exprs ...Expr) Expr { return &logicExpr{and: false, exprs: exprs} }

func (e *logicExpr) Bind(columns []string) (Predicate, error) {
	if len(e.exprs) == 0 {
		return nil, fmt.Errorf("%w: 空的逻辑表达式", ErrInvalidExpression)
	}
	preds := make([]Predicate, len(e.exprs))
	for i, sub := range e.exprs {
		p, err := sub.Bind(columns)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	if e.and {
		return func(row []any) bool {
			for _, p := range preds {
				if !p(row) {
					return false
				}
			}
			return true
		}, nil
	}
	return func(row []any) bool {
		for _, p := range preds {
			if p(row) {
				return true
			}
		}
		return false
	}, nil
}

func (e *logicExpr) String() string {
	parts := make([]string, len(e.exprs))
	for i, sub := range e.exprs {
		parts[i] = sub.String()
	}
	sep := " | "
	if e.and {
		sep = " & "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// ParseCondition 解析嵌套条件（对外导出）
// 形如 {"OR": [{"AND": [...]}, {"Country": {"EQ": "Malta"}}]}；
// 叶子节点 {"col": {"op": operand}} 或 {"col": value}（等值）
func ParseCondition(cond map[string]any) (Expr, error) {
	if len(cond) == 0 {
		return nil, fmt.Errorf("%w: 空条件", ErrInvalidExpression)
	}
	for key, val := range cond {
		switch strings.ToUpper(key) {
		case "AND", "OR":
			if len(cond) != 1 {
				return nil, fmt.Errorf("%w: %s 不能与其他键并列", ErrInvalidExpression, key)
			}
			items, ok := val.([]any)
			if !ok || len(items) == 0 {
				return nil, fmt.Errorf("%w: %s 需要非空列表", ErrInvalidExpression, key)
			}
			exprs := make([]Expr, 0, len(items))
			for _, item := range items {
				sub, ok := toStringMap(item)
				if !ok {
					return nil, fmt.Errorf("%w: %s 的子条件必须是映射", ErrInvalidExpression, key)
				}
				e, err := ParseCondition(sub)
				if err != nil {
					return nil, err
				}
				exprs = append(exprs, e)
			}
			if strings.ToUpper(key) == "AND" {
				return And(exprs...), nil
			}
			return Or(exprs...), nil
		}
	}

	// 多个列条件之间为逻辑与；按列名排序保证表达式稳定
	keys := make([]string, 0, len(cond))
	for k := range cond {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	exprs := make([]Expr, 0, len(keys))
	for _, col := range keys {
		e, err := parseLeaf(col, cond[col])
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return And(exprs...), nil
}

func parseLeaf(col string, val any) (Expr, error) {
	spec, ok := toStringMap(val)
	if !ok {
		return Col(col).Eq(val), nil
	}
	if len(spec) != 1 {
		return nil, fmt.Errorf("%w: 列 %q 的条件必须只有一个运算符", ErrInvalidExpression, col)
	}
	for op, operand := range spec {
		c := Col(col)
		switch CmpOp(strings.ToLower(op)) {
		case OpEq:
			return c.Eq(operand), nil
		case OpNe:
			return c.Ne(operand), nil
		case OpGt:
			return c.Gt(operand), nil
		case OpLt:
			return c.Lt(operand), nil
		case OpGe:
			return c.Ge(operand), nil
		case OpLe:
			return c.Le(operand), nil
		case OpIn:
			items, ok := operand.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: IN 需要列表", ErrInvalidExpression)
			}
			return c.In(items...), nil
		default:
			return nil, fmt.Errorf("%w: 未知运算符 %q", ErrInvalidExpression, op)
		}
	}
	return nil, nil
}

func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
