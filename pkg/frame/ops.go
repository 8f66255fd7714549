package frame

import "fmt"

// Operation 变换操作（封闭集合：filter/select/sort/limit/join）
type Operation interface {
	Name() string
	apply(lf *LazyFrame) (*LazyFrame, error)
}

// FilterOp 按谓词过滤行
type FilterOp struct {
	Predicate Expr
}

func (FilterOp) Name() string { return "filter" }

func (o FilterOp) apply(lf *LazyFrame) (*LazyFrame, error) {
	if o.Predicate == nil {
		return nil, fmt.Errorf("%w: filter 缺少谓词", ErrInvalidExpression)
	}
	return lf.Filter(o.Predicate), nil
}

// SelectOp 选择列
type SelectOp struct {
	Columns []string
}

func (SelectOp) Name() string { return "select" }

func (o SelectOp) apply(lf *LazyFrame) (*LazyFrame, error) {
	if len(o.Columns) == 0 {
		return nil, fmt.Errorf("select 至少需要一列")
	}
	return lf.Select(o.Columns...), nil
}

// SortOp 稳定排序
type SortOp struct {
	Keys      []SortKey
	NullsLast bool
}

func (SortOp) Name() string { return "sort" }

func (o SortOp) apply(lf *LazyFrame) (*LazyFrame, error) {
	if len(o.Keys) == 0 {
		return nil, fmt.Errorf("sort 至少需要一个排序键")
	}
	return lf.Sort(o.Keys, o.NullsLast), nil
}

// LimitOp 取前 N 行
type LimitOp struct {
	N int
}

func (LimitOp) Name() string { return "limit" }

func (o LimitOp) apply(lf *LazyFrame) (*LazyFrame, error) {
	if o.N < 0 {
		return nil, fmt.Errorf("limit 不能为负数: %d", o.N)
	}
	return lf.Limit(o.N), nil
}

// JoinOp 与另一个 LazyFrame 连接
type JoinOp struct {
	Other *LazyFrame
	On    []string
	How   JoinHow
}

func (JoinOp) Name() string { return "join" }

func (o JoinOp) apply(lf *LazyFrame) (*LazyFrame, error) {
	return join(lf, o.Other, o.On, o.How)
}

func join(a, b *LazyFrame, on []string, how JoinHow) (*LazyFrame, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("join 的两侧都不能为空")
	}
	if len(on) == 0 {
		return nil, fmt.Errorf("join 需要至少一个键列")
	}
	switch how {
	case JoinLeft, JoinInner, JoinOuter, JoinSemi, JoinAnti:
	case "":
		how = JoinLeft
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJoin, how)
	}
	return a.Join(b, on, how), nil
}
