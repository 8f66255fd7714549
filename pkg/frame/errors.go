package frame

import "errors"

var (
	ErrColumnNotFound    = errors.New("column not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrSourceNotFound    = errors.New("source not found")
	ErrReadOnlyFormat    = errors.New("format is read-only")
	ErrUnsupportedJoin   = errors.New("unsupported join direction")
	ErrInvalidExpression = errors.New("invalid expression")
)
