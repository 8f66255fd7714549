package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/LENAX/lazyflow/pkg/core/types"
	"github.com/LENAX/lazyflow/pkg/storage"
)

// statusFor 错误类别到HTTP状态码的映射
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrStructural),
		errors.Is(err, types.ErrCycle),
		errors.Is(err, types.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
