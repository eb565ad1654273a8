package tracing

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// HTTPErrorResponseEnhancer HTTP 错误响应增强中间件
//
// 把 handler 返回的错误统一转换为 Kratos 错误，并在 metadata 中补充 traceid 与 spanid。
// 请求头携带 X-Trace-ID 时优先使用请求头中的值。
func HTTPErrorResponseEnhancer() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			reply, err := handler(ctx, req)
			if err == nil {
				return reply, nil
			}

			kratosErr := errors.FromError(err)
			if httpReq, ok := http.RequestFromServerContext(ctx); ok {
				if traceID := httpReq.Header.Get("X-Trace-ID"); traceID != "" {
					if _, exists := kratosErr.Metadata[MetadataTraceID]; !exists {
						metadata := make(map[string]string, len(kratosErr.Metadata)+1)
						for k, v := range kratosErr.Metadata {
							metadata[k] = v
						}
						metadata[MetadataTraceID] = traceID
						kratosErr = kratosErr.WithMetadata(metadata)
					}
				}
			}
			return reply, WrapErrorWithTrace(ctx, kratosErr)
		}
	}
}
