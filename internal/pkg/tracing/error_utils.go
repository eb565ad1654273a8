package tracing

import (
	"context"
	"fmt"

	errors "github.com/go-kratos/kratos/v2/errors"
)

// 错误 metadata 中的追踪字段
const (
	MetadataTraceID = "traceid"
	MetadataSpanID  = "spanid"
)

// NewErrorWithTrace 创建带追踪信息的错误
func NewErrorWithTrace(ctx context.Context, code int, reason, format string, args ...interface{}) *errors.Error {
	return WrapErrorWithTrace(ctx, errors.New(code, reason, fmt.Sprintf(format, args...)))
}

// WrapErrorWithTrace 为已有错误补充追踪信息，保留原有 metadata
func WrapErrorWithTrace(ctx context.Context, err *errors.Error) *errors.Error {
	if err == nil {
		return nil
	}

	traceInfo := ExtractTraceInfo(ctx)
	if traceInfo.TraceID == "" && traceInfo.SpanID == "" {
		return err
	}
	if _, ok := err.Metadata[MetadataTraceID]; ok {
		return err
	}

	metadata := make(map[string]string, len(err.Metadata)+2)
	for k, v := range err.Metadata {
		metadata[k] = v
	}
	metadata[MetadataTraceID] = traceInfo.TraceID
	metadata[MetadataSpanID] = traceInfo.SpanID
	return err.WithMetadata(metadata)
}

// ExtractTraceInfoFromError 从错误中提取追踪信息
func ExtractTraceInfoFromError(err error) (string, string, bool) {
	if err == nil {
		return "", "", false
	}

	e := errors.FromError(err)
	if e == nil {
		return "", "", false
	}

	traceID, traceIDExists := e.Metadata[MetadataTraceID]
	spanID, spanIDExists := e.Metadata[MetadataSpanID]
	if traceIDExists && spanIDExists {
		return traceID, spanID, true
	}
	return "", "", false
}
