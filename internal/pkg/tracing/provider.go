package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"factfit/internal/conf"
)

// NewProvider 根据配置创建 jaeger 上报的 TracerProvider 并注册为全局 provider
//
// endpoint 为空时不上报，只在进程内生成 trace id，返回的清理函数总是可调用。
func NewProvider(c *conf.Trace, serviceName, version string, logger log.Logger) (*sdktrace.TracerProvider, func(), error) {
	helper := log.NewHelper(logger)

	sampler := 1.0
	if c != nil && c.Sampler > 0 {
		sampler = c.Sampler
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampler))),
	}

	if c != nil && c.Endpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(c.Endpoint)))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
		helper.Infof("Tracing exports to %s with sampler %.2f", c.Endpoint, sampler)
	} else {
		helper.Info("Tracing endpoint not configured, spans are not exported")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	cleanup := func() {
		if err := Shutdown(context.Background(), tp); err != nil {
			helper.Errorf("Failed to shutdown tracer provider: %v", err)
		}
	}
	return tp, cleanup, nil
}

// Shutdown properly shuts down the tracer provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return tp.Shutdown(ctx)
}
