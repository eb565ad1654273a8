package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/http"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"factfit/internal/biz"
	"factfit/internal/conf"
	tracingpkg "factfit/internal/pkg/tracing"
	"factfit/internal/service"
)

// Services 注册到 HTTP 服务的全部接口
type Services struct {
	Auth       *service.AuthService
	Customer   *service.CustomerService
	Point      *service.PointService
	Plan       *service.PlanService
	Membership *service.MembershipService
	Product    *service.ProductService
	Shop       *service.ShopService
	Payment    *service.PaymentService
	Sales      *service.SalesService
	Profile    *service.ProfileService
	Workout    *service.WorkoutService
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, ac *conf.Auth, svcs *Services, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			tracing.Server(),
			logging.Server(logger),
			tracingpkg.HTTPErrorResponseEnhancer(), // 添加错误响应增强中间件
			selector.Server(
				jwt.Server(
					secretKey(ac.JwtSecret),
					jwt.WithSigningMethod(jwtv5.SigningMethodHS256),
					jwt.WithClaims(func() jwtv5.Claims { return &biz.Claims{} }),
				),
			).Match(requiresLogin).Build(),
			selector.Server(staffOnly()).Match(requiresStaff).Build(),
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout.Duration > 0 {
		opts = append(opts, http.Timeout(c.Http.Timeout.Duration))
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())

	service.RegisterAuthServiceHTTPServer(srv, svcs.Auth)
	service.RegisterCustomerServiceHTTPServer(srv, svcs.Customer)
	service.RegisterPointServiceHTTPServer(srv, svcs.Point)
	service.RegisterPlanServiceHTTPServer(srv, svcs.Plan)
	service.RegisterMembershipServiceHTTPServer(srv, svcs.Membership)
	service.RegisterProductServiceHTTPServer(srv, svcs.Product)
	service.RegisterShopServiceHTTPServer(srv, svcs.Shop)
	service.RegisterPaymentServiceHTTPServer(srv, svcs.Payment)
	service.RegisterSalesServiceHTTPServer(srv, svcs.Sales)
	service.RegisterProfileServiceHTTPServer(srv, svcs.Profile)
	service.RegisterWorkoutServiceHTTPServer(srv, svcs.Workout)
	return srv
}

func secretKey(secret string) jwtv5.Keyfunc {
	return func(*jwtv5.Token) (interface{}, error) {
		return []byte(secret), nil
	}
}

func requiresLogin(_ context.Context, operation string) bool {
	return !service.IsPublicOperation(operation)
}

func requiresStaff(_ context.Context, operation string) bool {
	return service.IsStaffOperation(operation)
}

// staffOnly 拒绝非前台人员的访问令牌
func staffOnly() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			claims, ok := service.CurrentClaims(ctx)
			if !ok {
				return nil, errors.Unauthorized(service.ReasonUnauthorized, "login required")
			}
			if !claims.IsStaff() {
				return nil, errors.Forbidden(service.ReasonForbidden, "staff role required")
			}
			return handler(ctx, req)
		}
	}
}
