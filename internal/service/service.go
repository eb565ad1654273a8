package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/go-playground/validator/v10"
	"github.com/google/wire"

	"factfit/internal/biz"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewAuthService,
	NewCustomerService,
	NewPointService,
	NewPlanService,
	NewMembershipService,
	NewProductService,
	NewShopService,
	NewPaymentService,
	NewSalesService,
	NewProfileService,
	NewWorkoutService,
)

// operation 前缀决定鉴权方式
const (
	scopePublic   = "/factfit.public."
	scopeAny      = "/factfit.any."
	scopeStaff    = "/factfit.staff."
	scopeCustomer = "/factfit.customer."
)

// IsPublicOperation 无需登录的接口
func IsPublicOperation(operation string) bool {
	return strings.HasPrefix(operation, scopePublic)
}

// IsStaffOperation 仅限前台人员的接口
func IsStaffOperation(operation string) bool {
	return strings.HasPrefix(operation, scopeStaff)
}

var validate = validator.New()

// CurrentClaims 取出 JWT 中间件解析的访问令牌声明
func CurrentClaims(ctx context.Context) (*biz.Claims, bool) {
	claims, ok := jwt.FromContext(ctx)
	if !ok {
		return nil, false
	}
	c, ok := claims.(*biz.Claims)
	return c, ok
}

// handle 设置 operation 后经过中间件链调用 fn 并写出结果
func handle(ctx http.Context, operation string, in interface{}, fn func(ctx context.Context, req interface{}) (interface{}, error)) error {
	http.SetOperation(ctx, operation)
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		if req != nil {
			if err := validateRequest(req); err != nil {
				return nil, toHTTPError(c, err)
			}
		}
		out, err := fn(c, req)
		if err != nil {
			return nil, toHTTPError(c, err)
		}
		return out, nil
	})
	out, err := h(ctx, in)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return badRequest("field %s failed on %s", fe.Field(), fe.Tag())
	}
	return badRequest("%v", err)
}

// bind 解析请求体
func bind(ctx http.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		return badRequest("malformed request body: %v", err)
	}
	return nil
}

// pathID 解析路径中的正整数 id
func pathID(ctx http.Context, name string) (int64, error) {
	raw := ctx.Vars().Get(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate 接受 RFC3339 或 YYYY-MM-DD，空串返回 nil
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, badRequest("invalid date %q", raw)
}

// requireSelfOrStaff 非前台人员只能访问自己的数据
func requireSelfOrStaff(ctx context.Context, customerID int64) error {
	claims, ok := CurrentClaims(ctx)
	if !ok {
		return unauthorized()
	}
	if claims.IsStaff() || claims.CustomerID == customerID {
		return nil
	}
	return forbidden()
}

// selfCustomerID 当前登录客户的 id
func selfCustomerID(ctx context.Context) (int64, error) {
	claims, ok := CurrentClaims(ctx)
	if !ok || claims.CustomerID <= 0 {
		return 0, unauthorized()
	}
	return claims.CustomerID, nil
}
