package server

import (
	"context"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/stretchr/testify/assert"

	"factfit/internal/biz"
	"factfit/internal/service"
)

func TestStaffOnly(t *testing.T) {
	next := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }
	h := staffOnly()(next)

	tests := []struct {
		name    string
		ctx     context.Context
		wantErr func(error) bool
	}{
		{name: "前台人员放行", ctx: jwt.NewContext(context.Background(), &biz.Claims{Role: biz.RoleStaff})},
		{name: "客户被拒绝", ctx: jwt.NewContext(context.Background(), &biz.Claims{Role: biz.RoleCustomer, CustomerID: 3}), wantErr: errors.IsForbidden},
		{name: "未登录", ctx: context.Background(), wantErr: errors.IsUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h(tt.ctx, nil)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.Equal(t, "ok", out)
				return
			}
			assert.True(t, tt.wantErr(err))
		})
	}
}

func TestOperationMatchers(t *testing.T) {
	ctx := context.Background()
	assert.False(t, requiresLogin(ctx, service.OperationAuthServiceLogin))
	assert.False(t, requiresLogin(ctx, service.OperationPaymentServiceValidateEntry))
	assert.True(t, requiresLogin(ctx, service.OperationPaymentServiceCreateQR))
	assert.True(t, requiresLogin(ctx, service.OperationShopServiceCustomerCheckout))

	assert.True(t, requiresLogin(ctx, service.OperationProfileServiceChangePassword))
	assert.True(t, requiresLogin(ctx, service.OperationWorkoutServiceAddLog))

	assert.True(t, requiresStaff(ctx, service.OperationCustomerServiceDelete))
	assert.True(t, requiresStaff(ctx, service.OperationSalesServiceReport))
	assert.False(t, requiresStaff(ctx, service.OperationPlanServiceList))
	assert.False(t, requiresStaff(ctx, service.OperationProfileServiceDelete))
}
