package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	OperationShopServiceCheckout         = "/factfit.staff.ShopService/Checkout"
	OperationShopServiceRedeem           = "/factfit.staff.ShopService/Redeem"
	OperationShopServiceCustomerCheckout = "/factfit.customer.ShopService/Checkout"
	OperationShopServiceCustomerRedeem   = "/factfit.customer.ShopService/Redeem"
)

// CartItemRequest 购物车中的一项
type CartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Qty       int64 `json:"qty" validate:"required,gt=0"`
}

// CartRequest 结算请求，customer_id 只对前台人员有效
type CartRequest struct {
	CustomerID int64              `json:"customer_id" validate:"required,gt=0"`
	Items      []*CartItemRequest `json:"items" validate:"required,min=1,dive,required"`
}

// CheckoutReply 结算结果
type CheckoutReply struct {
	Order        *biz.ShopOrder   `json:"order"`
	PointsEarned int64            `json:"points_earned,omitempty"`
	Debit        *biz.DebitResult `json:"debit,omitempty"`
}

// ShopService 商店结算接口
type ShopService struct {
	uc     *biz.ShopUsecase
	logger *log.Helper
}

// NewShopService 创建 ShopService 实例
func NewShopService(uc *biz.ShopUsecase, logger log.Logger) *ShopService {
	return &ShopService{uc: uc, logger: log.NewHelper(logger)}
}

// Checkout 现金结算
func (s *ShopService) Checkout(ctx context.Context, req *CartRequest) (*CheckoutReply, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopService.Checkout")
	defer span.End()

	s.logger.WithContext(ctx).Infof("Received Checkout request for customer %d", req.CustomerID)
	res, err := s.uc.Checkout(ctx, req.CustomerID, cartItems(req.Items))
	if err != nil {
		return nil, err
	}
	return checkoutReply(res), nil
}

// Redeem 积分兑换
func (s *ShopService) Redeem(ctx context.Context, req *CartRequest) (*CheckoutReply, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopService.Redeem")
	defer span.End()

	s.logger.WithContext(ctx).Infof("Received Redeem request for customer %d", req.CustomerID)
	res, err := s.uc.Redeem(ctx, req.CustomerID, cartItems(req.Items))
	if err != nil {
		return nil, err
	}
	return checkoutReply(res), nil
}

func cartItems(items []*CartItemRequest) []*biz.CartItem {
	out := make([]*biz.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, &biz.CartItem{ProductID: item.ProductID, Qty: item.Qty})
	}
	return out
}

func checkoutReply(res *biz.CheckoutResult) *CheckoutReply {
	return &CheckoutReply{Order: res.Order, PointsEarned: res.PointsEarned, Debit: res.Debit}
}

// RegisterShopServiceHTTPServer 注册商店路由
func RegisterShopServiceHTTPServer(s *http.Server, srv *ShopService) {
	r := s.Route("/")
	r.POST("/api/shop/checkout", func(ctx http.Context) error {
		var in CartRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationShopServiceCheckout, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Checkout(ctx, req.(*CartRequest))
		})
	})
	r.POST("/api/shop/redeem", func(ctx http.Context) error {
		var in CartRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationShopServiceRedeem, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Redeem(ctx, req.(*CartRequest))
		})
	})
	r.POST("/api/shop/customer/checkout", func(ctx http.Context) error {
		var in CartRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handleSelf(ctx, OperationShopServiceCustomerCheckout, &in, srv.Checkout)
	})
	r.POST("/api/shop/customer/redeem", func(ctx http.Context) error {
		var in CartRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handleSelf(ctx, OperationShopServiceCustomerRedeem, &in, srv.Redeem)
	})
}

// handleSelf 客户自助结算，customer_id 取自访问令牌
func handleSelf(ctx http.Context, operation string, in *CartRequest, fn func(context.Context, *CartRequest) (*CheckoutReply, error)) error {
	http.SetOperation(ctx, operation)
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		cart := req.(*CartRequest)
		id, err := selfCustomerID(c)
		if err != nil {
			return nil, err
		}
		cart.CustomerID = id
		if err := validateRequest(cart); err != nil {
			return nil, err
		}
		out, err := fn(c, cart)
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
