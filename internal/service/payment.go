package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	OperationPaymentServiceCreateQR      = "/factfit.any.PaymentService/CreateQR"
	OperationPaymentServiceStatus        = "/factfit.any.PaymentService/Status"
	OperationPaymentServiceEntryQR       = "/factfit.any.PaymentService/EntryQR"
	OperationPaymentServiceWebhook       = "/factfit.public.PaymentService/Webhook"
	OperationPaymentServiceValidateEntry = "/factfit.public.PaymentService/ValidateEntry"
)

// maxWebhookBody 网关通知体积上限
const maxWebhookBody = 1 << 20

// CreateQRRequest 申请会员支付二维码，plan_id 与 plan_name 二选一
type CreateQRRequest struct {
	CustomerID int64  `json:"customer_id" validate:"gte=0"`
	PlanID     int64  `json:"plan_id" validate:"required_without=PlanName,gte=0"`
	PlanName   string `json:"plan_name" validate:"max=128"`
	Amount     int64  `json:"amount" validate:"gte=0"`
	Email      string `json:"email" validate:"omitempty,email"`
	StartDate  string `json:"start_date"`
}

// CreateQRReply 二维码支付信息
type CreateQRReply struct {
	OrderID    int64      `json:"order_id"`
	RefCode    string     `json:"ref_code"`
	ChargeID   string     `json:"charge_id"`
	QRImageURL string     `json:"qr_image_url"`
	Amount     int64      `json:"amount"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// OrderIDRequest 路径中的订单 id
type OrderIDRequest struct {
	ID int64 `json:"-" validate:"required,gt=0"`
}

// EntryTokenRequest 路径中的入场令牌
type EntryTokenRequest struct {
	Token string `json:"-" validate:"required,max=64"`
}

// WebhookReply 网关通知处理结果
type WebhookReply struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
	OrderID  int64  `json:"order_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

// EntryReply 入场校验结果
type EntryReply struct {
	Valid      bool      `json:"valid"`
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
}

// PaymentService 会员二维码支付与入场接口
type PaymentService struct {
	uc     *biz.PaymentUsecase
	logger *log.Helper
}

// NewPaymentService 创建 PaymentService 实例
func NewPaymentService(uc *biz.PaymentUsecase, logger log.Logger) *PaymentService {
	return &PaymentService{uc: uc, logger: log.NewHelper(logger)}
}

// CreateQR 创建支付二维码，非前台人员只能为自己下单
func (s *PaymentService) CreateQR(ctx context.Context, req *CreateQRRequest) (*CreateQRReply, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentService.CreateQR")
	defer span.End()

	claims, ok := CurrentClaims(ctx)
	if !ok {
		return nil, unauthorized()
	}
	customerID := req.CustomerID
	if !claims.IsStaff() {
		customerID = claims.CustomerID
	}
	if customerID <= 0 {
		return nil, badRequest("customer_id is required")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": customerID,
		"plan_id":     req.PlanID,
	})
	s.logger.WithContext(ctx).Infof("Received CreateQR request for customer %d", customerID)

	p, err := s.uc.CreateQRPayment(ctx, &biz.QRPaymentRequest{
		CustomerID: customerID,
		PlanID:     req.PlanID,
		PlanName:   req.PlanName,
		Amount:     req.Amount,
		Email:      req.Email,
		StartDate:  start,
	})
	if err != nil {
		return nil, err
	}
	return &CreateQRReply{
		OrderID:    p.OrderID,
		RefCode:    p.RefCode,
		ChargeID:   p.ChargeID,
		QRImageURL: p.QRImageURL,
		Amount:     p.Amount,
		Status:     string(p.Status),
		ExpiresAt:  p.ExpiresAt,
	}, nil
}

func (s *PaymentService) Status(ctx context.Context, req *OrderIDRequest) (*biz.PaymentOrder, error) {
	order, err := s.uc.Status(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrStaff(ctx, order.CustomerID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PaymentService) EntryQR(ctx context.Context, req *OrderIDRequest) (*biz.EntryQR, error) {
	if _, err := s.Status(ctx, req); err != nil {
		return nil, err
	}
	return s.uc.EntryQR(ctx, req.ID)
}

// Webhook 处理网关异步通知，raw 原样记录
func (s *PaymentService) Webhook(ctx context.Context, raw []byte) (*WebhookReply, error) {
	var n biz.GatewayNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		s.logger.WithContext(ctx).Warnf("Malformed payment notification: %v", err)
		return nil, badRequest("malformed notification: %v", err)
	}
	res, err := s.uc.HandleNotification(ctx, &n, raw)
	if err != nil {
		return nil, err
	}
	return &WebhookReply{
		Received: true,
		Outcome:  res.Outcome,
		OrderID:  res.OrderID,
		Status:   string(res.Status),
	}, nil
}

func (s *PaymentService) ValidateEntry(ctx context.Context, req *EntryTokenRequest) (*EntryReply, error) {
	pass, err := s.uc.ValidateEntry(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	return &EntryReply{
		Valid:      true,
		OrderID:    pass.OrderID,
		CustomerID: pass.CustomerID,
		ValidFrom:  pass.ValidFrom,
		ValidUntil: pass.ValidUntil,
	}, nil
}

// RegisterPaymentServiceHTTPServer 注册支付与入场路由
func RegisterPaymentServiceHTTPServer(s *http.Server, srv *PaymentService) {
	r := s.Route("/")
	r.POST("/api/payment/qrcode", func(ctx http.Context) error {
		var in CreateQRRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationPaymentServiceCreateQR, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.CreateQR(ctx, req.(*CreateQRRequest))
		})
	})
	r.GET("/api/payment/status/{orderId}", func(ctx http.Context) error {
		id, err := pathID(ctx, "orderId")
		if err != nil {
			return err
		}
		return handle(ctx, OperationPaymentServiceStatus, &OrderIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Status(ctx, req.(*OrderIDRequest))
		})
	})
	r.GET("/api/payment/entry-qr/{orderId}", func(ctx http.Context) error {
		id, err := pathID(ctx, "orderId")
		if err != nil {
			return err
		}
		return handle(ctx, OperationPaymentServiceEntryQR, &OrderIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.EntryQR(ctx, req.(*OrderIDRequest))
		})
	})
	r.POST("/api/payment/webhook", func(ctx http.Context) error {
		raw, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBody))
		if err != nil {
			return badRequest("read notification: %v", err)
		}
		return handle(ctx, OperationPaymentServiceWebhook, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.Webhook(ctx, raw)
		})
	})
	r.GET("/api/entry/{token}", func(ctx http.Context) error {
		in := &EntryTokenRequest{Token: ctx.Vars().Get("token")}
		return handle(ctx, OperationPaymentServiceValidateEntry, in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ValidateEntry(ctx, req.(*EntryTokenRequest))
		})
	})
}
