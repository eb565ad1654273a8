package data

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"

	"factfit/internal/biz"
	"factfit/internal/conf"
	"factfit/internal/pkg/tracing"
)

const (
	midtransProvider   = "midtrans"
	qrActionGenerateQR = "generate-qr-code"
	defaultQRAcquirer  = "gopay"
)

// qrisCharger 对应 coreapi.Client 的收款调用
type qrisCharger interface {
	ChargeTransaction(req *coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error)
}

// midtransGateway Midtrans Core API QRIS 收款
type midtransGateway struct {
	client    qrisCharger
	serverKey string
	acquirer  string
	logger    *log.Helper
}

// NewMidtransGateway 创建 Midtrans 支付网关
func NewMidtransGateway(c *conf.Payment, logger log.Logger) biz.PaymentGateway {
	env := midtrans.Sandbox
	if c.Production {
		env = midtrans.Production
	}
	client := &coreapi.Client{}
	client.New(c.ServerKey, env)
	return newMidtransGateway(client, c, logger)
}

func newMidtransGateway(client qrisCharger, c *conf.Payment, logger log.Logger) *midtransGateway {
	acquirer := c.Acquirer
	if acquirer == "" {
		acquirer = defaultQRAcquirer
	}
	return &midtransGateway{
		client:    client,
		serverKey: c.ServerKey,
		acquirer:  acquirer,
		logger:    log.NewHelper(logger),
	}
}

func (g *midtransGateway) Provider() string {
	return midtransProvider
}

// CreateQRCharge 创建 QRIS 收款，返回二维码图片地址
func (g *midtransGateway) CreateQRCharge(ctx context.Context, req *biz.ChargeRequest) (*biz.Charge, error) {
	ctx, span := tracing.StartSpan(ctx, "MidtransGateway.CreateQRCharge")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"order_ref": req.OrderRef,
		"amount":    req.Amount,
	})

	chargeReq := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeQris,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderRef,
			GrossAmt: req.Amount,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ItemID,
				Name:  req.ItemName,
				Price: req.Amount,
				Qty:   1,
			},
		},
		Qris: &coreapi.QrisDetails{
			Acquirer: g.acquirer,
		},
	}
	if req.Email != "" {
		chargeReq.CustomerDetails = &midtrans.CustomerDetails{Email: req.Email}
	}

	g.logger.WithContext(ctx).Infof("Creating QRIS charge for order %s, amount: %d", req.OrderRef, req.Amount)
	resp, merr := g.client.ChargeTransaction(chargeReq)
	if merr != nil {
		tracing.RecordError(ctx, merr)
		g.logger.WithContext(ctx).Errorf("Midtrans charge failed for order %s, status_code: %d, error_reason: %s", req.OrderRef, merr.StatusCode, merr.Message)
		return nil, fmt.Errorf("midtrans charge: %s", merr.Message)
	}
	if resp == nil {
		return nil, fmt.Errorf("midtrans charge: empty response")
	}

	charge := &biz.Charge{
		ID:     resp.TransactionID,
		Status: resp.TransactionStatus,
	}
	for _, action := range resp.Actions {
		if action.Name == qrActionGenerateQR {
			charge.QRImageURL = action.URL
			break
		}
	}
	if charge.ID == "" {
		return nil, fmt.Errorf("midtrans charge: missing transaction id (status %s)", resp.StatusCode)
	}

	g.logger.WithContext(ctx).Infof("QRIS charge %s created for order %s", charge.ID, req.OrderRef)
	return charge, nil
}

// VerifySignature 校验 SHA512(order_id + status_code + gross_amount + server_key)
func (g *midtransGateway) VerifySignature(n *biz.GatewayNotification) bool {
	if g.serverKey == "" || n.SignatureKey == "" {
		return false
	}
	want := strings.ToLower(n.SignatureKey)
	got := notificationSignature(n.OrderID, n.StatusCode, n.GrossAmount, g.serverKey)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func notificationSignature(orderID, statusCode, grossAmount, serverKey string) string {
	h := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(h[:])
}
