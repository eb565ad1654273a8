package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// paymentOrderRepository 支付订单数据访问实现
type paymentOrderRepository struct {
	data   *Data
	logger *log.Helper
}

// NewPaymentOrderRepository 创建支付订单数据访问实例
func NewPaymentOrderRepository(data *Data, logger log.Logger) biz.PaymentOrderRepository {
	return &paymentOrderRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *paymentOrderRepository) Create(ctx context.Context, order *biz.PaymentOrder) error {
	ctx, span := tracing.StartSpan(ctx, "PaymentOrderRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"ref_code":    order.RefCode,
		"customer_id": order.CustomerID,
		"amount":      order.Amount,
	})

	r.logger.WithContext(ctx).Infof("Creating payment order %s for customer_id: %d", order.RefCode, order.CustomerID)
	if err := r.data.DB(ctx).Create(order).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create payment order %s, error_reason: %v", order.RefCode, err)
		return err
	}
	return nil
}

func (r *paymentOrderRepository) GetByID(ctx context.Context, id int64) (*biz.PaymentOrder, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentOrderRepository.GetByID")
	defer span.End()

	var order biz.PaymentOrder
	if err := r.data.DB(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *paymentOrderRepository) LockByRefCode(ctx context.Context, refCode string) (*biz.PaymentOrder, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentOrderRepository.LockByRefCode")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"ref_code": refCode})

	var order biz.PaymentOrder
	err := r.data.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ref_code = ?", refCode).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *paymentOrderRepository) SetCharge(ctx context.Context, id int64, chargeID string) error {
	ctx, span := tracing.StartSpan(ctx, "PaymentOrderRepository.SetCharge")
	defer span.End()

	return r.data.DB(ctx).
		Model(&biz.PaymentOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"charge_id":  chargeID,
			"updated_at": time.Now(),
		}).Error
}

func (r *paymentOrderRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time, membershipID int64, start, end time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentOrderRepository.MarkPaid")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"order_id":      id,
		"membership_id": membershipID,
	})

	res := r.data.DB(ctx).
		Model(&biz.PaymentOrder{}).
		Where("id = ? AND status = ?", id, biz.OrderPending).
		Updates(map[string]interface{}{
			"status":        biz.OrderPaid,
			"paid_at":       paidAt,
			"membership_id": membershipID,
			"start_date":    start,
			"end_date":      end,
			"updated_at":    paidAt,
		})
	if res.Error != nil {
		r.logger.WithContext(ctx).Errorf("Failed to mark payment order %d paid, error_reason: %v", id, res.Error)
		return 0, res.Error
	}

	r.logger.WithContext(ctx).Infof("Marked payment order %d paid, rows affected: %d", id, res.RowsAffected)
	return res.RowsAffected, nil
}

func (r *paymentOrderRepository) MarkCancelled(ctx context.Context, id int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentOrderRepository.MarkCancelled")
	defer span.End()

	res := r.data.DB(ctx).
		Model(&biz.PaymentOrder{}).
		Where("id = ? AND status = ?", id, biz.OrderPending).
		Updates(map[string]interface{}{
			"status":     biz.OrderCancelled,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		r.logger.WithContext(ctx).Errorf("Failed to cancel payment order %d, error_reason: %v", id, res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// entryQRRepository 入场二维码数据访问实现
type entryQRRepository struct {
	data   *Data
	logger *log.Helper
}

// NewEntryQRRepository 创建入场二维码数据访问实例
func NewEntryQRRepository(data *Data, logger log.Logger) biz.EntryQRRepository {
	return &entryQRRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *entryQRRepository) Create(ctx context.Context, qr *biz.EntryQR) error {
	ctx, span := tracing.StartSpan(ctx, "EntryQRRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"order_id": qr.OrderID})

	if err := r.data.DB(ctx).Create(qr).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create entry qr for order %d, error_reason: %v", qr.OrderID, err)
		return err
	}
	return nil
}

func (r *entryQRRepository) LatestByOrder(ctx context.Context, orderID int64) (*biz.EntryQR, error) {
	ctx, span := tracing.StartSpan(ctx, "EntryQRRepository.LatestByOrder")
	defer span.End()

	var qr biz.EntryQR
	if err := r.data.DB(ctx).Where("order_id = ?", orderID).Order("id DESC").First(&qr).Error; err != nil {
		return nil, err
	}
	return &qr, nil
}

func (r *entryQRRepository) GetByToken(ctx context.Context, token string) (*biz.EntryQR, error) {
	ctx, span := tracing.StartSpan(ctx, "EntryQRRepository.GetByToken")
	defer span.End()

	var qr biz.EntryQR
	if err := r.data.DB(ctx).Where("token = ?", token).First(&qr).Error; err != nil {
		return nil, err
	}
	return &qr, nil
}

// gatewayEventRepository 支付网关回调日志数据访问实现
type gatewayEventRepository struct {
	data   *Data
	logger *log.Helper
}

// NewGatewayEventRepository 创建回调日志数据访问实例
func NewGatewayEventRepository(data *Data, logger log.Logger) biz.GatewayEventRepository {
	return &gatewayEventRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *gatewayEventRepository) Create(ctx context.Context, event *biz.PaymentGatewayEvent) error {
	ctx, span := tracing.StartSpan(ctx, "GatewayEventRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"provider":  event.Provider,
		"order_ref": event.OrderRef,
		"outcome":   event.Outcome,
	})

	if err := r.data.DB(ctx).Create(event).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to record gateway event for %s, error_reason: %v", event.OrderRef, err)
		return err
	}
	return nil
}
