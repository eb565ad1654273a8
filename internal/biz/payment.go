package biz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"factfit/internal/conf"
	"factfit/internal/pkg/tracing"
)

// OrderStatus 支付订单状态，只能从 PENDING 前进到 PAID 或 CANCELLED
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
)

// 支付回调处理结果
const (
	NotificationPaid      = "paid"
	NotificationCancelled = "cancelled"
	NotificationIgnored   = "ignored"
	NotificationDuplicate = "duplicate"
	NotificationRejected  = "rejected"
)

// notificationDedupeTTL 回调去重窗口
const notificationDedupeTTL = 24 * time.Hour

var (
	// ErrAmountMismatch 支付金额与套餐价格不一致
	ErrAmountMismatch = errors.New("amount does not match plan price")

	// ErrPaymentGateway 支付网关调用失败
	ErrPaymentGateway = errors.New("payment gateway failure")

	// ErrEntryNotStarted 入场二维码对应的会员期尚未开始
	ErrEntryNotStarted = errors.New("entry qr not yet valid")
)

// PaymentOrder 会员支付订单表
type PaymentOrder struct {
	ID           int64       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RefCode      string      `gorm:"column:ref_code;size:64;uniqueIndex;not null" json:"ref_code"`
	CustomerID   int64       `gorm:"column:customer_id;not null;index" json:"customer_id"`
	PlanID       int64       `gorm:"column:plan_id;not null" json:"plan_id"`
	MembershipID *int64      `gorm:"column:membership_id" json:"membership_id"`
	Email        string      `gorm:"column:email;size:191" json:"email"`
	Amount       int64       `gorm:"column:amount;not null" json:"amount"`
	Currency     string      `gorm:"column:currency;size:8;not null" json:"currency"`
	Status       OrderStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	StartDate    time.Time   `gorm:"column:start_date;not null" json:"start_date"`
	EndDate      time.Time   `gorm:"column:end_date;not null" json:"end_date"`
	ChargeID     *string     `gorm:"column:charge_id;size:128" json:"charge_id"`
	PaidAt       *time.Time  `gorm:"column:paid_at" json:"paid_at"`
	CreatedAt    time.Time   `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName 指定表名
func (PaymentOrder) TableName() string {
	return "payment_orders"
}

// EntryQR 入场二维码表
type EntryQR struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"column:order_id;not null;index" json:"order_id"`
	Token     string    `gorm:"column:token;size:64;uniqueIndex;not null" json:"token"`
	Link      string    `gorm:"column:link;size:255;not null" json:"link"`
	DataURL   string    `gorm:"column:data_url;type:text;not null" json:"data_url"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName 指定表名
func (EntryQR) TableName() string {
	return "entry_qr"
}

// PaymentGatewayEvent 支付网关回调日志表
type PaymentGatewayEvent struct {
	ID                int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Provider          string         `gorm:"column:provider;size:32;not null" json:"provider"`
	OrderRef          string         `gorm:"column:order_ref;size:64;index" json:"order_ref"`
	TransactionID     string         `gorm:"column:transaction_id;size:128" json:"transaction_id"`
	TransactionStatus string         `gorm:"column:transaction_status;size:32" json:"transaction_status"`
	Outcome           string         `gorm:"column:outcome;size:16;not null" json:"outcome"`
	Error             string         `gorm:"column:error;size:512" json:"error"`
	Payload           datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName 指定表名
func (PaymentGatewayEvent) TableName() string {
	return "payment_gateway_events"
}

// GatewayNotification 支付网关异步通知
type GatewayNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

// ChargeRequest 创建二维码收款参数
type ChargeRequest struct {
	OrderRef string
	Amount   int64
	Email    string
	ItemID   string
	ItemName string
}

// Charge 网关返回的收款信息
type Charge struct {
	ID         string
	Status     string
	QRImageURL string
	ExpiresAt  *time.Time
}

// PaymentGateway 支付网关
type PaymentGateway interface {
	Provider() string
	CreateQRCharge(ctx context.Context, req *ChargeRequest) (*Charge, error)
	VerifySignature(n *GatewayNotification) bool
}

// PaymentOrderRepository 支付订单数据访问接口
type PaymentOrderRepository interface {
	Create(ctx context.Context, order *PaymentOrder) error
	GetByID(ctx context.Context, id int64) (*PaymentOrder, error)
	// LockByRefCode 在当前事务中锁定订单行
	LockByRefCode(ctx context.Context, refCode string) (*PaymentOrder, error)
	SetCharge(ctx context.Context, id int64, chargeID string) error
	// MarkPaid 仅当订单仍为 PENDING 时生效，返回受影响行数
	MarkPaid(ctx context.Context, id int64, paidAt time.Time, membershipID int64, start, end time.Time) (int64, error)
	// MarkCancelled 仅当订单仍为 PENDING 时生效，返回受影响行数
	MarkCancelled(ctx context.Context, id int64) (int64, error)
}

// EntryQRRepository 入场二维码数据访问接口
type EntryQRRepository interface {
	Create(ctx context.Context, qr *EntryQR) error
	LatestByOrder(ctx context.Context, orderID int64) (*EntryQR, error)
	GetByToken(ctx context.Context, token string) (*EntryQR, error)
}

// GatewayEventRepository 回调日志数据访问接口
type GatewayEventRepository interface {
	Create(ctx context.Context, event *PaymentGatewayEvent) error
}

// EntryTokenStore 入场令牌缓存，Get 未命中时返回 ErrEntryNotFound
type EntryTokenStore interface {
	Put(ctx context.Context, token string, orderID int64, ttl time.Duration) error
	Get(ctx context.Context, token string) (int64, error)
}

// NotificationDeduper 回调去重，首次出现返回 true
//
// 处理失败时调用 Forget 释放 key，网关重投的同一通知才能再次进入处理。
type NotificationDeduper interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Mailer 邮件发送
type Mailer interface {
	SendEntryQR(ctx context.Context, to string, order *PaymentOrder, qr *EntryQR) error
}

// RefCodeGenerator 订单号生成
type RefCodeGenerator interface {
	GenerateIDString() string
}

// EntryCodeIssuer 入场令牌与二维码图片
type EntryCodeIssuer interface {
	NewToken() string
	DataURL(content string) (string, error)
}

// PaymentMetrics 支付业务指标
type PaymentMetrics interface {
	PaymentNotification(outcome string)
}

// QRPaymentRequest 创建二维码支付参数，PlanID 与 PlanName 二选一
type QRPaymentRequest struct {
	CustomerID int64
	PlanID     int64
	PlanName   string
	Amount     int64
	Email      string
	StartDate  *time.Time
}

// QRPayment 二维码支付结果
type QRPayment struct {
	OrderID    int64
	RefCode    string
	ChargeID   string
	QRImageURL string
	Amount     int64
	Status     OrderStatus
	ExpiresAt  *time.Time
}

// NotificationResult 回调处理结果
type NotificationResult struct {
	Outcome string
	OrderID int64
	Status  OrderStatus
}

// EntryPass 入场校验结果
type EntryPass struct {
	OrderID    int64
	CustomerID int64
	ValidFrom  time.Time
	ValidUntil time.Time
}

// PaymentUsecase 会员支付与入场二维码
type PaymentUsecase struct {
	orders      PaymentOrderRepository
	entries     EntryQRRepository
	events      GatewayEventRepository
	plans       PlanRepository
	customers   CustomerRepository
	history     HistoryRepository
	memberships *MembershipUsecase
	gateway     PaymentGateway
	tokens      EntryTokenStore
	dedupe      NotificationDeduper
	mailer      Mailer
	refCodes    RefCodeGenerator
	issuer      EntryCodeIssuer
	tx          Transaction
	metrics     PaymentMetrics
	currency    string
	entryBase   string
	now         func() time.Time
	log         *log.Helper
}

// PaymentDeps 支付业务依赖的外部组件
type PaymentDeps struct {
	Gateway  PaymentGateway
	Tokens   EntryTokenStore
	Dedupe   NotificationDeduper
	Mailer   Mailer
	RefCodes RefCodeGenerator
	Issuer   EntryCodeIssuer
	Metrics  PaymentMetrics
}

// NewPaymentUsecase 创建支付业务逻辑实例
func NewPaymentUsecase(orders PaymentOrderRepository, entries EntryQRRepository, events GatewayEventRepository,
	plans PlanRepository, customers CustomerRepository, history HistoryRepository, memberships *MembershipUsecase,
	tx Transaction, deps *PaymentDeps, pc *conf.Payment, ec *conf.Entry, logger log.Logger) *PaymentUsecase {
	currency := pc.Currency
	if currency == "" {
		currency = "IDR"
	}
	return &PaymentUsecase{
		orders:      orders,
		entries:     entries,
		events:      events,
		plans:       plans,
		customers:   customers,
		history:     history,
		memberships: memberships,
		gateway:     deps.Gateway,
		tokens:      deps.Tokens,
		dedupe:      deps.Dedupe,
		mailer:      deps.Mailer,
		refCodes:    deps.RefCodes,
		issuer:      deps.Issuer,
		tx:          tx,
		metrics:     deps.Metrics,
		currency:    currency,
		entryBase:   strings.TrimRight(ec.BaseURL, "/"),
		now:         time.Now,
		log:         log.NewHelper(logger),
	}
}

// CreateQRPayment 创建待支付订单并向网关申请二维码
func (uc *PaymentUsecase) CreateQRPayment(ctx context.Context, req *QRPaymentRequest) (*QRPayment, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentUsecase.CreateQRPayment")
	defer span.End()

	uc.log.WithContext(ctx).Infof("Creating QR payment for customer %d", req.CustomerID)

	plan, iv, err := uc.resolvePlan(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Amount > 0 && req.Amount != plan.Price {
		return nil, ErrAmountMismatch
	}

	customer, err := uc.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, storageError("get customer", err)
	}
	email := req.Email
	if email == "" {
		email = customer.Email
	}

	now := uc.now()
	start := now
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = *req.StartDate
	}
	order := &PaymentOrder{
		RefCode:    "ORD-" + uc.refCodes.GenerateIDString(),
		CustomerID: customer.ID,
		PlanID:     plan.ID,
		Email:      email,
		Amount:     plan.Price,
		Currency:   uc.currency,
		Status:     OrderPending,
		StartDate:  start,
		EndDate:    iv.AddTo(start),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.orders.Create(ctx, order); err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to create payment order: %v", err)
		return nil, storageError("create payment order", err)
	}

	charge, err := uc.gateway.CreateQRCharge(ctx, &ChargeRequest{
		OrderRef: order.RefCode,
		Amount:   order.Amount,
		Email:    email,
		ItemID:   plan.Code,
		ItemName: plan.Name,
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Gateway charge failed for order %s: %v", order.RefCode, err)
		if _, cerr := uc.orders.MarkCancelled(ctx, order.ID); cerr != nil {
			uc.log.WithContext(ctx).Errorf("Failed to cancel order %s after gateway failure: %v", order.RefCode, cerr)
		}
		return nil, fmt.Errorf("%w: %w", ErrPaymentGateway, err)
	}
	if err := uc.orders.SetCharge(ctx, order.ID, charge.ID); err != nil {
		return nil, storageError("store charge id", err)
	}

	uc.log.WithContext(ctx).Infof("QR payment created: order %s charge %s", order.RefCode, charge.ID)
	return &QRPayment{
		OrderID:    order.ID,
		RefCode:    order.RefCode,
		ChargeID:   charge.ID,
		QRImageURL: charge.QRImageURL,
		Amount:     order.Amount,
		Status:     order.Status,
		ExpiresAt:  charge.ExpiresAt,
	}, nil
}

func (uc *PaymentUsecase) resolvePlan(ctx context.Context, req *QRPaymentRequest) (*Plan, Interval, error) {
	if req.PlanID > 0 {
		return activePlan(ctx, uc.plans, req.PlanID)
	}
	if req.PlanName == "" {
		return nil, Interval{}, ErrInvalidPlan
	}
	plan, err := uc.plans.GetByName(ctx, req.PlanName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Interval{}, ErrInvalidPlan
		}
		return nil, Interval{}, storageError("get plan by name", err)
	}
	return activePlan(ctx, uc.plans, plan.ID)
}

// HandleNotification 处理支付网关异步通知
//
// 签名错误返回 ErrInvalidSignature；订单不存在、状态已终结或重复通知均视为已处理。
func (uc *PaymentUsecase) HandleNotification(ctx context.Context, n *GatewayNotification, raw []byte) (*NotificationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentUsecase.HandleNotification")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"order_ref":          n.OrderID,
		"transaction_status": n.TransactionStatus,
	})

	uc.log.WithContext(ctx).Infof("Payment notification for %s: %s", n.OrderID, n.TransactionStatus)

	if n.OrderID == "" || !uc.gateway.VerifySignature(n) {
		uc.recordEvent(ctx, n, raw, NotificationRejected, "invalid signature")
		uc.metrics.PaymentNotification(NotificationRejected)
		return nil, ErrInvalidSignature
	}

	dedupeKey := n.OrderID + ":" + n.TransactionStatus
	first, err := uc.dedupe.FirstSeen(ctx, dedupeKey, notificationDedupeTTL)
	if err != nil {
		// 去重失败时继续处理，订单状态条件更新保证幂等
		uc.log.WithContext(ctx).Warnf("Notification dedupe unavailable: %v", err)
		first = true
	}
	if !first {
		uc.metrics.PaymentNotification(NotificationDuplicate)
		return &NotificationResult{Outcome: NotificationDuplicate}, nil
	}

	var result *NotificationResult
	switch classifyNotification(n) {
	case OrderPaid:
		result, err = uc.confirm(ctx, n)
	case OrderCancelled:
		result, err = uc.cancel(ctx, n)
	default:
		result = &NotificationResult{Outcome: NotificationIgnored}
	}
	if err != nil {
		uc.recordEvent(ctx, n, raw, "failed", err.Error())
		uc.log.WithContext(ctx).Errorf("Failed to apply notification for %s: %v", n.OrderID, err)
		if ferr := uc.dedupe.Forget(ctx, dedupeKey); ferr != nil {
			uc.log.WithContext(ctx).Warnf("Failed to release dedupe key %s: %v", dedupeKey, ferr)
		}
		return nil, err
	}

	uc.recordEvent(ctx, n, raw, result.Outcome, "")
	uc.metrics.PaymentNotification(result.Outcome)
	return result, nil
}

// confirm 订单支付成功：排期会员、签发入场二维码并激活订阅
func (uc *PaymentUsecase) confirm(ctx context.Context, n *GatewayNotification) (*NotificationResult, error) {
	var (
		order  *PaymentOrder
		entry  *EntryQR
		result = &NotificationResult{Outcome: NotificationIgnored}
	)

	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = uc.orders.LockByRefCode(ctx, n.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				uc.log.WithContext(ctx).Warnf("Notification for unknown order %s ignored", n.OrderID)
				order = nil
				return nil
			}
			return storageError("lock payment order", err)
		}
		result.OrderID = order.ID
		result.Status = order.Status
		if order.Status != OrderPending {
			return nil
		}
		if gross, ok := parseGrossAmount(n.GrossAmount); ok && gross != order.Amount {
			uc.log.WithContext(ctx).Warnf("Order %s gross amount %d differs from order amount %d", order.RefCode, gross, order.Amount)
		}

		start := order.StartDate
		membership, err := uc.memberships.Fulfil(ctx, &PurchaseRequest{
			CustomerID: order.CustomerID,
			PlanID:     order.PlanID,
			StartDate:  &start,
		})
		if err != nil {
			return err
		}

		now := uc.now()
		affected, err := uc.orders.MarkPaid(ctx, order.ID, now, membership.ID, membership.StartDate, membership.EndDate)
		if err != nil {
			return storageError("mark order paid", err)
		}
		if affected == 0 {
			return invariantError("order %d left PENDING under lock", order.ID)
		}
		order.Status = OrderPaid
		order.PaidAt = &now
		order.MembershipID = &membership.ID
		order.StartDate = membership.StartDate
		order.EndDate = membership.EndDate

		entry, err = uc.issueEntry(ctx, order, now)
		if err != nil {
			return err
		}

		if err := uc.customers.Update(ctx, order.CustomerID, map[string]interface{}{
			"subscription_status": SubscriptionActive,
			"updated_at":          now,
		}); err != nil {
			return storageError("activate subscription", err)
		}
		if err := appendHistory(ctx, uc.history, order.CustomerID, ActionPaymentConfirmed,
			fmt.Sprintf("Order %s paid", order.RefCode)); err != nil {
			return err
		}

		result.Outcome = NotificationPaid
		result.Status = OrderPaid
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return result, nil
	}

	if ttl := order.EndDate.Sub(uc.now()); ttl > 0 {
		if err := uc.tokens.Put(ctx, entry.Token, order.ID, ttl); err != nil {
			uc.log.WithContext(ctx).Warnf("Failed to cache entry token for order %d: %v", order.ID, err)
		}
	}
	if order.Email != "" {
		if err := uc.mailer.SendEntryQR(ctx, order.Email, order, entry); err != nil {
			uc.log.WithContext(ctx).Warnf("Failed to send entry QR email for order %d: %v", order.ID, err)
		}
	}

	uc.log.WithContext(ctx).Infof("Order %s paid, membership %d, entry %s", order.RefCode, *order.MembershipID, entry.Link)
	return result, nil
}

func (uc *PaymentUsecase) issueEntry(ctx context.Context, order *PaymentOrder, now time.Time) (*EntryQR, error) {
	token := uc.issuer.NewToken()
	link := uc.entryBase + "/" + token
	dataURL, err := uc.issuer.DataURL(link)
	if err != nil {
		return nil, fmt.Errorf("encode entry qr: %w", err)
	}
	entry := &EntryQR{
		OrderID:   order.ID,
		Token:     token,
		Link:      link,
		DataURL:   dataURL,
		CreatedAt: now,
	}
	if err := uc.entries.Create(ctx, entry); err != nil {
		return nil, storageError("create entry qr", err)
	}
	return entry, nil
}

// cancel 订单关闭，只对 PENDING 生效
func (uc *PaymentUsecase) cancel(ctx context.Context, n *GatewayNotification) (*NotificationResult, error) {
	result := &NotificationResult{Outcome: NotificationIgnored}
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		order, err := uc.orders.LockByRefCode(ctx, n.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return storageError("lock payment order", err)
		}
		result.OrderID = order.ID
		result.Status = order.Status
		if order.Status != OrderPending {
			return nil
		}
		affected, err := uc.orders.MarkCancelled(ctx, order.ID)
		if err != nil {
			return storageError("mark order cancelled", err)
		}
		if affected > 0 {
			result.Outcome = NotificationCancelled
			result.Status = OrderCancelled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *PaymentUsecase) recordEvent(ctx context.Context, n *GatewayNotification, raw []byte, outcome, errMsg string) {
	event := &PaymentGatewayEvent{
		Provider:          uc.gateway.Provider(),
		OrderRef:          n.OrderID,
		TransactionID:     n.TransactionID,
		TransactionStatus: n.TransactionStatus,
		Outcome:           outcome,
		Error:             errMsg,
		Payload:           datatypes.JSON(raw),
		CreatedAt:         uc.now(),
	}
	if len(raw) == 0 {
		event.Payload = datatypes.JSON("{}")
	}
	if err := uc.events.Create(ctx, event); err != nil {
		uc.log.WithContext(ctx).Warnf("Failed to record gateway event for %s: %v", n.OrderID, err)
	}
}

// Status 查询订单
func (uc *PaymentUsecase) Status(ctx context.Context, orderID int64) (*PaymentOrder, error) {
	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, storageError("get payment order", err)
	}
	return order, nil
}

// EntryQR 订单最新的入场二维码
func (uc *PaymentUsecase) EntryQR(ctx context.Context, orderID int64) (*EntryQR, error) {
	if _, err := uc.Status(ctx, orderID); err != nil {
		return nil, err
	}
	entry, err := uc.entries.LatestByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, storageError("get entry qr", err)
	}
	return entry, nil
}

// ValidateEntry 校验入场令牌，先查缓存再查数据库
func (uc *PaymentUsecase) ValidateEntry(ctx context.Context, token string) (*EntryPass, error) {
	ctx, span := tracing.StartSpan(ctx, "PaymentUsecase.ValidateEntry")
	defer span.End()

	orderID, err := uc.tokens.Get(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			uc.log.WithContext(ctx).Warnf("Entry token cache unavailable: %v", err)
		}
		entry, err := uc.entries.GetByToken(ctx, token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrEntryNotFound
			}
			return nil, storageError("get entry qr by token", err)
		}
		orderID = entry.OrderID
	}

	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, storageError("get payment order", err)
	}
	if order.Status != OrderPaid {
		return nil, ErrEntryNotFound
	}

	now := uc.now()
	if !order.EndDate.After(now) {
		return nil, ErrEntryExpired
	}
	if order.StartDate.After(now) {
		return nil, ErrEntryNotStarted
	}
	return &EntryPass{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		ValidFrom:  order.StartDate,
		ValidUntil: order.EndDate,
	}, nil
}

// classifyNotification 把网关交易状态映射为订单目标状态，无需处理时返回 PENDING
func classifyNotification(n *GatewayNotification) OrderStatus {
	switch strings.ToLower(n.TransactionStatus) {
	case "settlement":
		return OrderPaid
	case "capture":
		if fraud := strings.ToLower(n.FraudStatus); fraud == "" || fraud == "accept" {
			return OrderPaid
		}
		return OrderPending
	case "cancel", "deny", "expire", "failure":
		return OrderCancelled
	default:
		return OrderPending
	}
}

func parseGrossAmount(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f + 0.5), true
}
