package biz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/conf"
	"factfit/internal/pkg/tracing"
)

// 商店订单类型
const (
	OrderKindCash   = "cash"
	OrderKindPoints = "points"

	// ShopOrderCompleted 结算成功的订单状态
	ShopOrderCompleted = "completed"
)

// ShopOrder 商店订单表
type ShopOrder struct {
	ID          int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerID  int64            `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Kind        string           `gorm:"column:kind;size:16;not null" json:"kind"`
	TotalCash   int64            `gorm:"column:total_cash;not null" json:"total_cash"`
	TotalPoints int64            `gorm:"column:total_points;not null" json:"total_points"`
	Status      string           `gorm:"column:status;size:16;not null" json:"status"`
	CreatedAt   time.Time        `gorm:"column:created_at;not null" json:"created_at"`
	Items       []*ShopOrderItem `gorm:"-" json:"items"`
}

// TableName 指定表名
func (ShopOrder) TableName() string {
	return "shop_orders"
}

// ShopOrderItem 商店订单明细表，价格为下单时的快照
type ShopOrderItem struct {
	ID          int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID     int64 `gorm:"column:order_id;not null;index" json:"order_id"`
	ProductID   int64 `gorm:"column:product_id;not null" json:"product_id"`
	Qty         int64 `gorm:"column:qty;not null" json:"qty"`
	PriceCash   int64 `gorm:"column:price_cash;not null" json:"price_cash"`
	PricePoints int64 `gorm:"column:price_points;not null" json:"price_points"`
}

// TableName 指定表名
func (ShopOrderItem) TableName() string {
	return "shop_order_items"
}

// CartItem 结算请求中的一项
type CartItem struct {
	ProductID int64
	Qty       int64
}

// ShopOrderRepository 商店订单数据访问接口
type ShopOrderRepository interface {
	// Create 插入订单及明细，明细的 OrderID 由实现回填
	Create(ctx context.Context, order *ShopOrder, items []*ShopOrderItem) error
}

// ShopMetrics 商店业务指标
type ShopMetrics interface {
	ShopOrderCompleted(kind string)
}

// CheckoutResult 结算结果
type CheckoutResult struct {
	Order        *ShopOrder
	PointsEarned int64
	Debit        *DebitResult
}

// ShopUsecase 商店结算，现金购买与积分兑换
type ShopUsecase struct {
	products  ProductRepository
	orders    ShopOrderRepository
	customers CustomerRepository
	history   HistoryRepository
	ledger    *PointLedgerUsecase
	tx        Transaction
	metrics   ShopMetrics
	earnEvery int64
	log       *log.Helper
}

// NewShopUsecase 创建商店业务逻辑实例
func NewShopUsecase(products ProductRepository, orders ShopOrderRepository, customers CustomerRepository,
	history HistoryRepository, ledger *PointLedgerUsecase, tx Transaction, metrics ShopMetrics,
	c *conf.Loyalty, logger log.Logger) *ShopUsecase {
	return &ShopUsecase{
		products:  products,
		orders:    orders,
		customers: customers,
		history:   history,
		ledger:    ledger,
		tx:        tx,
		metrics:   metrics,
		earnEvery: c.EarnEvery,
		log:       log.NewHelper(logger),
	}
}

// Checkout 现金购买
//
// 锁定客户与商品行，校验库存，扣减库存并写入订单与历史。
// 配置了 earn_every 时按 floor(total_cash / earn_every) 赠送积分。
func (uc *ShopUsecase) Checkout(ctx context.Context, customerID int64, items []*CartItem) (*CheckoutResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopUsecase.Checkout")
	defer span.End()

	uc.log.WithContext(ctx).Infof("Cash checkout for customer %d with %d items", customerID, len(items))

	cart, err := mergeCart(items)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{}
	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, customerID); err != nil {
			return err
		}
		lines, err := uc.reserve(ctx, cart)
		if err != nil {
			return err
		}

		if err := uc.deduct(ctx, lines); err != nil {
			return err
		}

		var total int64
		for _, l := range lines {
			total += l.PriceCash * l.Qty
		}

		order := &ShopOrder{CustomerID: customerID, Kind: OrderKindCash, TotalCash: total}
		if err := uc.place(ctx, order, lines); err != nil {
			return err
		}
		if err := appendHistory(ctx, uc.history, customerID, ActionOrderCash, fmt.Sprintf("Total %d", total)); err != nil {
			return err
		}

		if uc.earnEvery > 0 {
			if earned := total / uc.earnEvery; earned > 0 {
				details := fmt.Sprintf("Earned %d points from order %d", earned, order.ID)
				if _, err := uc.ledger.credit(ctx, customerID, earned, ActionPointsEarned, details); err != nil {
					return err
				}
				result.PointsEarned = earned
			}
		}
		result.Order = order
		return nil
	})
	if err != nil {
		uc.log.WithContext(ctx).Warnf("Cash checkout failed for customer %d: %v", customerID, err)
		return nil, err
	}

	uc.metrics.ShopOrderCompleted(OrderKindCash)
	if result.PointsEarned > 0 {
		uc.ledger.metrics.PointsCredited(result.PointsEarned)
	}
	uc.log.WithContext(ctx).Infof("Cash order %d completed for customer %d, total %d", result.Order.ID, customerID, result.Order.TotalCash)
	return result, nil
}

// Redeem 积分兑换
//
// 所需积分为各项 price_points × qty 之和，余额不足返回 *InsufficientBalanceError。
func (uc *ShopUsecase) Redeem(ctx context.Context, customerID int64, items []*CartItem) (*CheckoutResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ShopUsecase.Redeem")
	defer span.End()

	uc.log.WithContext(ctx).Infof("Points redemption for customer %d with %d items", customerID, len(items))

	cart, err := mergeCart(items)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{}
	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, customerID); err != nil {
			return err
		}
		lines, err := uc.reserve(ctx, cart)
		if err != nil {
			return err
		}

		var required int64
		for _, l := range lines {
			required += l.PricePoints * l.Qty
		}

		if required > 0 {
			debit, err := uc.ledger.Consume(ctx, customerID, required)
			if err != nil {
				return err
			}
			result.Debit = debit
		}
		if err := uc.deduct(ctx, lines); err != nil {
			return err
		}

		order := &ShopOrder{CustomerID: customerID, Kind: OrderKindPoints, TotalPoints: required}
		if err := uc.place(ctx, order, lines); err != nil {
			return err
		}
		if err := appendHistory(ctx, uc.history, customerID, ActionRedeemed, fmt.Sprintf("Points %d", required)); err != nil {
			return err
		}
		result.Order = order
		return nil
	})
	if err != nil {
		uc.log.WithContext(ctx).Warnf("Redemption failed for customer %d: %v", customerID, err)
		return nil, err
	}

	uc.metrics.ShopOrderCompleted(OrderKindPoints)
	if result.Debit != nil {
		uc.ledger.metrics.PointsDebited(result.Debit.Amount, len(result.Debit.Consumed))
	}
	uc.log.WithContext(ctx).Infof("Redemption order %d completed for customer %d, points %d", result.Order.ID, customerID, result.Order.TotalPoints)
	return result, nil
}

// reserve 锁定商品并校验库存，返回带价格快照的明细
func (uc *ShopUsecase) reserve(ctx context.Context, cart []*CartItem) ([]*ShopOrderItem, error) {
	ids := make([]int64, 0, len(cart))
	for _, item := range cart {
		ids = append(ids, item.ProductID)
	}
	products, err := uc.products.LockByIDs(ctx, ids)
	if err != nil {
		return nil, storageError("lock products", err)
	}
	byID := make(map[int64]*Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]*ShopOrderItem, 0, len(cart))
	for _, item := range cart {
		p, ok := byID[item.ProductID]
		if !ok || !p.Active {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, item.ProductID)
		}
		if p.Stock < item.Qty {
			return nil, &OutOfStockError{ProductID: p.ID, Requested: item.Qty, Available: p.Stock}
		}
		lines = append(lines, &ShopOrderItem{
			ProductID:   p.ID,
			Qty:         item.Qty,
			PriceCash:   p.PriceCash,
			PricePoints: p.PricePoints,
		})
	}

	return lines, nil
}

// deduct 扣减已锁定商品的库存
func (uc *ShopUsecase) deduct(ctx context.Context, lines []*ShopOrderItem) error {
	for _, l := range lines {
		if err := uc.products.DecrementStock(ctx, l.ProductID, l.Qty); err != nil {
			return storageError("decrement stock", err)
		}
	}
	return nil
}

func (uc *ShopUsecase) place(ctx context.Context, order *ShopOrder, lines []*ShopOrderItem) error {
	order.Status = ShopOrderCompleted
	order.CreatedAt = time.Now()
	if err := uc.orders.Create(ctx, order, lines); err != nil {
		return storageError("create shop order", err)
	}
	order.Items = lines
	return nil
}

// mergeCart 合并同一商品的多项，并按商品 id 排序以固定加锁顺序
func mergeCart(items []*CartItem) ([]*CartItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	merged := make(map[int64]int64)
	for _, item := range items {
		if item.Qty <= 0 {
			return nil, ErrInvalidAmount
		}
		merged[item.ProductID] += item.Qty
	}
	cart := make([]*CartItem, 0, len(merged))
	for id, qty := range merged {
		cart = append(cart, &CartItem{ProductID: id, Qty: qty})
	}
	sort.Slice(cart, func(i, j int) bool { return cart[i].ProductID < cart[j].ProductID })
	return cart, nil
}
