package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"factfit/internal/pkg/tracing"
)

// PointLot 积分批次表，每次入账一行，扣减时按 id 从小到大消耗
type PointLot struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerID int64     `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Points     int64     `gorm:"column:points;not null" json:"points"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName 指定表名
func (PointLot) TableName() string {
	return "points"
}

// PointLotRepository 积分批次数据访问接口
type PointLotRepository interface {
	Create(ctx context.Context, lot *PointLot) error
	// SumByCustomer 客户所有批次之和，没有批次时为 0
	SumByCustomer(ctx context.Context, customerID int64) (int64, error)
	// Oldest 客户 id 最小的批次，没有批次时返回 gorm.ErrRecordNotFound
	Oldest(ctx context.Context, customerID int64) (*PointLot, error)
	Delete(ctx context.Context, id int64) error
	Decrement(ctx context.Context, id int64, amount int64) error
	ListByCustomer(ctx context.Context, customerID int64) ([]*PointLot, error)
	DeleteByCustomer(ctx context.Context, customerID int64) error
}

// ConsumedLot 一次扣减对单个批次的消耗
type ConsumedLot struct {
	LotID     int64 `json:"lot_id"`
	Taken     int64 `json:"taken"`
	Remaining int64 `json:"remaining"`
}

// DebitResult 扣减结果
type DebitResult struct {
	CustomerID int64          `json:"customer_id"`
	Amount     int64          `json:"amount"`
	Consumed   []*ConsumedLot `json:"consumed"`
	Balance    int64          `json:"balance"`
}

// PointMetrics 积分业务指标
type PointMetrics interface {
	PointsCredited(amount int64)
	PointsDebited(amount int64, lotsTouched int)
}

// PointLedgerUsecase 积分账本，按先进先出消耗批次
type PointLedgerUsecase struct {
	lots      PointLotRepository
	customers CustomerRepository
	history   HistoryRepository
	tx        Transaction
	metrics   PointMetrics
	log       *log.Helper
}

// NewPointLedgerUsecase 创建积分账本
func NewPointLedgerUsecase(lots PointLotRepository, customers CustomerRepository, history HistoryRepository,
	tx Transaction, metrics PointMetrics, logger log.Logger) *PointLedgerUsecase {
	return &PointLedgerUsecase{
		lots:      lots,
		customers: customers,
		history:   history,
		tx:        tx,
		metrics:   metrics,
		log:       log.NewHelper(logger),
	}
}

// Credit 为客户新增一个积分批次
func (uc *PointLedgerUsecase) Credit(ctx context.Context, customerID, amount int64, reason string) (*PointLot, error) {
	ctx, span := tracing.StartSpan(ctx, "PointLedgerUsecase.Credit")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": customerID,
		"amount":      amount,
	})

	uc.log.WithContext(ctx).Infof("Crediting %d points to customer %d", amount, customerID)

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var lot *PointLot
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, customerID); err != nil {
			return err
		}
		var err error
		lot, err = uc.credit(ctx, customerID, amount, ActionPointsAdded, withReason(fmt.Sprintf("Added %d points", amount), reason))
		return err
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to credit points to customer %d: %v", customerID, err)
		return nil, err
	}

	uc.metrics.PointsCredited(amount)
	uc.log.WithContext(ctx).Infof("Credited lot %d with %d points to customer %d", lot.ID, amount, customerID)
	return lot, nil
}

// credit 在调用方事务内插入批次并记录历史
func (uc *PointLedgerUsecase) credit(ctx context.Context, customerID, amount int64, action, details string) (*PointLot, error) {
	lot := &PointLot{
		CustomerID: customerID,
		Points:     amount,
		CreatedAt:  time.Now(),
	}
	if err := uc.lots.Create(ctx, lot); err != nil {
		return nil, storageError("create point lot", err)
	}
	if err := appendHistory(ctx, uc.history, customerID, action, details); err != nil {
		return nil, err
	}
	return lot, nil
}

// Debit 扣减积分
//
// 先锁定客户行，余额不足时返回 *InsufficientBalanceError 且不做任何修改；
// 余额充足时从最早的批次开始消耗，整批用完则删除，最后一个批次只减去剩余部分。
func (uc *PointLedgerUsecase) Debit(ctx context.Context, customerID, amount int64, reason string) (*DebitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "PointLedgerUsecase.Debit")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": customerID,
		"amount":      amount,
	})

	uc.log.WithContext(ctx).Infof("Debiting %d points from customer %d", amount, customerID)

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var result *DebitResult
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, customerID); err != nil {
			return err
		}
		res, err := uc.Consume(ctx, customerID, amount)
		if err != nil {
			return err
		}
		details := withReason(fmt.Sprintf("Subtracted %d points", amount), reason)
		if err := appendHistory(ctx, uc.history, customerID, ActionPointsSubtracted, details); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		uc.log.WithContext(ctx).Warnf("Failed to debit points from customer %d: %v", customerID, err)
		return nil, err
	}

	uc.metrics.PointsDebited(amount, len(result.Consumed))
	uc.log.WithContext(ctx).Infof("Debited %d points from customer %d across %d lots, balance %d",
		amount, customerID, len(result.Consumed), result.Balance)
	return result, nil
}

// Consume 按先进先出消耗积分批次，不写历史
//
// 调用方必须已在事务中锁定客户行。
func (uc *PointLedgerUsecase) Consume(ctx context.Context, customerID, amount int64) (*DebitResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	balance, err := uc.lots.SumByCustomer(ctx, customerID)
	if err != nil {
		return nil, storageError("sum point lots", err)
	}
	if balance < amount {
		return nil, &InsufficientBalanceError{Required: amount, Available: balance}
	}

	result := &DebitResult{CustomerID: customerID, Amount: amount}
	remaining := amount
	for remaining > 0 {
		lot, err := uc.lots.Oldest(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, invariantError("customer %d ran out of lots with %d points outstanding", customerID, remaining)
			}
			return nil, storageError("load oldest point lot", err)
		}
		if lot.Points <= 0 {
			return nil, invariantError("lot %d holds non-positive quantity %d", lot.ID, lot.Points)
		}

		take := min(remaining, lot.Points)
		if take == lot.Points {
			if err := uc.lots.Delete(ctx, lot.ID); err != nil {
				return nil, storageError("delete point lot", err)
			}
		} else {
			if err := uc.lots.Decrement(ctx, lot.ID, take); err != nil {
				return nil, storageError("decrement point lot", err)
			}
		}

		result.Consumed = append(result.Consumed, &ConsumedLot{
			LotID:     lot.ID,
			Taken:     take,
			Remaining: lot.Points - take,
		})
		remaining -= take
	}

	result.Balance = balance - amount
	return result, nil
}

// Balance 客户积分余额，没有批次时为 0
func (uc *PointLedgerUsecase) Balance(ctx context.Context, customerID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "PointLedgerUsecase.Balance")
	defer span.End()

	balance, err := uc.lots.SumByCustomer(ctx, customerID)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to sum points for customer %d: %v", customerID, err)
		return 0, storageError("sum point lots", err)
	}
	return balance, nil
}

// Lots 客户当前所有批次，按 id 升序
func (uc *PointLedgerUsecase) Lots(ctx context.Context, customerID int64) ([]*PointLot, error) {
	lots, err := uc.lots.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, storageError("list point lots", err)
	}
	return lots, nil
}

func withReason(details, reason string) string {
	if reason == "" {
		return details
	}
	return details + " (" + reason + ")"
}
