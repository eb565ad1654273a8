package biz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"factfit/internal/pkg/tracing"
)

// MembershipStatus 会员状态
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "Active"
	MembershipQueued    MembershipStatus = "Queued"
	MembershipFrozen    MembershipStatus = "Frozen"
	MembershipCancelled MembershipStatus = "Cancelled"
	MembershipExpired   MembershipStatus = "Expired"
)

// sweepBatchSize 巡检分页大小
const sweepBatchSize = 100

// QueueCursor 排队记录分页游标，按 (start_date, id) 升序，零值表示从头开始
type QueueCursor struct {
	StartDate time.Time
	ID        int64
}

// Membership 会员记录表，同一客户同一时刻最多一条 Active
type Membership struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerID int64            `gorm:"column:customer_id;not null;index" json:"customer_id"`
	PlanID     int64            `gorm:"column:plan_id;not null;index" json:"plan_id"`
	StartDate  time.Time        `gorm:"column:start_date;not null" json:"start_date"`
	EndDate    time.Time        `gorm:"column:end_date;not null;index" json:"end_date"`
	Status     MembershipStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	AutoRenew  bool             `gorm:"column:auto_renew;not null" json:"auto_renew"`
	CreatedAt  time.Time        `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName 指定表名
func (Membership) TableName() string {
	return "memberships"
}

// CurrentMembership 当前生效的会员信息
type CurrentMembership struct {
	*Membership
	PlanName      string `json:"plan_name"`
	RemainingDays int64  `json:"remaining_days"`
}

// MembershipRepository 会员数据访问接口
type MembershipRepository interface {
	Create(ctx context.Context, m *Membership) error
	GetByID(ctx context.Context, id int64) (*Membership, error)
	// ListLive 客户状态为 Active 或 Queued 且 end_date > now 的记录，按 end_date 倒序
	ListLive(ctx context.Context, customerID int64, now time.Time) ([]*Membership, error)
	// FindCurrent 窗口包含 now 的 Active 或 Queued 记录，按 end_date 倒序取第一条
	FindCurrent(ctx context.Context, customerID int64, now time.Time) (*Membership, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*Membership, error)
	// ExpireEnded 把客户 end_date <= now 的 Active 与 Queued 记录置为 Expired
	ExpireEnded(ctx context.Context, customerID int64, now time.Time) (int64, error)
	// ExpireAllEnded 同 ExpireEnded，作用于全部客户
	ExpireAllEnded(ctx context.Context, now time.Time) (int64, error)
	// ListDueQueued start_date <= now < end_date 且位于 after 之后的 Queued 记录，按 (start_date, id) 升序
	ListDueQueued(ctx context.Context, now time.Time, after QueueCursor, limit int) ([]*Membership, error)
	UpdateStatus(ctx context.Context, id int64, status MembershipStatus) error
	DeleteByCustomer(ctx context.Context, customerID int64) error
}

// MembershipMetrics 会员业务指标
type MembershipMetrics interface {
	MembershipPurchased(status string)
	MembershipsSwept(expired, promoted int64)
}

// PurchaseRequest 购买套餐参数，StartDate 为空时从当前时间开始
type PurchaseRequest struct {
	CustomerID int64
	PlanID     int64
	StartDate  *time.Time
	AutoRenew  bool
}

// SweepResult 一轮巡检的结果
type SweepResult struct {
	Expired  int64
	Promoted int64
	// Skipped 到期但客户仍有 Active 记录而未激活的条数
	Skipped int64
}

// MembershipUsecase 会员排期
//
// 新购买的套餐从 max(请求开始时间, 当前会员结束时间) 开始，
// 开始时间在未来时状态为 Queued，否则为 Active。
type MembershipUsecase struct {
	memberships MembershipRepository
	plans       PlanRepository
	customers   CustomerRepository
	history     HistoryRepository
	tx          Transaction
	metrics     MembershipMetrics
	sweepBatch  int
	now         func() time.Time
	log         *log.Helper
}

// NewMembershipUsecase 创建会员排期业务逻辑实例
func NewMembershipUsecase(memberships MembershipRepository, plans PlanRepository, customers CustomerRepository,
	history HistoryRepository, tx Transaction, metrics MembershipMetrics, logger log.Logger) *MembershipUsecase {
	return &MembershipUsecase{
		memberships: memberships,
		plans:       plans,
		customers:   customers,
		history:     history,
		tx:          tx,
		metrics:     metrics,
		sweepBatch:  sweepBatchSize,
		now:         time.Now,
		log:         log.NewHelper(logger),
	}
}

// Purchase 购买套餐并排期
//
// 在一个事务内完成：锁定客户、把已过期的记录置为 Expired、查找尚未结束的会员链尾、
// 计算开始与结束时间、插入会员记录并写入历史。ctx 已携带事务时复用外层事务。
func (uc *MembershipUsecase) Purchase(ctx context.Context, req *PurchaseRequest) (*Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipUsecase.Purchase")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": req.CustomerID,
		"plan_id":     req.PlanID,
	})

	uc.log.WithContext(ctx).Infof("Purchasing plan %d for customer %d", req.PlanID, req.CustomerID)

	plan, iv, err := activePlan(ctx, uc.plans, req.PlanID)
	if err != nil {
		uc.log.WithContext(ctx).Warnf("Plan %d not purchasable: %v", req.PlanID, err)
		return nil, err
	}
	return uc.schedule(ctx, req, plan, iv)
}

// Fulfil 为已付款订单排期
//
// 与 Purchase 相同，但不要求套餐仍在售：下单后套餐被下架，已付款的订单照常履约。
func (uc *MembershipUsecase) Fulfil(ctx context.Context, req *PurchaseRequest) (*Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipUsecase.Fulfil")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": req.CustomerID,
		"plan_id":     req.PlanID,
	})

	plan, iv, err := lookupPlan(ctx, uc.plans, req.PlanID)
	if err != nil {
		uc.log.WithContext(ctx).Warnf("Plan %d of paid order not found: %v", req.PlanID, err)
		return nil, err
	}
	if !plan.Active {
		uc.log.WithContext(ctx).Infof("Fulfilling paid order on deactivated plan %d", plan.ID)
	}
	return uc.schedule(ctx, req, plan, iv)
}

func (uc *MembershipUsecase) schedule(ctx context.Context, req *PurchaseRequest, plan *Plan, iv Interval) (*Membership, error) {
	var created *Membership
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, req.CustomerID); err != nil {
			return err
		}

		now := uc.now()
		if _, err := uc.memberships.ExpireEnded(ctx, req.CustomerID, now); err != nil {
			return storageError("expire ended memberships", err)
		}

		live, err := uc.memberships.ListLive(ctx, req.CustomerID, now)
		if err != nil {
			return storageError("list live memberships", err)
		}
		if n := countActive(live); n > 1 {
			return invariantError("customer %d has %d active memberships", req.CustomerID, n)
		}

		start := now
		if req.StartDate != nil && !req.StartDate.IsZero() {
			start = *req.StartDate
		}
		// 排在尚未结束的会员链之后
		if len(live) > 0 && live[0].EndDate.After(start) {
			start = live[0].EndDate
		}

		status := MembershipActive
		if start.After(now) {
			status = MembershipQueued
		}

		m := &Membership{
			CustomerID: req.CustomerID,
			PlanID:     plan.ID,
			StartDate:  start,
			EndDate:    iv.AddTo(start),
			Status:     status,
			AutoRenew:  req.AutoRenew,
			CreatedAt:  now,
		}
		if err := uc.memberships.Create(ctx, m); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrActiveMembershipExists
			}
			return storageError("create membership", err)
		}

		details := fmt.Sprintf("Plan %s, %s from %s to %s", plan.Name, status,
			m.StartDate.Format(time.DateOnly), m.EndDate.Format(time.DateOnly))
		if err := appendHistory(ctx, uc.history, req.CustomerID, ActionMembershipPurchased, details); err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to purchase plan %d for customer %d: %v", req.PlanID, req.CustomerID, err)
		return nil, err
	}

	uc.metrics.MembershipPurchased(string(created.Status))
	uc.log.WithContext(ctx).Infof("Membership %d created for customer %d: %s %s - %s",
		created.ID, created.CustomerID, created.Status, created.StartDate.Format(time.RFC3339), created.EndDate.Format(time.RFC3339))
	return created, nil
}

// Current 客户当前生效的会员，没有时返回 ErrMembershipNotFound
func (uc *MembershipUsecase) Current(ctx context.Context, customerID int64) (*CurrentMembership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipUsecase.Current")
	defer span.End()

	now := uc.now()
	m, err := uc.memberships.FindCurrent(ctx, customerID, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, storageError("find current membership", err)
	}

	current := &CurrentMembership{
		Membership:    m,
		RemainingDays: remainingDays(now, m.EndDate),
	}
	plan, err := uc.plans.GetByID(ctx, m.PlanID)
	switch {
	case err == nil:
		current.PlanName = plan.Name
	case errors.Is(err, gorm.ErrRecordNotFound):
		uc.log.WithContext(ctx).Warnf("Membership %d references missing plan %d", m.ID, m.PlanID)
	default:
		return nil, storageError("get plan", err)
	}
	return current, nil
}

// ListByCustomer 客户全部会员记录，按开始时间倒序
func (uc *MembershipUsecase) ListByCustomer(ctx context.Context, customerID int64) ([]*Membership, error) {
	rows, err := uc.memberships.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, storageError("list memberships", err)
	}
	return rows, nil
}

// Cancel 取消会员记录，只允许取消 Active、Queued 与 Frozen
func (uc *MembershipUsecase) Cancel(ctx context.Context, id int64) (*Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipUsecase.Cancel")
	defer span.End()

	var cancelled *Membership
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		m, err := uc.memberships.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMembershipNotFound
			}
			return storageError("get membership", err)
		}
		if err := lockCustomer(ctx, uc.customers, m.CustomerID); err != nil {
			return err
		}
		switch m.Status {
		case MembershipActive, MembershipQueued, MembershipFrozen:
		default:
			return ErrMembershipNotCancellable
		}
		if err := uc.memberships.UpdateStatus(ctx, id, MembershipCancelled); err != nil {
			return storageError("cancel membership", err)
		}
		if err := appendHistory(ctx, uc.history, m.CustomerID, ActionMembershipCancelled,
			fmt.Sprintf("Membership %d cancelled", id)); err != nil {
			return err
		}
		m.Status = MembershipCancelled
		cancelled = m
		return nil
	})
	if err != nil {
		uc.log.WithContext(ctx).Warnf("Failed to cancel membership %d: %v", id, err)
		return nil, err
	}
	uc.log.WithContext(ctx).Infof("Cancelled membership %d", id)
	return cancelled, nil
}

// Sweep 会员状态巡检：过期已结束的记录，激活到期的排队记录
func (uc *MembershipUsecase) Sweep(ctx context.Context) (*SweepResult, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipUsecase.Sweep")
	defer span.End()

	now := uc.now()
	result := &SweepResult{}

	expired, err := uc.memberships.ExpireAllEnded(ctx, now)
	if err != nil {
		return nil, storageError("expire ended memberships", err)
	}
	result.Expired = expired

	// 无法激活的记录留在队列中，游标越过它们继续翻页
	var cursor QueueCursor
	for {
		due, err := uc.memberships.ListDueQueued(ctx, now, cursor, uc.sweepBatch)
		if err != nil {
			return nil, storageError("list due queued memberships", err)
		}
		for _, m := range due {
			promoted, err := uc.promote(ctx, m, now)
			if err != nil {
				uc.log.WithContext(ctx).Errorf("Failed to promote membership %d: %v", m.ID, err)
				continue
			}
			if promoted {
				result.Promoted++
			} else {
				result.Skipped++
			}
		}
		if len(due) < uc.sweepBatch {
			break
		}
		last := due[len(due)-1]
		cursor = QueueCursor{StartDate: last.StartDate, ID: last.ID}
	}

	uc.metrics.MembershipsSwept(result.Expired, result.Promoted)
	if result.Expired > 0 || result.Promoted > 0 || result.Skipped > 0 {
		uc.log.WithContext(ctx).Infof("Membership sweep expired %d, promoted %d, skipped %d", result.Expired, result.Promoted, result.Skipped)
	}
	return result, nil
}

// promote 客户没有其他生效记录时把排队记录置为 Active
func (uc *MembershipUsecase) promote(ctx context.Context, m *Membership, now time.Time) (bool, error) {
	promoted := false
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, m.CustomerID); err != nil {
			return err
		}
		live, err := uc.memberships.ListLive(ctx, m.CustomerID, now)
		if err != nil {
			return storageError("list live memberships", err)
		}
		if countActive(live) > 0 {
			return nil
		}
		if err := uc.memberships.UpdateStatus(ctx, m.ID, MembershipActive); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrActiveMembershipExists
			}
			return storageError("activate membership", err)
		}
		if err := appendHistory(ctx, uc.history, m.CustomerID, ActionMembershipActivated,
			fmt.Sprintf("Membership %d active until %s", m.ID, m.EndDate.Format(time.DateOnly))); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	return promoted, err
}

func countActive(rows []*Membership) int {
	n := 0
	for _, m := range rows {
		if m.Status == MembershipActive {
			n++
		}
	}
	return n
}

// remainingDays 剩余天数，不足一天按一天计
func remainingDays(now, end time.Time) int64 {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Hours() / 24))
}
