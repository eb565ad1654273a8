package biz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"factfit/internal/pkg/tracing"
)

// Plan 会员套餐表，价格为最小货币单位
type Plan struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Code             string    `gorm:"column:code;size:64;uniqueIndex;not null" json:"code"`
	Name             string    `gorm:"column:name;size:128;not null" json:"name"`
	Description      string    `gorm:"column:description;size:512" json:"description"`
	Price            int64     `gorm:"column:price;not null" json:"price"`
	DurationInterval string    `gorm:"column:duration_interval;size:64;not null" json:"duration_interval"`
	VisitLimit       *int      `gorm:"column:visit_limit" json:"visit_limit"`
	Active           bool      `gorm:"column:active;not null" json:"active"`
	CreatedAt        time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName 指定表名
func (Plan) TableName() string {
	return "plans"
}

// Interval 解析套餐时长
func (p *Plan) Interval() (Interval, error) {
	return ParseInterval(p.DurationInterval)
}

// PlanUpdate 套餐更新请求，nil 字段表示不更新
type PlanUpdate struct {
	Code             *string
	Name             *string
	Description      *string
	Price            *int64
	DurationInterval *string
	VisitLimit       *int
	Active           *bool
}

// PlanRepository 套餐数据访问接口
type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id int64) (*Plan, error)
	GetByName(ctx context.Context, name string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	// Update 只更新 fields 中出现的列
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

// PlanUsecase 套餐管理
type PlanUsecase struct {
	plans PlanRepository
	log   *log.Helper
}

// NewPlanUsecase 创建套餐业务逻辑实例
func NewPlanUsecase(plans PlanRepository, logger log.Logger) *PlanUsecase {
	return &PlanUsecase{plans: plans, log: log.NewHelper(logger)}
}

// List 全部套餐
func (uc *PlanUsecase) List(ctx context.Context) ([]*Plan, error) {
	plans, err := uc.plans.List(ctx)
	if err != nil {
		return nil, storageError("list plans", err)
	}
	return plans, nil
}

// Get 查询套餐
func (uc *PlanUsecase) Get(ctx context.Context, id int64) (*Plan, error) {
	plan, err := uc.plans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, storageError("get plan", err)
	}
	return plan, nil
}

// Create 新建套餐，时长必须可解析
func (uc *PlanUsecase) Create(ctx context.Context, plan *Plan) (*Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanUsecase.Create")
	defer span.End()

	uc.log.WithContext(ctx).Infof("Creating plan: %s", plan.Code)

	iv, err := ParseInterval(plan.DurationInterval)
	if err != nil {
		return nil, err
	}
	plan.DurationInterval = iv.String()
	plan.Code = strings.TrimSpace(plan.Code)

	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if err := uc.plans.Create(ctx, plan); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPlanCodeExists
		}
		uc.log.WithContext(ctx).Errorf("Failed to create plan %s: %v", plan.Code, err)
		return nil, storageError("create plan", err)
	}

	uc.log.WithContext(ctx).Infof("Created plan id: %d", plan.ID)
	return plan, nil
}

// Update 只更新请求中出现的字段
func (uc *PlanUsecase) Update(ctx context.Context, id int64, req *PlanUpdate) (*Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanUsecase.Update")
	defer span.End()

	fields := make(map[string]interface{})
	if req.Code != nil {
		fields["code"] = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.DurationInterval != nil {
		iv, err := ParseInterval(*req.DurationInterval)
		if err != nil {
			return nil, err
		}
		fields["duration_interval"] = iv.String()
	}
	if req.VisitLimit != nil {
		fields["visit_limit"] = *req.VisitLimit
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}

	if _, err := uc.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		if err := uc.plans.Update(ctx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrPlanCodeExists
			}
			uc.log.WithContext(ctx).Errorf("Failed to update plan %d: %v", id, err)
			return nil, storageError("update plan", err)
		}
	}
	return uc.Get(ctx, id)
}

// Delete 删除套餐
func (uc *PlanUsecase) Delete(ctx context.Context, id int64) error {
	if _, err := uc.Get(ctx, id); err != nil {
		return err
	}
	if err := uc.plans.Delete(ctx, id); err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to delete plan %d: %v", id, err)
		return storageError("delete plan", err)
	}
	return nil
}

// activePlan 查询可购买的套餐及其时长，不存在或已下架时返回 ErrInvalidPlan
func activePlan(ctx context.Context, plans PlanRepository, id int64) (*Plan, Interval, error) {
	plan, iv, err := lookupPlan(ctx, plans, id)
	if err != nil {
		return nil, Interval{}, err
	}
	if !plan.Active {
		return nil, Interval{}, ErrInvalidPlan
	}
	return plan, iv, nil
}

// lookupPlan 查询套餐及其时长，不检查上下架状态
func lookupPlan(ctx context.Context, plans PlanRepository, id int64) (*Plan, Interval, error) {
	plan, err := plans.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Interval{}, ErrInvalidPlan
		}
		return nil, Interval{}, storageError("get plan", err)
	}
	iv, err := plan.Interval()
	if err != nil {
		return nil, Interval{}, invariantError("plan %d has unparseable duration %q", plan.ID, plan.DurationInterval)
	}
	return plan, iv, nil
}
