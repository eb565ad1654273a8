package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// planRepository 会员套餐数据访问实现
type planRepository struct {
	data   *Data
	logger *log.Helper
}

// NewPlanRepository 创建会员套餐数据访问实例
func NewPlanRepository(data *Data, logger log.Logger) biz.PlanRepository {
	return &planRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *planRepository) Create(ctx context.Context, plan *biz.Plan) error {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"plan_code": plan.Code})

	r.logger.WithContext(ctx).Infof("Creating plan with code: %s", plan.Code)
	if err := r.data.DB(ctx).Create(plan).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create plan with code: %s, error_reason: %v", plan.Code, err)
		return err
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*biz.Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.GetByID")
	defer span.End()

	var p biz.Plan
	if err := r.data.DB(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*biz.Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.GetByName")
	defer span.End()

	var p biz.Plan
	if err := r.data.DB(ctx).Where("name = ?", name).Order("id ASC").First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context) ([]*biz.Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.List")
	defer span.End()

	var plans []*biz.Plan
	if err := r.data.DB(ctx).Order("id ASC").Find(&plans).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list plans, error_reason: %v", err)
		return nil, err
	}
	return plans, nil
}

func (r *planRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.Update")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"plan_id":      id,
		"fields_count": len(fields),
	})

	if err := r.data.DB(ctx).Model(&biz.Plan{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to update plan with id: %d, error_reason: %v", id, err)
		return err
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "PlanRepository.Delete")
	defer span.End()

	r.logger.WithContext(ctx).Infof("Deleting plan with id: %d", id)
	return r.data.DB(ctx).Where("id = ?", id).Delete(&biz.Plan{}).Error
}
