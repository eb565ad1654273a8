package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// pointLotRepository 积分批次数据访问实现
type pointLotRepository struct {
	data   *Data
	logger *log.Helper
}

// NewPointLotRepository 创建积分批次数据访问实例
func NewPointLotRepository(data *Data, logger log.Logger) biz.PointLotRepository {
	return &pointLotRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *pointLotRepository) Create(ctx context.Context, lot *biz.PointLot) error {
	ctx, span := tracing.StartSpan(ctx, "PointLotRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": lot.CustomerID,
		"points":      lot.Points,
	})

	r.logger.WithContext(ctx).Infof("Creating point lot for customer_id: %d, points: %d", lot.CustomerID, lot.Points)
	if err := r.data.DB(ctx).Create(lot).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create point lot for customer_id: %d, error_reason: %v", lot.CustomerID, err)
		return err
	}
	return nil
}

func (r *pointLotRepository) SumByCustomer(ctx context.Context, customerID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "PointLotRepository.SumByCustomer")
	defer span.End()

	var total int64
	err := r.data.DB(ctx).
		Model(&biz.PointLot{}).
		Select("COALESCE(SUM(points), 0)").
		Where("customer_id = ?", customerID).
		Scan(&total).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to sum points for customer_id: %d, error_reason: %v", customerID, err)
		return 0, err
	}
	return total, nil
}

// Oldest 按 id 升序取第一条，id 顺序即入账顺序
func (r *pointLotRepository) Oldest(ctx context.Context, customerID int64) (*biz.PointLot, error) {
	ctx, span := tracing.StartSpan(ctx, "PointLotRepository.Oldest")
	defer span.End()

	var lot biz.PointLot
	err := r.data.DB(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		First(&lot).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *pointLotRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "PointLotRepository.Delete")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"lot_id": id})

	if err := r.data.DB(ctx).Where("id = ?", id).Delete(&biz.PointLot{}).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to delete point lot with id: %d, error_reason: %v", id, err)
		return err
	}
	return nil
}

func (r *pointLotRepository) Decrement(ctx context.Context, id int64, amount int64) error {
	ctx, span := tracing.StartSpan(ctx, "PointLotRepository.Decrement")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"lot_id": id,
		"amount": amount,
	})

	err := r.data.DB(ctx).
		Model(&biz.PointLot{}).
		Where("id = ?", id).
		Update("points", gorm.Expr("points - ?", amount)).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to decrement point lot with id: %d, error_reason: %v", id, err)
		return err
	}
	return nil
}

func (r *pointLotRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*biz.PointLot, error) {
	ctx, span := tracing.StartSpan(ctx, "PointLotRepository.ListByCustomer")
	defer span.End()

	var lots []*biz.PointLot
	if err := r.data.DB(ctx).Where("customer_id = ?", customerID).Order("id ASC").Find(&lots).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list point lots for customer_id: %d, error_reason: %v", customerID, err)
		return nil, err
	}
	return lots, nil
}

func (r *pointLotRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	ctx, span := tracing.StartSpan(ctx, "PointLotRepository.DeleteByCustomer")
	defer span.End()

	return r.data.DB(ctx).Where("customer_id = ?", customerID).Delete(&biz.PointLot{}).Error
}
