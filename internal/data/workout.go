package data

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// workoutRepository 训练记录与目标数据访问实现
type workoutRepository struct {
	data   *Data
	logger *log.Helper
}

// NewWorkoutRepository 创建训练数据访问实例
func NewWorkoutRepository(data *Data, logger log.Logger) biz.WorkoutRepository {
	return &workoutRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *workoutRepository) CreateLog(ctx context.Context, entry *biz.WorkoutLog) error {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.CreateLog")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": entry.CustomerID,
		"activity":    entry.Activity,
	})

	if err := r.data.DB(ctx).Create(entry).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create workout log for customer_id: %d, error_reason: %v", entry.CustomerID, err)
		return err
	}
	return nil
}

func (r *workoutRepository) ListLogs(ctx context.Context, customerID int64) ([]*biz.WorkoutLog, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.ListLogs")
	defer span.End()

	var rows []*biz.WorkoutLog
	if err := r.data.DB(ctx).Where("customer_id = ?", customerID).Order("date DESC").Order("id DESC").Find(&rows).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list workout logs for customer_id: %d, error_reason: %v", customerID, err)
		return nil, err
	}
	return rows, nil
}

func (r *workoutRepository) SumLogs(ctx context.Context, customerID int64, from, to time.Time) (*biz.WorkoutTotals, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.SumLogs")
	defer span.End()

	var totals biz.WorkoutTotals
	err := r.data.DB(ctx).
		Model(&biz.WorkoutLog{}).
		Select("COALESCE(SUM(distance), 0) AS distance, COALESCE(SUM(duration), 0) AS duration").
		Where("customer_id = ? AND date >= ? AND date <= ?", customerID, from, to).
		Scan(&totals).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to sum workout logs for customer_id: %d, error_reason: %v", customerID, err)
		return nil, err
	}
	return &totals, nil
}

func (r *workoutRepository) GetGoal(ctx context.Context, customerID int64) (*biz.WorkoutGoal, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.GetGoal")
	defer span.End()

	var goal biz.WorkoutGoal
	if err := r.data.DB(ctx).Where("customer_id = ?", customerID).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *workoutRepository) SaveGoal(ctx context.Context, goal *biz.WorkoutGoal) error {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.SaveGoal")
	defer span.End()

	if err := r.data.DB(ctx).Save(goal).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to save workout goal for customer_id: %d, error_reason: %v", goal.CustomerID, err)
		return err
	}
	r.logger.WithContext(ctx).Infof("Saved workout goal %d for customer_id: %d", goal.ID, goal.CustomerID)
	return nil
}

func (r *workoutRepository) DeleteGoal(ctx context.Context, customerID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.DeleteGoal")
	defer span.End()

	res := r.data.DB(ctx).Where("customer_id = ?", customerID).Delete(&biz.WorkoutGoal{})
	if res.Error != nil {
		r.logger.WithContext(ctx).Errorf("Failed to delete workout goal for customer_id: %d, error_reason: %v", customerID, res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *workoutRepository) MarkGoalCompleted(ctx context.Context, id int64, at time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.MarkGoalCompleted")
	defer span.End()

	res := r.data.DB(ctx).
		Model(&biz.WorkoutGoal{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{"completed_at": at, "updated_at": at})
	if res.Error != nil {
		r.logger.WithContext(ctx).Errorf("Failed to complete workout goal %d, error_reason: %v", id, res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *workoutRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	ctx, span := tracing.StartSpan(ctx, "WorkoutRepository.DeleteByCustomer")
	defer span.End()

	db := r.data.DB(ctx)
	if err := db.Where("customer_id = ?", customerID).Delete(&biz.WorkoutLog{}).Error; err != nil {
		return err
	}
	return db.Where("customer_id = ?", customerID).Delete(&biz.WorkoutGoal{}).Error
}
