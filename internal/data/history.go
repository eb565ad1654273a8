package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// historyRepository 客户历史数据访问实现
type historyRepository struct {
	data   *Data
	logger *log.Helper
}

// NewHistoryRepository 创建客户历史数据访问实例
func NewHistoryRepository(data *Data, logger log.Logger) biz.HistoryRepository {
	return &historyRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *historyRepository) Append(ctx context.Context, entry *biz.CustomerHistory) error {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.Append")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": entry.CustomerID,
		"action":      entry.Action,
	})

	if err := r.data.DB(ctx).Create(entry).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to append history for customer_id: %d, action: %s, error_reason: %v", entry.CustomerID, entry.Action, err)
		return err
	}
	return nil
}

func (r *historyRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*biz.CustomerHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.ListByCustomer")
	defer span.End()

	var rows []*biz.CustomerHistory
	err := r.data.DB(ctx).
		Where("customer_id = ?", customerID).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list history for customer_id: %d, error_reason: %v", customerID, err)
		return nil, err
	}
	return rows, nil
}

func (r *historyRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	ctx, span := tracing.StartSpan(ctx, "HistoryRepository.DeleteByCustomer")
	defer span.End()

	return r.data.DB(ctx).Where("customer_id = ?", customerID).Delete(&biz.CustomerHistory{}).Error
}
