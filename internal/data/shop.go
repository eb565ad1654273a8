package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// shopOrderRepository 商店订单数据访问实现
type shopOrderRepository struct {
	data   *Data
	logger *log.Helper
}

// NewShopOrderRepository 创建商店订单数据访问实例
func NewShopOrderRepository(data *Data, logger log.Logger) biz.ShopOrderRepository {
	return &shopOrderRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *shopOrderRepository) Create(ctx context.Context, order *biz.ShopOrder, items []*biz.ShopOrderItem) error {
	ctx, span := tracing.StartSpan(ctx, "ShopOrderRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": order.CustomerID,
		"kind":        order.Kind,
		"item_count":  len(items),
	})

	db := r.data.DB(ctx)
	if err := db.Create(order).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create shop order for customer_id: %d, error_reason: %v", order.CustomerID, err)
		return err
	}
	for _, item := range items {
		item.OrderID = order.ID
	}
	if len(items) > 0 {
		if err := db.Create(&items).Error; err != nil {
			r.logger.WithContext(ctx).Errorf("Failed to create items for shop order %d, error_reason: %v", order.ID, err)
			return err
		}
	}

	r.logger.WithContext(ctx).Infof("Successfully created shop order with id: %d, items: %d", order.ID, len(items))
	return nil
}
