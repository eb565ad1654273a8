package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// productRepository 商品数据访问实现
type productRepository struct {
	data   *Data
	logger *log.Helper
}

// NewProductRepository 创建商品数据访问实例
func NewProductRepository(data *Data, logger log.Logger) biz.ProductRepository {
	return &productRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *productRepository) Create(ctx context.Context, p *biz.Product) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"sku": p.SKU})

	r.logger.WithContext(ctx).Infof("Creating product with sku: %s", p.SKU)
	if err := r.data.DB(ctx).Create(p).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create product with sku: %s, error_reason: %v", p.SKU, err)
		return err
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*biz.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.GetByID")
	defer span.End()

	var p biz.Product
	if err := r.data.DB(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, activeOnly bool) ([]*biz.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.List")
	defer span.End()

	q := r.data.DB(ctx).Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var rows []*biz.Product
	if err := q.Find(&rows).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list products, error_reason: %v", err)
		return nil, err
	}
	return rows, nil
}

func (r *productRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Update")
	defer span.End()

	if err := r.data.DB(ctx).Model(&biz.Product{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to update product with id: %d, error_reason: %v", id, err)
		return err
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Delete")
	defer span.End()

	r.logger.WithContext(ctx).Infof("Deleting product with id: %d", id)
	return r.data.DB(ctx).Where("id = ?", id).Delete(&biz.Product{}).Error
}

func (r *productRepository) LockByIDs(ctx context.Context, ids []int64) ([]*biz.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.LockByIDs")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"product_count": len(ids)})

	var rows []*biz.Product
	err := r.data.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to lock products %v, error_reason: %v", ids, err)
		return nil, err
	}
	return rows, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id int64, qty int64) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.DecrementStock")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"product_id": id,
		"qty":        qty,
	})

	return r.data.DB(ctx).
		Model(&biz.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock - ?", qty)).Error
}
