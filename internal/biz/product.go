package biz

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// Product 商品表，可用现金或积分购买
type Product struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SKU         string    `gorm:"column:sku;size:64;uniqueIndex;not null" json:"sku"`
	Name        string    `gorm:"column:name;size:128;not null" json:"name"`
	PriceCash   int64     `gorm:"column:price_cash;not null" json:"price_cash"`
	PricePoints int64     `gorm:"column:price_points;not null" json:"price_points"`
	Stock       int64     `gorm:"column:stock;not null" json:"stock"`
	Active      bool      `gorm:"column:active;not null" json:"active"`
	Category    *string   `gorm:"column:category;size:64" json:"category"`
	ImageURL    *string   `gorm:"column:image_url;size:512" json:"image_url"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// ProductUpdate 商品更新请求，nil 字段表示不更新
type ProductUpdate struct {
	SKU         *string
	Name        *string
	PriceCash   *int64
	PricePoints *int64
	Stock       *int64
	Active      *bool
	Category    *string
	ImageURL    *string
}

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, activeOnly bool) ([]*Product, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	// LockByIDs 在当前事务中锁定商品行，按 id 升序加锁
	LockByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	DecrementStock(ctx context.Context, id int64, qty int64) error
}

// ProductUsecase 商品管理
type ProductUsecase struct {
	products ProductRepository
	log      *log.Helper
}

// NewProductUsecase 创建商品业务逻辑实例
func NewProductUsecase(products ProductRepository, logger log.Logger) *ProductUsecase {
	return &ProductUsecase{products: products, log: log.NewHelper(logger)}
}

// List 商品列表，activeOnly 为 true 时只返回上架商品
func (uc *ProductUsecase) List(ctx context.Context, activeOnly bool) ([]*Product, error) {
	rows, err := uc.products.List(ctx, activeOnly)
	if err != nil {
		return nil, storageError("list products", err)
	}
	return rows, nil
}

// Get 查询商品
func (uc *ProductUsecase) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, storageError("get product", err)
	}
	return p, nil
}

// Create 新建商品
func (uc *ProductUsecase) Create(ctx context.Context, p *Product) (*Product, error) {
	uc.log.WithContext(ctx).Infof("Creating product: %s", p.SKU)

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := uc.products.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProductSKUExists
		}
		uc.log.WithContext(ctx).Errorf("Failed to create product %s: %v", p.SKU, err)
		return nil, storageError("create product", err)
	}
	return p, nil
}

// Update 只更新请求中出现的字段
func (uc *ProductUsecase) Update(ctx context.Context, id int64, req *ProductUpdate) (*Product, error) {
	fields := make(map[string]interface{})
	if req.SKU != nil {
		fields["sku"] = *req.SKU
	}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.PriceCash != nil {
		fields["price_cash"] = *req.PriceCash
	}
	if req.PricePoints != nil {
		fields["price_points"] = *req.PricePoints
	}
	if req.Stock != nil {
		fields["stock"] = *req.Stock
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.ImageURL != nil {
		fields["image_url"] = *req.ImageURL
	}

	if _, err := uc.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		if err := uc.products.Update(ctx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrProductSKUExists
			}
			uc.log.WithContext(ctx).Errorf("Failed to update product %d: %v", id, err)
			return nil, storageError("update product", err)
		}
	}
	return uc.Get(ctx, id)
}

// Delete 删除商品
func (uc *ProductUsecase) Delete(ctx context.Context, id int64) error {
	if _, err := uc.Get(ctx, id); err != nil {
		return err
	}
	if err := uc.products.Delete(ctx, id); err != nil {
		return storageError("delete product", err)
	}
	return nil
}
