package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm/clause"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// customerRepository 客户数据访问实现
type customerRepository struct {
	data   *Data
	logger *log.Helper
}

// NewCustomerRepository 创建客户数据访问实例
func NewCustomerRepository(data *Data, logger log.Logger) biz.CustomerRepository {
	return &customerRepository{data: data, logger: log.NewHelper(logger)}
}

func (r *customerRepository) Create(ctx context.Context, customer *biz.Customer) error {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.Create")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"username": customer.Username,
		"role":     customer.Role,
	})

	r.logger.WithContext(ctx).Infof("Creating customer with username: %s", customer.Username)
	if err := r.data.DB(ctx).Create(customer).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to create customer with username: %s, error_reason: %v", customer.Username, err)
		return err
	}

	r.logger.WithContext(ctx).Infof("Successfully created customer with id: %d", customer.ID)
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*biz.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.GetByID")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"customer_id": id})

	var c biz.Customer
	if err := r.data.DB(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to get customer with id: %d, error_reason: %v", id, err)
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) GetByUsername(ctx context.Context, username string) (*biz.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.GetByUsername")
	defer span.End()

	var c biz.Customer
	if err := r.data.DB(ctx).Where("username = ?", username).First(&c).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to get customer with username: %s, error_reason: %v", username, err)
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) LockByID(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.LockByID")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"customer_id": id})

	var c biz.Customer
	err := r.data.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		r.logger.WithContext(ctx).Warnf("Failed to lock customer with id: %d, error_reason: %v", id, err)
		return err
	}
	return nil
}

func (r *customerRepository) List(ctx context.Context) ([]*biz.CustomerSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.List")
	defer span.End()

	var rows []*biz.CustomerSummary
	err := r.data.DB(ctx).
		Table("customers AS c").
		Select("c.*, COALESCE(SUM(p.points), 0) AS total_points").
		Joins("LEFT JOIN points AS p ON p.customer_id = c.id").
		Group("c.id").
		Order("c.id ASC").
		Scan(&rows).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to list customers, error_reason: %v", err)
		return nil, err
	}

	r.logger.WithContext(ctx).Infof("Successfully listed %d customers", len(rows))
	return rows, nil
}

func (r *customerRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.Count")
	defer span.End()

	var total int64
	if err := r.data.DB(ctx).Model(&biz.Customer{}).Count(&total).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to count customers, error_reason: %v", err)
		return 0, err
	}
	return total, nil
}

func (r *customerRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.Update")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id":  id,
		"fields_count": len(fields),
	})

	r.logger.WithContext(ctx).Infof("Updating customer with id: %d, fields: %d", id, len(fields))
	if err := r.data.DB(ctx).Model(&biz.Customer{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to update customer with id: %d, error_reason: %v", id, err)
		return err
	}
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "CustomerRepository.Delete")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{"customer_id": id})

	r.logger.WithContext(ctx).Infof("Deleting customer with id: %d", id)
	if err := r.data.DB(ctx).Where("id = ?", id).Delete(&biz.Customer{}).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to delete customer with id: %d, error_reason: %v", id, err)
		return err
	}
	return nil
}
