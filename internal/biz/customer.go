package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"factfit/internal/pkg/tracing"
)

const (
	// RoleStaff 前台与管理员
	RoleStaff = "staff"
	// RoleCustomer 普通会员
	RoleCustomer = "customer"

	// SubscriptionActive 已付费的订阅状态
	SubscriptionActive = "ACTIVE"
	// SubscriptionInactive 默认订阅状态
	SubscriptionInactive = "INACTIVE"
)

// Customer 客户表，积分余额不单独存储，由 points 表汇总得出
type Customer struct {
	ID                 int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Username           string    `gorm:"column:username;size:64;uniqueIndex;not null" json:"username"`
	Email              string    `gorm:"column:email;size:191;uniqueIndex;not null" json:"email"`
	PasswordHash       string    `gorm:"column:password_hash;not null" json:"-"`
	Role               string    `gorm:"column:role;size:16;not null" json:"role"`
	SubscriptionStatus string    `gorm:"column:subscription_status;size:16;not null" json:"subscription_status"`
	CreatedAt          time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// CustomerSummary 客户列表行，附带积分合计
type CustomerSummary struct {
	Customer
	TotalPoints int64 `gorm:"column:total_points" json:"total_points"`
}

// CustomerUpdate 客户更新请求，nil 字段表示不更新
type CustomerUpdate struct {
	Username           *string
	Email              *string
	Password           *string
	Role               *string
	SubscriptionStatus *string
}

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByUsername(ctx context.Context, username string) (*Customer, error)
	// LockByID 在当前事务中对客户行加排他锁，客户不存在时返回 gorm.ErrRecordNotFound
	LockByID(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*CustomerSummary, error)
	Count(ctx context.Context) (int64, error)
	// Update 只更新 fields 中出现的列，fields 的键为列名
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

// CustomerUsecase 客户管理
type CustomerUsecase struct {
	customers   CustomerRepository
	lots        PointLotRepository
	memberships MembershipRepository
	history     HistoryRepository
	workouts    WorkoutRepository
	tx          Transaction
	log         *log.Helper
}

// NewCustomerUsecase 创建客户业务逻辑实例
func NewCustomerUsecase(customers CustomerRepository, lots PointLotRepository, memberships MembershipRepository,
	history HistoryRepository, workouts WorkoutRepository, tx Transaction, logger log.Logger) *CustomerUsecase {
	return &CustomerUsecase{
		customers:   customers,
		lots:        lots,
		memberships: memberships,
		history:     history,
		workouts:    workouts,
		tx:          tx,
		log:         log.NewHelper(logger),
	}
}

// CreateCustomerRequest 新建客户参数
type CreateCustomerRequest struct {
	Username           string
	Email              string
	Password           string
	Role               string
	SubscriptionStatus string
}

// Create 新建客户，密码使用 bcrypt 保存
func (uc *CustomerUsecase) Create(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerUsecase.Create")
	defer span.End()

	uc.log.WithContext(ctx).Infof("Creating customer: %s", req.Username)

	hashed, err := hashPassword(req.Password)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to hash password for customer %s: %v", req.Username, err)
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = RoleCustomer
	}
	status := req.SubscriptionStatus
	if status == "" {
		status = SubscriptionInactive
	}

	now := time.Now()
	customer := &Customer{
		Username:           req.Username,
		Email:              req.Email,
		PasswordHash:       hashed,
		Role:               role,
		SubscriptionStatus: status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.customers.Create(ctx, customer); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCustomerExists
		}
		uc.log.WithContext(ctx).Errorf("Failed to create customer %s: %v", req.Username, err)
		return nil, storageError("create customer", err)
	}

	uc.log.WithContext(ctx).Infof("Created customer id: %d", customer.ID)
	return customer, nil
}

// Get 查询单个客户
func (uc *CustomerUsecase) Get(ctx context.Context, id int64) (*Customer, error) {
	customer, err := uc.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, storageError("get customer", err)
	}
	return customer, nil
}

// List 客户列表，按 id 升序，附带积分合计
func (uc *CustomerUsecase) List(ctx context.Context) ([]*CustomerSummary, error) {
	customers, err := uc.customers.List(ctx)
	if err != nil {
		return nil, storageError("list customers", err)
	}
	return customers, nil
}

// Count 客户总数
func (uc *CustomerUsecase) Count(ctx context.Context) (int64, error) {
	n, err := uc.customers.Count(ctx)
	if err != nil {
		return 0, storageError("count customers", err)
	}
	return n, nil
}

// Update 按出现的字段更新客户，订阅状态变化时写入历史
func (uc *CustomerUsecase) Update(ctx context.Context, id int64, req *CustomerUpdate) (*Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerUsecase.Update")
	defer span.End()

	fields := make(map[string]interface{})
	if req.Username != nil {
		fields["username"] = *req.Username
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Role != nil {
		fields["role"] = *req.Role
	}
	if req.SubscriptionStatus != nil {
		fields["subscription_status"] = *req.SubscriptionStatus
	}
	if req.Password != nil {
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hashed
	}

	var updated *Customer
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, id); err != nil {
			return err
		}
		before, err := uc.customers.GetByID(ctx, id)
		if err != nil {
			return storageError("get customer", err)
		}

		if len(fields) > 0 {
			fields["updated_at"] = time.Now()
			if err := uc.customers.Update(ctx, id, fields); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrCustomerExists
				}
				return storageError("update customer", err)
			}
		}

		if req.SubscriptionStatus != nil && *req.SubscriptionStatus != before.SubscriptionStatus {
			details := fmt.Sprintf("Changed to %s", *req.SubscriptionStatus)
			if err := appendHistory(ctx, uc.history, id, ActionStatusUpdated, details); err != nil {
				return err
			}
		}

		updated, err = uc.customers.GetByID(ctx, id)
		if err != nil {
			return storageError("reload customer", err)
		}
		return nil
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to update customer %d: %v", id, err)
		return nil, err
	}
	return updated, nil
}

// Delete 删除客户及其积分、会员、训练和历史记录
func (uc *CustomerUsecase) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "CustomerUsecase.Delete")
	defer span.End()

	uc.log.WithContext(ctx).Infof("Deleting customer %d", id)

	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, id); err != nil {
			return err
		}
		if err := uc.lots.DeleteByCustomer(ctx, id); err != nil {
			return storageError("delete point lots", err)
		}
		if err := uc.memberships.DeleteByCustomer(ctx, id); err != nil {
			return storageError("delete memberships", err)
		}
		if err := uc.workouts.DeleteByCustomer(ctx, id); err != nil {
			return storageError("delete workouts", err)
		}
		if err := uc.history.DeleteByCustomer(ctx, id); err != nil {
			return storageError("delete history", err)
		}
		if err := uc.customers.Delete(ctx, id); err != nil {
			return storageError("delete customer", err)
		}
		return nil
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to delete customer %d: %v", id, err)
		return err
	}
	return nil
}

// History 客户历史，按时间倒序
func (uc *CustomerUsecase) History(ctx context.Context, id int64) ([]*CustomerHistory, error) {
	rows, err := uc.history.ListByCustomer(ctx, id)
	if err != nil {
		return nil, storageError("list history", err)
	}
	return rows, nil
}

// lockCustomer 锁定客户行并把不存在翻译为 ErrCustomerNotFound
func lockCustomer(ctx context.Context, repo CustomerRepository, id int64) error {
	if err := repo.LockByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCustomerNotFound
		}
		return storageError("lock customer", err)
	}
	return nil
}

// hashPassword 使用bcrypt对密码进行哈希处理
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash 验证密码是否与哈希值匹配
func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
