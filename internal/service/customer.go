package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	OperationCustomerServiceList    = "/factfit.staff.CustomerService/List"
	OperationCustomerServiceCount   = "/factfit.staff.CustomerService/Count"
	OperationCustomerServiceCreate  = "/factfit.staff.CustomerService/Create"
	OperationCustomerServiceGet     = "/factfit.staff.CustomerService/Get"
	OperationCustomerServiceUpdate  = "/factfit.staff.CustomerService/Update"
	OperationCustomerServiceDelete  = "/factfit.staff.CustomerService/Delete"
	OperationCustomerServiceHistory = "/factfit.staff.CustomerService/History"
)

// CreateCustomerRequest 新建客户
type CreateCustomerRequest struct {
	Username           string `json:"username" validate:"required,min=3,max=64"`
	Email              string `json:"email" validate:"required,email,max=191"`
	Password           string `json:"password" validate:"required,min=6"`
	Role               string `json:"role" validate:"omitempty,oneof=staff customer"`
	SubscriptionStatus string `json:"subscription_status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

// UpdateCustomerRequest 部分更新客户，未出现的字段保持不变
type UpdateCustomerRequest struct {
	ID                 int64   `json:"-"`
	Username           *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email              *string `json:"email" validate:"omitempty,email,max=191"`
	Password           *string `json:"password" validate:"omitempty,min=6"`
	Role               *string `json:"role" validate:"omitempty,oneof=staff customer"`
	SubscriptionStatus *string `json:"subscription_status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

// CustomerIDRequest 路径中只有客户 id 的请求
type CustomerIDRequest struct {
	ID int64 `json:"-" validate:"required,gt=0"`
}

// ListCustomersReply 客户列表
type ListCustomersReply struct {
	Customers []*biz.CustomerSummary `json:"customers"`
}

// CountCustomersReply 客户数量
type CountCustomersReply struct {
	Total int64 `json:"total"`
}

// DeleteReply 删除结果
type DeleteReply struct {
	Deleted bool `json:"deleted"`
}

// HistoryReply 客户历史
type HistoryReply struct {
	History []*biz.CustomerHistory `json:"history"`
}

// CustomerService 客户管理接口
type CustomerService struct {
	uc     *biz.CustomerUsecase
	logger *log.Helper
}

// NewCustomerService 创建 CustomerService 实例
func NewCustomerService(uc *biz.CustomerUsecase, logger log.Logger) *CustomerService {
	return &CustomerService{uc: uc, logger: log.NewHelper(logger)}
}

func (s *CustomerService) List(ctx context.Context) (*ListCustomersReply, error) {
	customers, err := s.uc.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ListCustomersReply{Customers: customers}, nil
}

func (s *CustomerService) Count(ctx context.Context) (*CountCustomersReply, error) {
	total, err := s.uc.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &CountCustomersReply{Total: total}, nil
}

func (s *CustomerService) Create(ctx context.Context, req *CreateCustomerRequest) (*biz.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerService.Create")
	defer span.End()

	s.logger.WithContext(ctx).Infof("Received Create customer request for username: %s", req.Username)
	return s.uc.Create(ctx, &biz.CreateCustomerRequest{
		Username:           req.Username,
		Email:              req.Email,
		Password:           req.Password,
		Role:               req.Role,
		SubscriptionStatus: req.SubscriptionStatus,
	})
}

func (s *CustomerService) Get(ctx context.Context, req *CustomerIDRequest) (*biz.Customer, error) {
	return s.uc.Get(ctx, req.ID)
}

func (s *CustomerService) Update(ctx context.Context, req *UpdateCustomerRequest) (*biz.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerService.Update")
	defer span.End()

	s.logger.WithContext(ctx).Infof("Received Update customer request for id: %d", req.ID)
	return s.uc.Update(ctx, req.ID, &biz.CustomerUpdate{
		Username:           req.Username,
		Email:              req.Email,
		Password:           req.Password,
		Role:               req.Role,
		SubscriptionStatus: req.SubscriptionStatus,
	})
}

func (s *CustomerService) Delete(ctx context.Context, req *CustomerIDRequest) (*DeleteReply, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerService.Delete")
	defer span.End()

	s.logger.WithContext(ctx).Infof("Received Delete customer request for id: %d", req.ID)
	if err := s.uc.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	return &DeleteReply{Deleted: true}, nil
}

func (s *CustomerService) History(ctx context.Context, req *CustomerIDRequest) (*HistoryReply, error) {
	history, err := s.uc.History(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &HistoryReply{History: history}, nil
}

// RegisterCustomerServiceHTTPServer 注册客户管理路由
func RegisterCustomerServiceHTTPServer(s *http.Server, srv *CustomerService) {
	r := s.Route("/")
	r.GET("/api/customers", func(ctx http.Context) error {
		return handle(ctx, OperationCustomerServiceList, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.List(ctx)
		})
	})
	r.GET("/api/customers/count", func(ctx http.Context) error {
		return handle(ctx, OperationCustomerServiceCount, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.Count(ctx)
		})
	})
	r.POST("/api/customers", func(ctx http.Context) error {
		var in CreateCustomerRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationCustomerServiceCreate, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Create(ctx, req.(*CreateCustomerRequest))
		})
	})
	r.GET("/api/customers/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationCustomerServiceGet, &CustomerIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Get(ctx, req.(*CustomerIDRequest))
		})
	})
	r.PUT("/api/customers/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var in UpdateCustomerRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		in.ID = id
		return handle(ctx, OperationCustomerServiceUpdate, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Update(ctx, req.(*UpdateCustomerRequest))
		})
	})
	r.DELETE("/api/customers/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationCustomerServiceDelete, &CustomerIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Delete(ctx, req.(*CustomerIDRequest))
		})
	})
	r.GET("/api/customers/{id}/history", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationCustomerServiceHistory, &CustomerIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.History(ctx, req.(*CustomerIDRequest))
		})
	})
}
