package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
)

const (
	OperationPlanServiceList   = "/factfit.any.PlanService/List"
	OperationPlanServiceGet    = "/factfit.any.PlanService/Get"
	OperationPlanServiceCreate = "/factfit.staff.PlanService/Create"
	OperationPlanServiceUpdate = "/factfit.staff.PlanService/Update"
	OperationPlanServiceDelete = "/factfit.staff.PlanService/Delete"
)

// CreatePlanRequest 新建套餐
type CreatePlanRequest struct {
	Code             string `json:"code" validate:"required,max=64"`
	Name             string `json:"name" validate:"required,max=128"`
	Description      string `json:"description" validate:"max=512"`
	Price            int64  `json:"price" validate:"gte=0"`
	DurationInterval string `json:"duration_interval" validate:"required,max=64"`
	VisitLimit       *int   `json:"visit_limit" validate:"omitempty,gte=0"`
	Active           *bool  `json:"active"`
}

// UpdatePlanRequest 部分更新套餐
type UpdatePlanRequest struct {
	ID               int64   `json:"-" validate:"required,gt=0"`
	Code             *string `json:"code" validate:"omitempty,max=64"`
	Name             *string `json:"name" validate:"omitempty,max=128"`
	Description      *string `json:"description" validate:"omitempty,max=512"`
	Price            *int64  `json:"price" validate:"omitempty,gte=0"`
	DurationInterval *string `json:"duration_interval" validate:"omitempty,max=64"`
	VisitLimit       *int    `json:"visit_limit" validate:"omitempty,gte=0"`
	Active           *bool   `json:"active"`
}

// PlanIDRequest 路径中的套餐 id
type PlanIDRequest struct {
	ID int64 `json:"-" validate:"required,gt=0"`
}

// ListPlansReply 套餐列表
type ListPlansReply struct {
	Plans []*biz.Plan `json:"plans"`
}

// PlanService 套餐接口
type PlanService struct {
	uc     *biz.PlanUsecase
	logger *log.Helper
}

// NewPlanService 创建 PlanService 实例
func NewPlanService(uc *biz.PlanUsecase, logger log.Logger) *PlanService {
	return &PlanService{uc: uc, logger: log.NewHelper(logger)}
}

func (s *PlanService) List(ctx context.Context) (*ListPlansReply, error) {
	plans, err := s.uc.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ListPlansReply{Plans: plans}, nil
}

func (s *PlanService) Get(ctx context.Context, req *PlanIDRequest) (*biz.Plan, error) {
	return s.uc.Get(ctx, req.ID)
}

func (s *PlanService) Create(ctx context.Context, req *CreatePlanRequest) (*biz.Plan, error) {
	s.logger.WithContext(ctx).Infof("Received Create plan request for code: %s", req.Code)
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return s.uc.Create(ctx, &biz.Plan{
		Code:             req.Code,
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		DurationInterval: req.DurationInterval,
		VisitLimit:       req.VisitLimit,
		Active:           active,
	})
}

func (s *PlanService) Update(ctx context.Context, req *UpdatePlanRequest) (*biz.Plan, error) {
	s.logger.WithContext(ctx).Infof("Received Update plan request for id: %d", req.ID)
	return s.uc.Update(ctx, req.ID, &biz.PlanUpdate{
		Code:             req.Code,
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		DurationInterval: req.DurationInterval,
		VisitLimit:       req.VisitLimit,
		Active:           req.Active,
	})
}

func (s *PlanService) Delete(ctx context.Context, req *PlanIDRequest) (*DeleteReply, error) {
	s.logger.WithContext(ctx).Infof("Received Delete plan request for id: %d", req.ID)
	if err := s.uc.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	return &DeleteReply{Deleted: true}, nil
}

// RegisterPlanServiceHTTPServer 注册套餐路由
func RegisterPlanServiceHTTPServer(s *http.Server, srv *PlanService) {
	r := s.Route("/")
	r.GET("/api/plans", func(ctx http.Context) error {
		return handle(ctx, OperationPlanServiceList, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.List(ctx)
		})
	})
	r.GET("/api/plans/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationPlanServiceGet, &PlanIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Get(ctx, req.(*PlanIDRequest))
		})
	})
	r.POST("/api/plans", func(ctx http.Context) error {
		var in CreatePlanRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationPlanServiceCreate, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Create(ctx, req.(*CreatePlanRequest))
		})
	})
	r.PUT("/api/plans/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		var in UpdatePlanRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		in.ID = id
		return handle(ctx, OperationPlanServiceUpdate, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Update(ctx, req.(*UpdatePlanRequest))
		})
	})
	r.DELETE("/api/plans/{id}", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationPlanServiceDelete, &PlanIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Delete(ctx, req.(*PlanIDRequest))
		})
	})
}
